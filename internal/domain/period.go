package domain

import (
	"fmt"
	"time"
)

// PeriodSelector represents the symbolic reporting window
type PeriodSelector string

const (
	PeriodToday  PeriodSelector = "today"
	PeriodWeek   PeriodSelector = "week"
	PeriodMonth  PeriodSelector = "month"
	PeriodCustom PeriodSelector = "custom"
)

// DateRange holds caller-supplied bounds for a custom period
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Period is a resolved reporting window. Both bounds are inclusive.
type Period struct {
	Selector PeriodSelector `json:"selector"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
}

// Contains reports whether t falls within [Start, End]
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// ID returns a stable identifier of the calendar period. It depends only on the
// period's start day (and end day for custom ranges), so a week or month resolved at
// different instants keeps the same ID.
func (p Period) ID() string {
	const layout = "2006-01-02"
	switch p.Selector {
	case PeriodToday:
		return "day-" + p.Start.Format(layout)
	case PeriodWeek:
		return "week-" + p.Start.Format(layout)
	case PeriodMonth:
		return "month-" + p.Start.Format("2006-01")
	default:
		return fmt.Sprintf("custom-%s-%s", p.Start.Format(layout), p.End.Format(layout))
	}
}
