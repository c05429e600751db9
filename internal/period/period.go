// Package period resolves symbolic reporting periods into concrete date windows.
//
// All calendar arithmetic happens in the location of the instant passed in. Weeks
// start on Monday.
package period

import (
	"fmt"
	"strings"
	"time"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/worktime-metrics/internal/errors"
)

const dateLayout = "2006-01-02"

// Granularity values accepted by Truncate and Next
const (
	GranularityDay   = "day"
	GranularityWeek  = "week"
	GranularityMonth = "month"
)

// ParseSelector converts a UI/query string into a PeriodSelector
func ParseSelector(s string) (domain.PeriodSelector, error) {
	switch sel := domain.PeriodSelector(strings.ToLower(strings.TrimSpace(s))); sel {
	case domain.PeriodToday, domain.PeriodWeek, domain.PeriodMonth, domain.PeriodCustom:
		return sel, nil
	case "":
		return domain.PeriodWeek, nil
	default:
		return "", apperrors.NewBadRequestError(
			fmt.Sprintf("unknown period %q: must be one of today, week, month, custom", s))
	}
}

// Resolve maps a selector and the current instant to an inclusive window.
// custom is only read for the custom selector.
func Resolve(selector domain.PeriodSelector, now time.Time, custom *domain.DateRange) (domain.Period, error) {
	switch selector {
	case domain.PeriodToday:
		return domain.Period{Selector: selector, Start: StartOfDay(now), End: EndOfDay(now)}, nil
	case domain.PeriodWeek:
		return domain.Period{Selector: selector, Start: StartOfWeek(now), End: EndOfDay(now)}, nil
	case domain.PeriodMonth:
		return domain.Period{Selector: selector, Start: StartOfMonth(now), End: EndOfDay(now)}, nil
	case domain.PeriodCustom:
		if custom == nil || custom.Start.IsZero() || custom.End.IsZero() {
			return domain.Period{}, apperrors.NewBadRequestError("custom period requires both start and end dates")
		}
		if custom.Start.After(custom.End) {
			return domain.Period{}, apperrors.NewInvalidRangeError(
				custom.Start.Format(dateLayout), custom.End.Format(dateLayout))
		}
		return domain.Period{Selector: selector, Start: custom.Start, End: custom.End}, nil
	default:
		return domain.Period{}, apperrors.NewBadRequestError(fmt.Sprintf("unknown period %q", selector))
	}
}

// LastDays returns the custom window covering the n calendar days ending today
func LastDays(n int, now time.Time) domain.Period {
	if n < 1 {
		n = 1
	}
	return domain.Period{
		Selector: domain.PeriodCustom,
		Start:    StartOfDay(now.AddDate(0, 0, -(n - 1))),
		End:      EndOfDay(now),
	}
}

// StartOfDay returns midnight of t's calendar day
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's calendar day
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// StartOfWeek returns Monday 00:00 of t's week
func StartOfWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return time.Date(t.Year(), t.Month(), t.Day()-weekday+1, 0, 0, 0, 0, t.Location())
}

// StartOfMonth returns the first day of t's month at midnight
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Truncate truncates a time to the start of the period based on granularity
func Truncate(t time.Time, granularity string) time.Time {
	switch granularity {
	case GranularityWeek:
		return StartOfWeek(t)
	case GranularityMonth:
		return StartOfMonth(t)
	default:
		return StartOfDay(t)
	}
}

// Next returns the start of the period following t
func Next(t time.Time, granularity string) time.Time {
	switch granularity {
	case GranularityWeek:
		return t.AddDate(0, 0, 7)
	case GranularityMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// ParseDate parses a YYYY-MM-DD date at midnight in loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, apperrors.NewBadRequestError(fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", s))
	}
	return t, nil
}

// ParseDateRange parses inclusive YYYY-MM-DD bounds. The end date covers its whole
// day. Empty strings yield a nil range.
func ParseDateRange(start, end string, loc *time.Location) (*domain.DateRange, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, apperrors.NewBadRequestError("both start and end dates are required")
	}
	s, err := ParseDate(start, loc)
	if err != nil {
		return nil, err
	}
	e, err := ParseDate(end, loc)
	if err != nil {
		return nil, err
	}
	return &domain.DateRange{Start: s, End: EndOfDay(e)}, nil
}
