package domain

import (
	"strings"
	"time"
)

// Category represents the semantic tag of a time record
type Category string

const (
	CategoryProductive   Category = "productive"
	CategoryNeutral      Category = "neutral"
	CategoryUnproductive Category = "unproductive"
	CategoryInactive     Category = "inactive"
)

// KnownCategories returns the fixed category enumeration in display order
func KnownCategories() []Category {
	return []Category{CategoryProductive, CategoryNeutral, CategoryUnproductive, CategoryInactive}
}

// IsKnown reports whether the category belongs to the fixed enumeration
func (c Category) IsKnown() bool {
	switch c {
	case CategoryProductive, CategoryNeutral, CategoryUnproductive, CategoryInactive:
		return true
	}
	return false
}

// NormalizeCategory trims and lower-cases a raw category. Empty input maps to neutral;
// unknown values are kept as their own category.
func NormalizeCategory(raw string) Category {
	c := strings.ToLower(strings.TrimSpace(raw))
	if c == "" {
		return CategoryNeutral
	}
	return Category(c)
}

// TimeRecord represents a single observed interval of work or activity
type TimeRecord struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	StartTime  time.Time  `json:"start_time"`         // zero when missing or unparseable
	EndTime    *time.Time `json:"end_time,omitempty"` // nil for records that only carry a duration
	DurationMs int64      `json:"duration_ms"`
	Category   Category   `json:"category"`
	Source     string     `json:"source,omitempty"` // app, web, video, manual
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// HasStart reports whether the record carries a usable start time
func (r *TimeRecord) HasStart() bool {
	return !r.StartTime.IsZero()
}

// EffectiveDurationMs returns the stored duration, or the span between start and end
// when no duration was stored. The result may be negative for corrupt input.
func (r *TimeRecord) EffectiveDurationMs() int64 {
	if r.DurationMs != 0 || r.EndTime == nil || !r.HasStart() {
		return r.DurationMs
	}
	return r.EndTime.Sub(r.StartTime).Milliseconds()
}
