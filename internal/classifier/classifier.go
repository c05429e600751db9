// Package classifier assigns time records to a calendar-day bucket and a category.
package classifier

import (
	"time"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
)

// BucketLayout is the format of bucket keys
const BucketLayout = "2006-01-02"

// Classification is the result of classifying one record
type Classification struct {
	BucketKey  string
	Category   domain.Category
	DurationMs int64 // never negative
}

// BucketKey returns the calendar day of t in loc
func BucketKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(BucketLayout)
}

// Classify tags a record with its day bucket and category. ok is false for malformed
// records: a missing start time or a negative duration. For negative durations the
// returned classification still carries the bucket and category, with the duration
// clamped to zero.
func Classify(r *domain.TimeRecord, loc *time.Location) (c Classification, ok bool) {
	if r == nil || !r.HasStart() {
		return Classification{}, false
	}

	c = Classification{
		BucketKey:  BucketKey(r.StartTime, loc),
		Category:   domain.NormalizeCategory(string(r.Category)),
		DurationMs: r.EffectiveDurationMs(),
	}
	if c.DurationMs < 0 {
		c.DurationMs = 0
		return c, false
	}
	return c, true
}
