package aggregator

import (
	"math"
	"time"

	"github.com/kurihiro0119/worktime-metrics/internal/classifier"
	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	"github.com/kurihiro0119/worktime-metrics/internal/period"
)

// Aggregate reduces the records whose start time lies within p into one summary.
// Records without a start time are counted as malformed regardless of p, records
// with a negative duration only when they fall inside p.
func Aggregate(records []*domain.TimeRecord, p domain.Period, loc *time.Location) *domain.AggregateSummary {
	s := domain.NewAggregateSummary()
	for _, r := range records {
		if r == nil || !r.HasStart() {
			s.MalformedCount++
			continue
		}
		if !p.Contains(r.StartTime) {
			continue
		}
		c, ok := classifier.Classify(r, loc)
		if !ok {
			s.MalformedCount++
			continue
		}
		add(s, c)
	}
	finalize(s)
	return s
}

// AggregateByDay applies the Aggregate reduction independently per calendar day.
// Only days that contain at least one in-window record appear in the result.
func AggregateByDay(records []*domain.TimeRecord, p domain.Period, loc *time.Location) *domain.DailyBreakdown {
	b := &domain.DailyBreakdown{Days: make(map[string]*domain.AggregateSummary)}
	for _, r := range records {
		if r == nil || !r.HasStart() {
			b.MalformedCount++
			continue
		}
		if !p.Contains(r.StartTime) {
			continue
		}
		c, ok := classifier.Classify(r, loc)
		day, exists := b.Days[c.BucketKey]
		if !exists {
			day = domain.NewAggregateSummary()
			b.Days[c.BucketKey] = day
		}
		if !ok {
			day.MalformedCount++
			continue
		}
		add(day, c)
	}
	for _, day := range b.Days {
		finalize(day)
	}
	return b
}

// Series returns one entry per calendar day of p in chronological order. Days
// without records carry an empty summary.
func Series(b *domain.DailyBreakdown, p domain.Period, loc *time.Location) []domain.DailySummary {
	if loc == nil {
		loc = time.Local
	}
	var days []domain.DailySummary
	end := p.End.In(loc)
	for current := period.Truncate(p.Start.In(loc), period.GranularityDay); !current.After(end); current = period.Next(current, period.GranularityDay) {
		key := classifier.BucketKey(current, loc)
		summary := b.Days[key]
		if summary == nil {
			summary = domain.NewAggregateSummary()
		}
		days = append(days, domain.DailySummary{Date: key, Summary: summary})
	}
	return days
}

func add(s *domain.AggregateSummary, c classifier.Classification) {
	s.ByCategory[c.Category] += c.DurationMs
	s.TotalDurationMs += c.DurationMs
	s.RecordCount++
}

func finalize(s *domain.AggregateSummary) {
	s.ActiveHours = float64(s.TotalDurationMs) / domain.MsPerHour
	s.ProductivityScore = 0
	if s.TotalDurationMs > 0 {
		productive := float64(s.ByCategory[domain.CategoryProductive])
		s.ProductivityScore = int(math.Round(productive / float64(s.TotalDurationMs) * 100))
	}
}
