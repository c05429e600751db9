package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	"github.com/kurihiro0119/worktime-metrics/internal/period"
	"github.com/kurihiro0119/worktime-metrics/internal/testutil"
)

func todayPeriod(t *testing.T, now time.Time) domain.Period {
	t.Helper()
	p, err := period.Resolve(domain.PeriodToday, now, nil)
	require.NoError(t, err)
	return p
}

func TestAggregate_TodayScenario(t *testing.T) {
	records := []*domain.TimeRecord{
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 1, 9, 0), 2*time.Hour, domain.CategoryProductive),
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 1, 13, 0), time.Hour, domain.CategoryNeutral),
	}

	s := Aggregate(records, todayPeriod(t, testutil.Date(2024, 1, 1, 18, 0)), time.UTC)

	assert.Equal(t, (3 * time.Hour).Milliseconds(), s.TotalDurationMs)
	assert.Equal(t, (2 * time.Hour).Milliseconds(), s.ByCategory[domain.CategoryProductive])
	assert.Equal(t, 67, s.ProductivityScore)
	assert.Equal(t, 3.0, s.ActiveHours)
	assert.Equal(t, 2, s.RecordCount)
	assert.Equal(t, 0, s.MalformedCount)
}

func TestAggregate_AllKnownCategoriesPresent(t *testing.T) {
	s := Aggregate(nil, todayPeriod(t, testutil.Date(2024, 1, 1, 18, 0)), time.UTC)

	for _, c := range domain.KnownCategories() {
		v, ok := s.ByCategory[c]
		assert.True(t, ok, "category %s missing", c)
		assert.Zero(t, v)
	}
	assert.Equal(t, 0, s.ProductivityScore)
	assert.Zero(t, s.TotalDurationMs)
}

func TestAggregate_InclusiveBoundaries(t *testing.T) {
	p := todayPeriod(t, testutil.Date(2024, 1, 1, 18, 0))
	records := []*domain.TimeRecord{
		testutil.NewTestRecord("alice", p.Start, time.Hour, domain.CategoryProductive),
		testutil.NewTestRecord("alice", p.End, time.Hour, domain.CategoryProductive),
		testutil.NewTestRecord("alice", p.Start.Add(-time.Nanosecond), time.Hour, domain.CategoryProductive),
		testutil.NewTestRecord("alice", p.End.Add(time.Nanosecond), time.Hour, domain.CategoryProductive),
	}

	s := Aggregate(records, p, time.UTC)
	assert.Equal(t, 2, s.RecordCount)
	assert.Equal(t, (2 * time.Hour).Milliseconds(), s.TotalDurationMs)
}

func TestAggregate_UnknownCategoryKeptSeparately(t *testing.T) {
	records := []*domain.TimeRecord{
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 1, 9, 0), time.Hour, "video"),
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 1, 10, 0), time.Hour, ""),
	}

	s := Aggregate(records, todayPeriod(t, testutil.Date(2024, 1, 1, 18, 0)), time.UTC)
	assert.Equal(t, time.Hour.Milliseconds(), s.ByCategory["video"])
	assert.Equal(t, time.Hour.Milliseconds(), s.ByCategory[domain.CategoryNeutral])
	assert.Equal(t, 0, s.ProductivityScore)
}

func TestAggregate_MalformedCounted(t *testing.T) {
	p := todayPeriod(t, testutil.Date(2024, 1, 1, 18, 0))
	records := []*domain.TimeRecord{
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 1, 9, 0), time.Hour, domain.CategoryProductive),
		testutil.NewTestRecord("alice", time.Time{}, time.Hour, domain.CategoryProductive),
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 1, 10, 0), -time.Hour, domain.CategoryProductive),
		testutil.NewTestRecord("alice", testutil.Date(2023, 12, 1, 10, 0), -time.Hour, domain.CategoryProductive),
		nil,
	}

	s := Aggregate(records, p, time.UTC)
	assert.Equal(t, 3, s.MalformedCount, "undated, nil and in-window negative duration")
	assert.Equal(t, 1, s.RecordCount)
	assert.Equal(t, time.Hour.Milliseconds(), s.TotalDurationMs)
	assert.Equal(t, 100, s.ProductivityScore)
}

func TestAggregate_CategoriesPartitionTotal(t *testing.T) {
	p := domain.Period{Selector: domain.PeriodCustom, Start: testutil.Date(2024, 1, 1, 0, 0), End: testutil.Date(2024, 1, 31, 23, 59)}
	categories := []domain.Category{domain.CategoryProductive, domain.CategoryNeutral, domain.CategoryUnproductive, domain.CategoryInactive, "web"}

	var records []*domain.TimeRecord
	for i := 0; i < 200; i++ {
		start := p.Start.Add(time.Duration(i*211) * time.Minute)
		d := time.Duration(i%17) * 7 * time.Minute
		records = append(records, testutil.NewTestRecord("alice", start, d, categories[i%len(categories)]))
	}

	s := Aggregate(records, p, time.UTC)
	var sum int64
	for _, v := range s.ByCategory {
		sum += v
	}
	assert.Equal(t, s.TotalDurationMs, sum)
	assert.GreaterOrEqual(t, s.ProductivityScore, 0)
	assert.LessOrEqual(t, s.ProductivityScore, 100)

	again := Aggregate(records, p, time.UTC)
	assert.Equal(t, s, again)
}

func TestAggregate_RoundsHalfAwayFromZero(t *testing.T) {
	// 1 of 8 units productive = 12.5% -> 13
	records := []*domain.TimeRecord{
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 1, 9, 0), time.Hour, domain.CategoryProductive),
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 1, 10, 0), 7*time.Hour, domain.CategoryNeutral),
	}
	s := Aggregate(records, todayPeriod(t, testutil.Date(2024, 1, 1, 18, 0)), time.UTC)
	assert.Equal(t, 13, s.ProductivityScore)
}

func TestAggregateByDay(t *testing.T) {
	p := domain.Period{Selector: domain.PeriodCustom, Start: testutil.Date(2024, 1, 1, 0, 0), End: period.EndOfDay(testutil.Date(2024, 1, 3, 0, 0))}
	records := []*domain.TimeRecord{
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 1, 9, 0), 2*time.Hour, domain.CategoryProductive),
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 1, 13, 0), time.Hour, domain.CategoryNeutral),
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 3, 8, 0), time.Hour, domain.CategoryUnproductive),
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 3, 9, 0), -time.Hour, domain.CategoryUnproductive),
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 4, 9, 0), time.Hour, domain.CategoryProductive),
		testutil.NewTestRecord("alice", time.Time{}, time.Hour, domain.CategoryProductive),
	}

	b := AggregateByDay(records, p, time.UTC)
	require.Len(t, b.Days, 2)
	assert.Equal(t, 1, b.MalformedCount)

	day1 := b.Days["2024-01-01"]
	require.NotNil(t, day1)
	assert.Equal(t, (3 * time.Hour).Milliseconds(), day1.TotalDurationMs)
	assert.Equal(t, 67, day1.ProductivityScore)

	day3 := b.Days["2024-01-03"]
	require.NotNil(t, day3)
	assert.Equal(t, 1, day3.RecordCount)
	assert.Equal(t, 1, day3.MalformedCount)
	assert.Equal(t, 0, day3.ProductivityScore)

	series := Series(b, p, time.UTC)
	require.Len(t, series, 3)
	assert.Equal(t, "2024-01-01", series[0].Date)
	assert.Equal(t, "2024-01-02", series[1].Date)
	assert.Zero(t, series[1].Summary.TotalDurationMs)
	assert.Equal(t, "2024-01-03", series[2].Date)
}

func TestAggregateByDay_UsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	p := domain.Period{Selector: domain.PeriodCustom, Start: testutil.Date(2024, 1, 1, 0, 0), End: testutil.Date(2024, 1, 2, 23, 0)}
	records := []*domain.TimeRecord{
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 1, 20, 0), time.Hour, domain.CategoryProductive),
	}

	b := AggregateByDay(records, p, tokyo)
	assert.Contains(t, b.Days, "2024-01-02")
	assert.NotContains(t, b.Days, "2024-01-01")
}
