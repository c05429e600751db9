package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/worktime-metrics/internal/errors"
	"github.com/kurihiro0119/worktime-metrics/internal/storage"
	"github.com/kurihiro0119/worktime-metrics/internal/testutil"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seededAggregator(t *testing.T) (Aggregator, storage.Storage) {
	t.Helper()
	store := testutil.NewTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMember(ctx, testutil.NewTestMember("alice", "Alice", 15)))
	require.NoError(t, store.SaveMember(ctx, testutil.NewTestMember("bob", "Bob", 20)))
	require.NoError(t, store.SaveRecords(ctx, []*domain.TimeRecord{
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 10, 9, 0), 2*time.Hour, domain.CategoryProductive),
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 10, 13, 0), time.Hour, domain.CategoryNeutral),
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 8, 9, 0), time.Hour, domain.CategoryUnproductive),
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 2, 9, 0), time.Hour, domain.CategoryProductive),
		testutil.NewTestRecord("alice", time.Time{}, time.Hour, domain.CategoryProductive),
		testutil.NewTestRecord("bob", testutil.Date(2024, 1, 10, 10, 0), 4*time.Hour, domain.CategoryProductive),
	}))

	agg := NewAggregator(store,
		WithClock(fixedClock(testutil.Date(2024, 1, 10, 18, 0))),
		WithLocation(time.UTC),
	)
	return agg, store
}

func TestAggregator_SummaryToday(t *testing.T) {
	agg, _ := seededAggregator(t)

	s, err := agg.Summary(context.Background(), "alice", PeriodQuery{Selector: domain.PeriodToday})
	require.NoError(t, err)
	assert.Equal(t, "alice", s.OwnerID)
	assert.Equal(t, domain.PeriodToday, s.Period.Selector)
	assert.Equal(t, (3 * time.Hour).Milliseconds(), s.Summary.TotalDurationMs)
	assert.Equal(t, 67, s.Summary.ProductivityScore)
	assert.Equal(t, 1, s.Summary.MalformedCount)
}

func TestAggregator_SummaryWeekDefault(t *testing.T) {
	agg, _ := seededAggregator(t)

	s, err := agg.Summary(context.Background(), "alice", PeriodQuery{})
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodWeek, s.Period.Selector)
	assert.Equal(t, testutil.Date(2024, 1, 8, 0, 0), s.Period.Start)
	assert.Equal(t, (4 * time.Hour).Milliseconds(), s.Summary.TotalDurationMs)
	assert.Equal(t, 3, s.Summary.RecordCount)
}

func TestAggregator_SummaryInvalidCustomRange(t *testing.T) {
	agg, _ := seededAggregator(t)

	_, err := agg.Summary(context.Background(), "alice", PeriodQuery{
		Selector: domain.PeriodCustom,
		Custom:   &domain.DateRange{Start: testutil.Date(2024, 2, 1, 0, 0), End: testutil.Date(2024, 1, 1, 0, 0)},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidRange(err))
}

func TestAggregator_DailyLastDays(t *testing.T) {
	agg, _ := seededAggregator(t)

	report, err := agg.Daily(context.Background(), "alice", PeriodQuery{Days: 10})
	require.NoError(t, err)
	require.Len(t, report.Days, 10)
	assert.Equal(t, "2024-01-01", report.Days[0].Date)
	assert.Equal(t, "2024-01-10", report.Days[9].Date)
	assert.Equal(t, time.Hour.Milliseconds(), report.Days[1].Summary.TotalDurationMs)
	assert.Equal(t, (3 * time.Hour).Milliseconds(), report.Days[9].Summary.TotalDurationMs)
	assert.Equal(t, 1, report.MalformedCount)
}

func TestAggregator_MembersSummaries(t *testing.T) {
	agg, _ := seededAggregator(t)

	summaries, err := agg.MembersSummaries(context.Background(), PeriodQuery{Selector: domain.PeriodToday})
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "Alice", summaries[0].Name)
	assert.Equal(t, "Bob", summaries[1].Name)
	assert.Equal(t, 4.0, summaries[1].Summary.ActiveHours)
	assert.Equal(t, 100, summaries[1].Summary.ProductivityScore)
}
