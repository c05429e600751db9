package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/worktime-metrics/internal/errors"
)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestResolve_Today(t *testing.T) {
	p, err := Resolve(domain.PeriodToday, at(2024, 1, 1, 18, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, at(2024, 1, 1, 0, 0), p.Start)
	assert.Equal(t, time.Date(2024, 1, 1, 23, 59, 59, 999999999, time.UTC), p.End)
}

func TestResolve_WeekStartsMonday(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"monday", at(2024, 1, 8, 9, 0), at(2024, 1, 8, 0, 0)},
		{"wednesday", at(2024, 1, 10, 9, 0), at(2024, 1, 8, 0, 0)},
		{"sunday", at(2024, 1, 14, 23, 0), at(2024, 1, 8, 0, 0)},
		{"across month", at(2024, 3, 2, 12, 0), at(2024, 2, 26, 0, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Resolve(domain.PeriodWeek, tc.now, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.Start)
			assert.Equal(t, time.Monday, p.Start.Weekday())
			assert.Equal(t, EndOfDay(tc.now), p.End)
		})
	}
}

func TestResolve_Month(t *testing.T) {
	p, err := Resolve(domain.PeriodMonth, at(2024, 2, 29, 10, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, at(2024, 2, 1, 0, 0), p.Start)
	assert.Equal(t, EndOfDay(at(2024, 2, 29, 0, 0)), p.End)
}

func TestResolve_NonCustomAlwaysOrdered(t *testing.T) {
	base := time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 24*60; i++ {
		now := base.Add(time.Duration(i) * 37 * time.Minute)
		for _, sel := range []domain.PeriodSelector{domain.PeriodToday, domain.PeriodWeek, domain.PeriodMonth} {
			p, err := Resolve(sel, now, nil)
			require.NoError(t, err)
			require.False(t, p.Start.After(p.End), "%s at %s", sel, now)
			require.True(t, p.Contains(now))
		}
	}
}

func TestResolve_CustomInvalidRange(t *testing.T) {
	_, err := Resolve(domain.PeriodCustom, time.Now(), &domain.DateRange{
		Start: at(2024, 2, 1, 0, 0),
		End:   at(2024, 1, 1, 0, 0),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidRange(err))
}

func TestResolve_CustomPassThrough(t *testing.T) {
	r := &domain.DateRange{Start: at(2024, 1, 1, 0, 0), End: at(2024, 1, 1, 0, 0)}
	p, err := Resolve(domain.PeriodCustom, time.Now(), r)
	require.NoError(t, err)
	assert.Equal(t, r.Start, p.Start)
	assert.Equal(t, r.End, p.End)
}

func TestResolve_CustomMissingBounds(t *testing.T) {
	_, err := Resolve(domain.PeriodCustom, time.Now(), nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeBadRequest, apperrors.CodeOf(err))
}

func TestParseSelector(t *testing.T) {
	sel, err := ParseSelector(" Month ")
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodMonth, sel)

	sel, err = ParseSelector("")
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodWeek, sel)

	_, err = ParseSelector("fortnight")
	assert.Error(t, err)
}

func TestLastDays(t *testing.T) {
	p := LastDays(30, at(2024, 3, 15, 12, 0))
	assert.Equal(t, at(2024, 2, 15, 0, 0), p.Start)
	assert.Equal(t, EndOfDay(at(2024, 3, 15, 0, 0)), p.End)
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2024-01-01", "2024-01-31", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, at(2024, 1, 1, 0, 0), r.Start)
	assert.Equal(t, EndOfDay(at(2024, 1, 31, 0, 0)), r.End)

	r, err = ParseDateRange("", "", time.UTC)
	require.NoError(t, err)
	assert.Nil(t, r)

	_, err = ParseDateRange("2024-01-01", "", time.UTC)
	assert.Error(t, err)

	_, err = ParseDateRange("01/01/2024", "2024-01-31", time.UTC)
	assert.Error(t, err)
}

func TestPeriodID_StableWithinCalendarPeriod(t *testing.T) {
	p1, _ := Resolve(domain.PeriodWeek, at(2024, 1, 9, 8, 0), nil)
	p2, _ := Resolve(domain.PeriodWeek, at(2024, 1, 12, 22, 0), nil)
	assert.Equal(t, "week-2024-01-08", p1.ID())
	assert.Equal(t, p1.ID(), p2.ID())

	m, _ := Resolve(domain.PeriodMonth, at(2024, 1, 20, 8, 0), nil)
	assert.Equal(t, "month-2024-01", m.ID())
}

func TestPeriodID_WindowGrowsUnderSameID(t *testing.T) {
	tue, _ := Resolve(domain.PeriodWeek, at(2024, 1, 9, 17, 0), nil)
	fri, _ := Resolve(domain.PeriodWeek, at(2024, 1, 12, 17, 0), nil)

	// payroll compares paid hours against the current hours because the ID does not
	// move while the window end does
	assert.Equal(t, tue.ID(), fri.ID())
	assert.True(t, tue.End.Before(fri.End))
	assert.Equal(t, at(2024, 1, 9, 23, 59).Add(59*time.Second+999999999), tue.End)
}

func TestTruncateAndNext(t *testing.T) {
	wed := at(2024, 1, 10, 15, 30)
	assert.Equal(t, at(2024, 1, 10, 0, 0), Truncate(wed, GranularityDay))
	assert.Equal(t, at(2024, 1, 8, 0, 0), Truncate(wed, GranularityWeek))
	assert.Equal(t, at(2024, 1, 1, 0, 0), Truncate(wed, GranularityMonth))

	assert.Equal(t, at(2024, 1, 11, 0, 0), Next(at(2024, 1, 10, 0, 0), GranularityDay))
	assert.Equal(t, at(2024, 1, 15, 0, 0), Next(at(2024, 1, 8, 0, 0), GranularityWeek))
	assert.Equal(t, at(2024, 2, 1, 0, 0), Next(at(2024, 1, 1, 0, 0), GranularityMonth))
}
