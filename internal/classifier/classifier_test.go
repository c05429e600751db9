package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
)

func TestClassify_BucketUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	r := &domain.TimeRecord{
		StartTime:  time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC),
		DurationMs: 1000,
		Category:   domain.CategoryProductive,
	}

	c, ok := Classify(r, time.UTC)
	assert.True(t, ok)
	assert.Equal(t, "2024-01-01", c.BucketKey)

	c, ok = Classify(r, tokyo)
	assert.True(t, ok)
	assert.Equal(t, "2024-01-02", c.BucketKey)
}

func TestClassify_Categories(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		raw  domain.Category
		want domain.Category
	}{
		{"productive", domain.CategoryProductive},
		{" Unproductive ", domain.CategoryUnproductive},
		{"", domain.CategoryNeutral},
		{"video", "video"},
	}
	for _, tc := range cases {
		c, ok := Classify(&domain.TimeRecord{StartTime: start, Category: tc.raw}, time.UTC)
		assert.True(t, ok)
		assert.Equal(t, tc.want, c.Category)
	}
}

func TestClassify_Malformed(t *testing.T) {
	_, ok := Classify(&domain.TimeRecord{DurationMs: 1000}, time.UTC)
	assert.False(t, ok, "missing start time")

	c, ok := Classify(&domain.TimeRecord{
		StartTime:  time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		DurationMs: -500,
	}, time.UTC)
	assert.False(t, ok, "negative duration")
	assert.Equal(t, int64(0), c.DurationMs)
	assert.Equal(t, "2024-01-01", c.BucketKey)

	_, ok = Classify(nil, time.UTC)
	assert.False(t, ok)
}

func TestClassify_DerivesDurationFromEndTime(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	c, ok := Classify(&domain.TimeRecord{StartTime: start, EndTime: &end}, time.UTC)
	assert.True(t, ok)
	assert.Equal(t, (90 * time.Minute).Milliseconds(), c.DurationMs)
}
