package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
)

// RecordOption customizes a test record
type RecordOption func(*domain.TimeRecord)

// WithID sets the record ID
func WithID(id string) RecordOption {
	return func(r *domain.TimeRecord) { r.ID = id }
}

// WithEndTime sets the end time and clears the stored duration
func WithEndTime(end time.Time) RecordOption {
	return func(r *domain.TimeRecord) {
		r.EndTime = &end
		r.DurationMs = 0
	}
}

// WithSource sets the record source
func WithSource(source string) RecordOption {
	return func(r *domain.TimeRecord) { r.Source = source }
}

// NewTestRecord creates a record for owner starting at start
func NewTestRecord(ownerID string, start time.Time, d time.Duration, category domain.Category, opts ...RecordOption) *domain.TimeRecord {
	now := time.Now().UTC().Truncate(time.Millisecond)
	r := &domain.TimeRecord{
		ID:         uuid.New().String(),
		OwnerID:    ownerID,
		StartTime:  start,
		DurationMs: d.Milliseconds(),
		Category:   category,
		Source:     "app",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewTestMember creates a member with the given hourly rate
func NewTestMember(id, name string, rate float64) *domain.Member {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Member{
		ID:         id,
		Name:       name,
		Email:      id + "@example.com",
		HourlyRate: rate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Date returns a UTC instant
func Date(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}
