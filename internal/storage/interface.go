package storage

import (
	"context"
	"time"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
)

// Storage is the abstract interface for the persistence layer
type Storage interface {
	// Time record operations
	SaveRecord(ctx context.Context, record *domain.TimeRecord) error
	SaveRecords(ctx context.Context, records []*domain.TimeRecord) error
	GetRecord(ctx context.Context, id string) (*domain.TimeRecord, error)

	// GetRecords returns an owner's records starting within [start, end], plus the
	// owner's records that have no start time at all.
	GetRecords(ctx context.Context, ownerID string, start, end time.Time) ([]*domain.TimeRecord, error)

	// UpdateRecordDuration replaces a record's duration (manual hours correction)
	UpdateRecordDuration(ctx context.Context, id string, durationMs int64) error

	// Member operations
	SaveMember(ctx context.Context, member *domain.Member) error
	GetMember(ctx context.Context, id string) (*domain.Member, error)
	GetMembers(ctx context.Context) ([]*domain.Member, error)

	// Payment ledger operations
	// SavePayment inserts a ledger entry. A second entry for the same owner and
	// period is a conflict error.
	SavePayment(ctx context.Context, payment *domain.Payment) error

	// UpdatePayment tops up an existing entry. It fails with a conflict error unless
	// the stored entry still holds prevHours.
	UpdatePayment(ctx context.Context, payment *domain.Payment, prevHours float64) error

	// GetPayment returns the entry for the owner and period, or a not found error
	GetPayment(ctx context.Context, ownerID, periodID string) (*domain.Payment, error)
	GetPayments(ctx context.Context, ownerID string) ([]*domain.Payment, error)

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}
