package aggregator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	"github.com/kurihiro0119/worktime-metrics/internal/period"
	"github.com/kurihiro0119/worktime-metrics/internal/storage"
	"github.com/kurihiro0119/worktime-metrics/internal/telemetry"
)

var meter = telemetry.Meter("worktime-metrics/aggregator")

// PeriodQuery describes the reporting window requested by a caller.
// Days, when positive, selects the last Days calendar days and wins over Selector.
type PeriodQuery struct {
	Selector domain.PeriodSelector
	Custom   *domain.DateRange
	Days     int
}

// Aggregator defines the interface for aggregating stored time records
type Aggregator interface {
	// ResolvePeriod resolves a query against the aggregator's clock and location
	ResolvePeriod(q PeriodQuery) (domain.Period, error)

	// Summary aggregates one owner's records over the resolved period
	Summary(ctx context.Context, ownerID string, q PeriodQuery) (*domain.MemberSummary, error)

	// Daily returns a gap-filled per-day breakdown for one owner
	Daily(ctx context.Context, ownerID string, q PeriodQuery) (*domain.DailyReport, error)

	// MembersSummaries aggregates every known member over the same period
	MembersSummaries(ctx context.Context, q PeriodQuery) ([]*domain.MemberSummary, error)

	// Location returns the time zone used for day bucketing
	Location() *time.Location
}

// Option configures an aggregator
type Option func(*aggregator)

// WithClock overrides the source of "now"
func WithClock(now func() time.Time) Option {
	return func(a *aggregator) { a.now = now }
}

// WithLocation sets the time zone used for period resolution and day bucketing
func WithLocation(loc *time.Location) Option {
	return func(a *aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// aggregator implements the Aggregator interface
type aggregator struct {
	storage   storage.Storage
	now       func() time.Time
	loc       *time.Location
	logger    *slog.Logger
	malformed otelmetric.Int64Counter
}

// NewAggregator creates a new aggregator
func NewAggregator(store storage.Storage, opts ...Option) Aggregator {
	a := &aggregator{
		storage: store,
		now:     time.Now,
		loc:     time.Local,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	if counter, err := meter.Int64Counter("aggregator.malformed_records"); err == nil {
		a.malformed = counter
	}
	return a
}

func (a *aggregator) Location() *time.Location {
	return a.loc
}

func (a *aggregator) ResolvePeriod(q PeriodQuery) (domain.Period, error) {
	now := a.now().In(a.loc)
	if q.Days > 0 {
		return period.LastDays(q.Days, now), nil
	}
	selector := q.Selector
	if selector == "" {
		selector = domain.PeriodWeek
	}
	return period.Resolve(selector, now, q.Custom)
}

func (a *aggregator) Summary(ctx context.Context, ownerID string, q PeriodQuery) (*domain.MemberSummary, error) {
	p, err := a.ResolvePeriod(q)
	if err != nil {
		return nil, err
	}

	records, err := a.storage.GetRecords(ctx, ownerID, p.Start, p.End)
	if err != nil {
		return nil, fmt.Errorf("fetching records for %s: %w", ownerID, err)
	}

	summary := Aggregate(records, p, a.loc)
	a.reportMalformed(ctx, ownerID, p, summary.MalformedCount)

	return &domain.MemberSummary{
		OwnerID: ownerID,
		Period:  p,
		Summary: summary,
	}, nil
}

func (a *aggregator) Daily(ctx context.Context, ownerID string, q PeriodQuery) (*domain.DailyReport, error) {
	p, err := a.ResolvePeriod(q)
	if err != nil {
		return nil, err
	}

	records, err := a.storage.GetRecords(ctx, ownerID, p.Start, p.End)
	if err != nil {
		return nil, fmt.Errorf("fetching records for %s: %w", ownerID, err)
	}

	breakdown := AggregateByDay(records, p, a.loc)
	malformed := breakdown.MalformedCount
	for _, day := range breakdown.Days {
		malformed += day.MalformedCount
	}
	a.reportMalformed(ctx, ownerID, p, malformed)

	return &domain.DailyReport{
		OwnerID:        ownerID,
		Period:         p,
		Days:           Series(breakdown, p, a.loc),
		MalformedCount: breakdown.MalformedCount,
	}, nil
}

func (a *aggregator) MembersSummaries(ctx context.Context, q PeriodQuery) ([]*domain.MemberSummary, error) {
	members, err := a.storage.GetMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}

	summaries := make([]*domain.MemberSummary, 0, len(members))
	for _, m := range members {
		s, err := a.Summary(ctx, m.ID, q)
		if err != nil {
			return nil, err
		}
		s.Name = m.Name
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func (a *aggregator) reportMalformed(ctx context.Context, ownerID string, p domain.Period, count int) {
	if count == 0 {
		return
	}
	a.logger.WarnContext(ctx, "malformed records excluded from aggregation",
		"owner_id", ownerID,
		"period", p.ID(),
		"malformed_count", count,
	)
	if a.malformed != nil {
		a.malformed.Add(ctx, int64(count), otelmetric.WithAttributes(attribute.String("period.selector", string(p.Selector))))
	}
}
