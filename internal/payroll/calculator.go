package payroll

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kurihiro0119/worktime-metrics/internal/aggregator"
	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/worktime-metrics/internal/errors"
	"github.com/kurihiro0119/worktime-metrics/internal/storage"
)

const defaultConcurrency = 4

// Line is one member's payroll projection
type Line struct {
	Member *domain.Member         `json:"member"`
	Result *domain.PayrollResult `json:"result"`
}

// Calculator runs payroll over stored members and records
type Calculator struct {
	store       storage.Storage
	agg         aggregator.Aggregator
	now         func() time.Time
	concurrency int
	logger      *slog.Logger
}

// CalculatorOption configures a Calculator
type CalculatorOption func(*Calculator)

// WithPaidAtClock overrides the clock used to stamp payments
func WithPaidAtClock(now func() time.Time) CalculatorOption {
	return func(c *Calculator) { c.now = now }
}

// WithConcurrency bounds the number of members computed in parallel
func WithConcurrency(n int) CalculatorOption {
	return func(c *Calculator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithCalculatorLogger sets the logger
func WithCalculatorLogger(logger *slog.Logger) CalculatorOption {
	return func(c *Calculator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCalculator creates a payroll calculator. agg supplies period resolution and the
// bucketing location.
func NewCalculator(store storage.Storage, agg aggregator.Aggregator, opts ...CalculatorOption) *Calculator {
	c := &Calculator{
		store:       store,
		agg:         agg,
		now:         time.Now,
		concurrency: defaultConcurrency,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calculator) paidFor(ctx context.Context, ownerID, periodID string) (*domain.Payment, error) {
	payment, err := c.store.GetPayment(ctx, ownerID, periodID)
	if apperrors.IsNotFound(err) {
		return nil, nil
	}
	return payment, err
}

// ForMember computes payroll for one member. rate overrides the member's stored
// hourly rate when non-nil.
func (c *Calculator) ForMember(ctx context.Context, memberID string, q aggregator.PeriodQuery, rate *float64) (*Line, error) {
	member, err := c.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	p, err := c.agg.ResolvePeriod(q)
	if err != nil {
		return nil, err
	}
	return c.compute(ctx, member, p, rate)
}

// ForAll computes payroll for every member over the same period, in member order
func (c *Calculator) ForAll(ctx context.Context, q aggregator.PeriodQuery) ([]*Line, error) {
	p, err := c.agg.ResolvePeriod(q)
	if err != nil {
		return nil, err
	}
	members, err := c.store.GetMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}

	lines := make([]*Line, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, m := range members {
		g.Go(func() error {
			line, err := c.compute(gctx, m, p, nil)
			if err != nil {
				return fmt.Errorf("payroll for %s: %w", m.ID, err)
			}
			lines[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lines, nil
}

// MarkPaid records a payment for the member's outstanding payroll. Hours logged
// after an earlier payment in the same period are paid by topping up its ledger
// entry. Paying a fully paid period, or losing a race with another payment, is a
// conflict.
func (c *Calculator) MarkPaid(ctx context.Context, memberID string, q aggregator.PeriodQuery, rate *float64) (*domain.Payment, error) {
	member, err := c.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	p, err := c.agg.ResolvePeriod(q)
	if err != nil {
		return nil, err
	}
	line, err := c.compute(ctx, member, p, rate)
	if err != nil {
		return nil, err
	}
	result := line.Result
	if result.IsPaid {
		return nil, apperrors.NewConflictError(fmt.Sprintf("%s is already paid for %s", memberID, result.PeriodID))
	}

	existing, err := c.paidFor(ctx, memberID, result.PeriodID)
	if err != nil {
		return nil, err
	}

	var payment domain.Payment
	if existing != nil {
		payment = *existing
	} else {
		payment = domain.Payment{
			ID:       uuid.New().String(),
			OwnerID:  memberID,
			PeriodID: result.PeriodID,
			Start:    result.Start,
		}
	}
	payment.End = result.End
	payment.Hours = result.TotalHours
	payment.Amount = AddMoney(payment.Amount, result.OutstandingPayment)
	payment.PaidAt = c.now().UTC()

	if existing != nil {
		err = c.store.UpdatePayment(ctx, &payment, existing.Hours)
	} else {
		err = c.store.SavePayment(ctx, &payment)
	}
	if err != nil {
		if apperrors.IsConflict(err) {
			return nil, err
		}
		return nil, apperrors.NewInternalError("saving payment", err)
	}

	c.logger.InfoContext(ctx, "payment recorded",
		"owner_id", memberID,
		"period", periodLabel(p),
		"hours", result.TotalHours,
		"amount", payment.Amount,
		"top_up", existing != nil,
	)
	return &payment, nil
}

func (c *Calculator) compute(ctx context.Context, member *domain.Member, p domain.Period, rate *float64) (*Line, error) {
	hourlyRate := member.HourlyRate
	if rate != nil {
		hourlyRate = *rate
	}

	records, err := c.store.GetRecords(ctx, member.ID, p.Start, p.End)
	if err != nil {
		return nil, fmt.Errorf("fetching records for %s: %w", member.ID, err)
	}

	result, err := ComputePayroll(ctx, member.ID, records, p, hourlyRate, PaymentLookupFunc(c.paidFor), c.agg.Location())
	if err != nil {
		return nil, err
	}
	return &Line{Member: member, Result: result}, nil
}
