// Package payroll projects aggregated hours onto hourly rates and tracks which
// periods have been paid.
package payroll

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kurihiro0119/worktime-metrics/internal/aggregator"
	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/worktime-metrics/internal/errors"
)

// PaymentLookup returns the ledger entry recorded for an owner and period, or nil
// when the period has not been paid
type PaymentLookup interface {
	PaidFor(ctx context.Context, ownerID, periodID string) (*domain.Payment, error)
}

// PaymentLookupFunc adapts a function to PaymentLookup
type PaymentLookupFunc func(ctx context.Context, ownerID, periodID string) (*domain.Payment, error)

// PaidFor calls f
func (f PaymentLookupFunc) PaidFor(ctx context.Context, ownerID, periodID string) (*domain.Payment, error) {
	return f(ctx, ownerID, periodID)
}

// ValidateRate rejects negative, NaN and infinite hourly rates
func ValidateRate(rate float64) error {
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return apperrors.NewInvalidRateError(rate)
	}
	return nil
}

// ComputePayroll totals an owner's hours over p and multiplies them by hourlyRate.
// records are expected to belong to ownerID. Lookup errors are returned unchanged.
// The period counts as paid only when the recorded payment covers the current hours.
func ComputePayroll(ctx context.Context, ownerID string, records []*domain.TimeRecord, p domain.Period, hourlyRate float64, lookup PaymentLookup, loc *time.Location) (*domain.PayrollResult, error) {
	if err := ValidateRate(hourlyRate); err != nil {
		return nil, err
	}

	summary := aggregator.Aggregate(records, p, loc)
	totalHours := float64(summary.TotalDurationMs) / domain.MsPerHour

	var paid *domain.Payment
	if lookup != nil {
		var err error
		if paid, err = lookup.PaidFor(ctx, ownerID, p.ID()); err != nil {
			return nil, err
		}
	}

	result := &domain.PayrollResult{
		OwnerID:      ownerID,
		PeriodID:     p.ID(),
		Start:        p.Start,
		End:          p.End,
		TotalHours:   totalHours,
		HourlyRate:   hourlyRate,
		TotalPayment: Payment(totalHours, hourlyRate),
	}

	outstanding := decimal.NewFromFloat(totalHours)
	if paid != nil {
		result.PaidHours = paid.Hours
		result.PaidAmount = paid.Amount
		outstanding = outstanding.Sub(decimal.NewFromFloat(paid.Hours))
	}
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}
	result.OutstandingHours = outstanding.InexactFloat64()
	result.OutstandingPayment = outstanding.Mul(decimal.NewFromFloat(hourlyRate)).InexactFloat64()
	result.IsPaid = paid != nil && outstanding.IsZero()
	result.PartiallyPaid = paid != nil && !result.IsPaid

	return result, nil
}

// Payment multiplies hours by rate in decimal arithmetic
func Payment(hours, rate float64) float64 {
	return decimal.NewFromFloat(hours).Mul(decimal.NewFromFloat(rate)).InexactFloat64()
}

// AddMoney sums two amounts in decimal arithmetic
func AddMoney(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).InexactFloat64()
}

// FormatMoney renders an amount with two decimals
func FormatMoney(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// FormatHours renders hours with two decimals
func FormatHours(hours float64) string {
	return decimal.NewFromFloat(hours).StringFixed(2)
}

func periodLabel(p domain.Period) string {
	return fmt.Sprintf("%s (%s to %s)", p.ID(), p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}
