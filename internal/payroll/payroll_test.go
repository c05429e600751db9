package payroll

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/worktime-metrics/internal/errors"
	"github.com/kurihiro0119/worktime-metrics/internal/testutil"
)

func januaryPeriod() domain.Period {
	return domain.Period{
		Selector: domain.PeriodMonth,
		Start:    testutil.Date(2024, 1, 1, 0, 0),
		End:      time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC),
	}
}

func TestComputePayroll_Scenario(t *testing.T) {
	records := []*domain.TimeRecord{
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 2, 9, 0), 8*time.Hour, domain.CategoryProductive),
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 3, 9, 0), 150*time.Minute, domain.CategoryNeutral),
	}

	var gotOwner, gotPeriod string
	lookup := PaymentLookupFunc(func(_ context.Context, ownerID, periodID string) (*domain.Payment, error) {
		gotOwner, gotPeriod = ownerID, periodID
		return &domain.Payment{OwnerID: ownerID, PeriodID: periodID, Hours: 10.5, Amount: 157.5}, nil
	})

	res, err := ComputePayroll(context.Background(), "alice", records, januaryPeriod(), 15.0, lookup, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 10.5, res.TotalHours)
	assert.Equal(t, 157.5, res.TotalPayment)
	assert.True(t, res.IsPaid)
	assert.False(t, res.PartiallyPaid)
	assert.Zero(t, res.OutstandingHours)
	assert.Equal(t, "month-2024-01", res.PeriodID)
	assert.Equal(t, "alice", gotOwner)
	assert.Equal(t, "month-2024-01", gotPeriod)
}

func TestComputePayroll_NegativeRate(t *testing.T) {
	_, err := ComputePayroll(context.Background(), "alice", nil, januaryPeriod(), -1, nil, time.UTC)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidRate(err))
}

func TestComputePayroll_NonFiniteRate(t *testing.T) {
	records := []*domain.TimeRecord{
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 2, 9, 0), time.Hour, domain.CategoryProductive),
	}
	for _, rate := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := ComputePayroll(context.Background(), "alice", records, januaryPeriod(), rate, nil, time.UTC)
		assert.True(t, apperrors.IsInvalidRate(err), "rate %v", rate)
	}
}

func TestValidateRate(t *testing.T) {
	assert.NoError(t, ValidateRate(0))
	assert.NoError(t, ValidateRate(42.5))
	assert.True(t, apperrors.IsInvalidRate(ValidateRate(-0.01)))
	assert.True(t, apperrors.IsInvalidRate(ValidateRate(math.NaN())))
	assert.True(t, apperrors.IsInvalidRate(ValidateRate(math.Inf(1))))
}

func TestComputePayroll_HoursAfterPaymentLeavePeriodPartiallyPaid(t *testing.T) {
	records := []*domain.TimeRecord{
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 2, 9, 0), 8*time.Hour, domain.CategoryProductive),
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 4, 9, 0), 8*time.Hour, domain.CategoryProductive),
	}
	lookup := PaymentLookupFunc(func(_ context.Context, ownerID, periodID string) (*domain.Payment, error) {
		return &domain.Payment{OwnerID: ownerID, PeriodID: periodID, Hours: 8, Amount: 80}, nil
	})

	res, err := ComputePayroll(context.Background(), "alice", records, januaryPeriod(), 10, lookup, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 16.0, res.TotalHours)
	assert.Equal(t, 160.0, res.TotalPayment)
	assert.False(t, res.IsPaid)
	assert.True(t, res.PartiallyPaid)
	assert.Equal(t, 8.0, res.PaidHours)
	assert.Equal(t, 80.0, res.PaidAmount)
	assert.Equal(t, 8.0, res.OutstandingHours)
	assert.Equal(t, 80.0, res.OutstandingPayment)
	assert.Equal(t, domain.StatusPartial, res.Status())
}

func TestComputePayroll_ZeroRateAndNoLookup(t *testing.T) {
	records := []*domain.TimeRecord{
		testutil.NewTestRecord("alice", testutil.Date(2024, 1, 2, 9, 0), time.Hour, domain.CategoryProductive),
	}
	res, err := ComputePayroll(context.Background(), "alice", records, januaryPeriod(), 0, nil, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.TotalHours)
	assert.Zero(t, res.TotalPayment)
	assert.False(t, res.IsPaid)
}

func TestComputePayroll_LookupErrorPropagates(t *testing.T) {
	boom := errors.New("ledger unreachable")
	lookup := PaymentLookupFunc(func(context.Context, string, string) (*domain.Payment, error) {
		return nil, boom
	})

	_, err := ComputePayroll(context.Background(), "alice", nil, januaryPeriod(), 10, lookup, time.UTC)
	assert.ErrorIs(t, err, boom)
}

func TestPayment_DecimalArithmetic(t *testing.T) {
	assert.Equal(t, 0.3, Payment(0.1, 3))
	assert.Equal(t, 157.5, Payment(10.5, 15))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "157.50", FormatMoney(157.5))
	assert.Equal(t, "10.33", FormatHours(10.333333))
	assert.Equal(t, "0.00", FormatMoney(0))
	assert.Equal(t, 0.3, AddMoney(0.1, 0.2))
}
