package domain

import "time"

// Payment represents a payment ledger entry for one owner and one period
type Payment struct {
	ID       string    `json:"id"`
	OwnerID  string    `json:"owner_id"`
	PeriodID string    `json:"period_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Hours    float64   `json:"hours"`
	Amount   float64   `json:"amount"`
	PaidAt   time.Time `json:"paid_at"`
}

// PayrollResult represents the hourly-rate projection of a member's hours.
// A period is paid only when the ledger covers every hour currently in it; hours
// logged after a payment leave it partially paid.
type PayrollResult struct {
	OwnerID            string    `json:"owner_id"`
	PeriodID           string    `json:"period_id"`
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	TotalHours         float64   `json:"total_hours"`
	HourlyRate         float64   `json:"hourly_rate"`
	TotalPayment       float64   `json:"total_payment"`
	IsPaid             bool      `json:"is_paid"`
	PartiallyPaid      bool      `json:"partially_paid"`
	PaidHours          float64   `json:"paid_hours"`
	PaidAmount         float64   `json:"paid_amount"`
	OutstandingHours   float64   `json:"outstanding_hours"`
	OutstandingPayment float64   `json:"outstanding_payment"`
}

// Payroll statuses
const (
	StatusPaid    = "Paid"
	StatusPartial = "Partial"
	StatusUnpaid  = "Unpaid"
)

// Status returns Paid, Partial or Unpaid
func (r *PayrollResult) Status() string {
	switch {
	case r.IsPaid:
		return StatusPaid
	case r.PartiallyPaid:
		return StatusPartial
	default:
		return StatusUnpaid
	}
}
