package storage

import (
	"database/sql"
	"time"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
)

// RecordRow is the database shape of a time record. Instants are Unix milliseconds.
type RecordRow struct {
	ID         string        `db:"id"`
	OwnerID    string        `db:"owner_id"`
	StartTime  sql.NullInt64 `db:"start_time"`
	EndTime    sql.NullInt64 `db:"end_time"`
	DurationMs int64         `db:"duration_ms"`
	Category   string        `db:"category"`
	Source     string        `db:"source"`
	CreatedAt  int64         `db:"created_at"`
	UpdatedAt  int64         `db:"updated_at"`
}

// MemberRow is the database shape of a member
type MemberRow struct {
	ID         string  `db:"id"`
	Name       string  `db:"name"`
	Email      string  `db:"email"`
	HourlyRate float64 `db:"hourly_rate"`
	CreatedAt  int64   `db:"created_at"`
	UpdatedAt  int64   `db:"updated_at"`
}

// PaymentRow is the database shape of a payment ledger entry
type PaymentRow struct {
	ID        string  `db:"id"`
	OwnerID   string  `db:"owner_id"`
	PeriodID  string  `db:"period_id"`
	StartDate int64   `db:"start_date"`
	EndDate   int64   `db:"end_date"`
	Hours     float64 `db:"hours"`
	Amount    float64 `db:"amount"`
	PaidAt    int64   `db:"paid_at"`
}

// ToMillis converts t to Unix milliseconds
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts Unix milliseconds to a UTC time
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// NewRecordRow converts a domain record for persistence
func NewRecordRow(r *domain.TimeRecord) RecordRow {
	row := RecordRow{
		ID:         r.ID,
		OwnerID:    r.OwnerID,
		DurationMs: r.DurationMs,
		Category:   string(r.Category),
		Source:     r.Source,
		CreatedAt:  ToMillis(r.CreatedAt),
		UpdatedAt:  ToMillis(r.UpdatedAt),
	}
	if r.HasStart() {
		row.StartTime = sql.NullInt64{Int64: ToMillis(r.StartTime), Valid: true}
	}
	if r.EndTime != nil {
		row.EndTime = sql.NullInt64{Int64: ToMillis(*r.EndTime), Valid: true}
	}
	return row
}

// ToDomain converts a stored row back to a domain record
func (row RecordRow) ToDomain() *domain.TimeRecord {
	r := &domain.TimeRecord{
		ID:         row.ID,
		OwnerID:    row.OwnerID,
		DurationMs: row.DurationMs,
		Category:   domain.Category(row.Category),
		Source:     row.Source,
		CreatedAt:  FromMillis(row.CreatedAt),
		UpdatedAt:  FromMillis(row.UpdatedAt),
	}
	if row.StartTime.Valid {
		r.StartTime = FromMillis(row.StartTime.Int64)
	}
	if row.EndTime.Valid {
		end := FromMillis(row.EndTime.Int64)
		r.EndTime = &end
	}
	return r
}

// NewMemberRow converts a domain member for persistence
func NewMemberRow(m *domain.Member) MemberRow {
	return MemberRow{
		ID:         m.ID,
		Name:       m.Name,
		Email:      m.Email,
		HourlyRate: m.HourlyRate,
		CreatedAt:  ToMillis(m.CreatedAt),
		UpdatedAt:  ToMillis(m.UpdatedAt),
	}
}

// ToDomain converts a stored row back to a domain member
func (row MemberRow) ToDomain() *domain.Member {
	return &domain.Member{
		ID:         row.ID,
		Name:       row.Name,
		Email:      row.Email,
		HourlyRate: row.HourlyRate,
		CreatedAt:  FromMillis(row.CreatedAt),
		UpdatedAt:  FromMillis(row.UpdatedAt),
	}
}

// NewPaymentRow converts a domain payment for persistence
func NewPaymentRow(p *domain.Payment) PaymentRow {
	return PaymentRow{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		PeriodID:  p.PeriodID,
		StartDate: ToMillis(p.Start),
		EndDate:   ToMillis(p.End),
		Hours:     p.Hours,
		Amount:    p.Amount,
		PaidAt:    ToMillis(p.PaidAt),
	}
}

// ToDomain converts a stored row back to a domain payment
func (row PaymentRow) ToDomain() *domain.Payment {
	return &domain.Payment{
		ID:       row.ID,
		OwnerID:  row.OwnerID,
		PeriodID: row.PeriodID,
		Start:    FromMillis(row.StartDate),
		End:      FromMillis(row.EndDate),
		Hours:    row.Hours,
		Amount:   row.Amount,
		PaidAt:   FromMillis(row.PaidAt),
	}
}
