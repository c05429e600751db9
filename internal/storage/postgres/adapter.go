package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/worktime-metrics/internal/errors"
	"github.com/kurihiro0119/worktime-metrics/internal/storage"
)

// postgresStorage implements the Storage interface for PostgreSQL
type postgresStorage struct {
	db *sqlx.DB
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(connStr string) (storage.Storage, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &postgresStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *postgresStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS time_records (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		start_time BIGINT,
		end_time BIGINT,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT 'neutral',
		source TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_time_records_owner_start ON time_records(owner_id, start_time);

	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		hourly_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		period_id TEXT NOT NULL,
		start_date BIGINT NOT NULL,
		end_date BIGINT NOT NULL,
		hours DOUBLE PRECISION NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		paid_at BIGINT NOT NULL,
		UNIQUE (owner_id, period_id)
	);

	CREATE INDEX IF NOT EXISTS idx_payments_owner ON payments(owner_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const upsertRecord = `
	INSERT INTO time_records (id, owner_id, start_time, end_time, duration_ms, category, source, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		owner_id = EXCLUDED.owner_id,
		start_time = EXCLUDED.start_time,
		end_time = EXCLUDED.end_time,
		duration_ms = EXCLUDED.duration_ms,
		category = EXCLUDED.category,
		source = EXCLUDED.source,
		updated_at = EXCLUDED.updated_at
`

func recordArgs(r *domain.TimeRecord) []interface{} {
	row := storage.NewRecordRow(r)
	return []interface{}{row.ID, row.OwnerID, row.StartTime, row.EndTime, row.DurationMs, row.Category, row.Source, row.CreatedAt, row.UpdatedAt}
}

// SaveRecord saves a single time record
func (s *postgresStorage) SaveRecord(ctx context.Context, record *domain.TimeRecord) error {
	_, err := s.db.ExecContext(ctx, upsertRecord, recordArgs(record)...)
	if err != nil {
		return fmt.Errorf("saving record %s: %w", record.ID, err)
	}
	return nil
}

// SaveRecords saves multiple time records in a transaction
func (s *postgresStorage) SaveRecords(ctx context.Context, records []*domain.TimeRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, upsertRecord)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, record := range records {
		if _, err := stmt.ExecContext(ctx, recordArgs(record)...); err != nil {
			return fmt.Errorf("saving record %s: %w", record.ID, err)
		}
	}

	return tx.Commit()
}

const recordColumns = `id, owner_id, start_time, end_time, duration_ms, category, source, created_at, updated_at`

// GetRecord retrieves a record by ID
func (s *postgresStorage) GetRecord(ctx context.Context, id string) (*domain.TimeRecord, error) {
	var row storage.RecordRow
	err := s.db.GetContext(ctx, &row, `SELECT `+recordColumns+` FROM time_records WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("record")
	}
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

// GetRecords retrieves an owner's records for a time range
func (s *postgresStorage) GetRecords(ctx context.Context, ownerID string, start, end time.Time) ([]*domain.TimeRecord, error) {
	var rows []storage.RecordRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+recordColumns+`
		FROM time_records
		WHERE owner_id = $1 AND (start_time IS NULL OR (start_time >= $2 AND start_time <= $3))
		ORDER BY start_time NULLS FIRST, id
	`, ownerID, storage.ToMillis(start), storage.ToMillis(end))
	if err != nil {
		return nil, err
	}

	records := make([]*domain.TimeRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.ToDomain())
	}
	return records, nil
}

// UpdateRecordDuration replaces the duration of a record
func (s *postgresStorage) UpdateRecordDuration(ctx context.Context, id string, durationMs int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE time_records SET duration_ms = $1, updated_at = $2 WHERE id = $3`,
		durationMs, storage.ToMillis(time.Now()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewNotFoundError("record")
	}
	return nil
}

// SaveMember saves a member
func (s *postgresStorage) SaveMember(ctx context.Context, member *domain.Member) error {
	row := storage.NewMemberRow(member)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, name, email, hourly_rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			hourly_rate = EXCLUDED.hourly_rate,
			updated_at = EXCLUDED.updated_at
	`, row.ID, row.Name, row.Email, row.HourlyRate, row.CreatedAt, row.UpdatedAt)
	return err
}

// GetMember retrieves a member by ID
func (s *postgresStorage) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	var row storage.MemberRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, name, email, hourly_rate, created_at, updated_at FROM members WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("member")
	}
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

// GetMembers retrieves all members ordered by name
func (s *postgresStorage) GetMembers(ctx context.Context) ([]*domain.Member, error) {
	var rows []storage.MemberRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, name, email, hourly_rate, created_at, updated_at FROM members ORDER BY name, id`); err != nil {
		return nil, err
	}

	members := make([]*domain.Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.ToDomain())
	}
	return members, nil
}

// SavePayment records a payment ledger entry
func (s *postgresStorage) SavePayment(ctx context.Context, payment *domain.Payment) error {
	row := storage.NewPaymentRow(payment)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, owner_id, period_id, start_date, end_date, hours, amount, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, row.ID, row.OwnerID, row.PeriodID, row.StartDate, row.EndDate, row.Hours, row.Amount, row.PaidAt)
	if isUniqueViolation(err) {
		return apperrors.NewConflictError(fmt.Sprintf("%s is already paid for %s", payment.OwnerID, payment.PeriodID))
	}
	return err
}

// UpdatePayment tops up a payment ledger entry that still holds prevHours
func (s *postgresStorage) UpdatePayment(ctx context.Context, payment *domain.Payment, prevHours float64) error {
	row := storage.NewPaymentRow(payment)
	res, err := s.db.ExecContext(ctx, `
		UPDATE payments SET end_date = $1, hours = $2, amount = $3, paid_at = $4
		WHERE id = $5 AND hours = $6
	`, row.EndDate, row.Hours, row.Amount, row.PaidAt, row.ID, prevHours)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewConflictError(fmt.Sprintf("payment for %s %s changed concurrently", payment.OwnerID, payment.PeriodID))
	}
	return nil
}

// GetPayment retrieves the payment for an owner and period
func (s *postgresStorage) GetPayment(ctx context.Context, ownerID, periodID string) (*domain.Payment, error) {
	var row storage.PaymentRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, owner_id, period_id, start_date, end_date, hours, amount, paid_at
		FROM payments WHERE owner_id = $1 AND period_id = $2
	`, ownerID, periodID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("payment")
	}
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

// GetPayments retrieves an owner's payments, most recent first
func (s *postgresStorage) GetPayments(ctx context.Context, ownerID string) ([]*domain.Payment, error) {
	var rows []storage.PaymentRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, owner_id, period_id, start_date, end_date, hours, amount, paid_at
		FROM payments WHERE owner_id = $1 ORDER BY paid_at DESC
	`, ownerID); err != nil {
		return nil, err
	}

	payments := make([]*domain.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.ToDomain())
	}
	return payments, nil
}

// Close closes the database connection
func (s *postgresStorage) Close() error {
	return s.db.Close()
}

// uniqueViolation is the SQLSTATE of unique_violation
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
