package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	moderncsqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/worktime-metrics/internal/errors"
	"github.com/kurihiro0119/worktime-metrics/internal/storage"
)

// Supported database/sql driver names
const (
	DriverCGO    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// sqliteStorage implements the Storage interface for SQLite
type sqliteStorage struct {
	db *sqlx.DB
}

// NewSQLiteStorage creates a new SQLite storage instance using the cgo driver
func NewSQLiteStorage(dbPath string) (storage.Storage, error) {
	return NewSQLiteStorageWithDriver(DriverCGO, dbPath)
}

// NewSQLiteStorageWithDriver creates a new SQLite storage instance on the given driver
func NewSQLiteStorageWithDriver(driver, dbPath string) (storage.Storage, error) {
	dsn, err := buildDSN(driver, dbPath)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if dbPath == MemoryPath {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	s := &sqliteStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func buildDSN(driver, dbPath string) (string, error) {
	if dbPath == MemoryPath {
		return dbPath, nil
	}
	switch driver {
	case DriverCGO:
		return dbPath + "?_journal_mode=WAL&_busy_timeout=5000", nil
	case DriverPureGo:
		return dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", driver)
	}
}

// Migrate runs database migrations
func (s *sqliteStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS time_records (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		start_time INTEGER,
		end_time INTEGER,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT 'neutral',
		source TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_time_records_owner_start ON time_records(owner_id, start_time);

	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		hourly_rate REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		period_id TEXT NOT NULL,
		start_date INTEGER NOT NULL,
		end_date INTEGER NOT NULL,
		hours REAL NOT NULL,
		amount REAL NOT NULL,
		paid_at INTEGER NOT NULL,
		UNIQUE (owner_id, period_id)
	);

	CREATE INDEX IF NOT EXISTS idx_payments_owner ON payments(owner_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const upsertRecord = `
	INSERT INTO time_records (id, owner_id, start_time, end_time, duration_ms, category, source, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		owner_id = excluded.owner_id,
		start_time = excluded.start_time,
		end_time = excluded.end_time,
		duration_ms = excluded.duration_ms,
		category = excluded.category,
		source = excluded.source,
		updated_at = excluded.updated_at
`

func recordArgs(r *domain.TimeRecord) []interface{} {
	row := storage.NewRecordRow(r)
	return []interface{}{row.ID, row.OwnerID, row.StartTime, row.EndTime, row.DurationMs, row.Category, row.Source, row.CreatedAt, row.UpdatedAt}
}

// SaveRecord saves a single time record
func (s *sqliteStorage) SaveRecord(ctx context.Context, record *domain.TimeRecord) error {
	_, err := s.db.ExecContext(ctx, upsertRecord, recordArgs(record)...)
	if err != nil {
		return fmt.Errorf("saving record %s: %w", record.ID, err)
	}
	return nil
}

// SaveRecords saves multiple time records in a transaction
func (s *sqliteStorage) SaveRecords(ctx context.Context, records []*domain.TimeRecord) error {
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
func (s *sqliteStorage) GetRecord(ctx context.Context, id string) (*domain.TimeRecord, error) {
	var row storage.RecordRow
	err := s.db.GetContext(ctx, &row, `SELECT `+recordColumns+` FROM time_records WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("record")
	}
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

// GetRecords retrieves an owner's records for a time range
func (s *sqliteStorage) GetRecords(ctx context.Context, ownerID string, start, end time.Time) ([]*domain.TimeRecord, error) {
	var rows []storage.RecordRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+recordColumns+`
		FROM time_records
		WHERE owner_id = ? AND (start_time IS NULL OR (start_time >= ? AND start_time <= ?))
		ORDER BY start_time, id
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
func (s *sqliteStorage) UpdateRecordDuration(ctx context.Context, id string, durationMs int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE time_records SET duration_ms = ?, updated_at = ? WHERE id = ?`,
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
func (s *sqliteStorage) SaveMember(ctx context.Context, member *domain.Member) error {
	row := storage.NewMemberRow(member)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, name, email, hourly_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			hourly_rate = excluded.hourly_rate,
			updated_at = excluded.updated_at
	`, row.ID, row.Name, row.Email, row.HourlyRate, row.CreatedAt, row.UpdatedAt)
	return err
}

// GetMember retrieves a member by ID
func (s *sqliteStorage) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	var row storage.MemberRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, name, email, hourly_rate, created_at, updated_at FROM members WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("member")
	}
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

// GetMembers retrieves all members ordered by name
func (s *sqliteStorage) GetMembers(ctx context.Context) ([]*domain.Member, error) {
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
func (s *sqliteStorage) SavePayment(ctx context.Context, payment *domain.Payment) error {
	row := storage.NewPaymentRow(payment)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, owner_id, period_id, start_date, end_date, hours, amount, paid_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, row.ID, row.OwnerID, row.PeriodID, row.StartDate, row.EndDate, row.Hours, row.Amount, row.PaidAt)
	if isUniqueViolation(err) {
		return apperrors.NewConflictError(fmt.Sprintf("%s is already paid for %s", payment.OwnerID, payment.PeriodID))
	}
	return err
}

// UpdatePayment tops up a payment ledger entry that still holds prevHours
func (s *sqliteStorage) UpdatePayment(ctx context.Context, payment *domain.Payment, prevHours float64) error {
	row := storage.NewPaymentRow(payment)
	res, err := s.db.ExecContext(ctx, `
		UPDATE payments SET end_date = ?, hours = ?, amount = ?, paid_at = ?
		WHERE id = ? AND hours = ?
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
func (s *sqliteStorage) GetPayment(ctx context.Context, ownerID, periodID string) (*domain.Payment, error) {
	var row storage.PaymentRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, owner_id, period_id, start_date, end_date, hours, amount, paid_at
		FROM payments WHERE owner_id = ? AND period_id = ?
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
func (s *sqliteStorage) GetPayments(ctx context.Context, ownerID string) ([]*domain.Payment, error) {
	var rows []storage.PaymentRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, owner_id, period_id, start_date, end_date, hours, amount, paid_at
		FROM payments WHERE owner_id = ? ORDER BY paid_at DESC
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
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pureErr *moderncsqlite.Error
	if errors.As(err, &pureErr) {
		return pureErr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE
	}
	// go-sqlite3 error types need cgo; match its message instead
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
