package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kurihiro0119/worktime-metrics/internal/aggregator"
	"github.com/kurihiro0119/worktime-metrics/internal/config"
	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	"github.com/kurihiro0119/worktime-metrics/internal/export"
	"github.com/kurihiro0119/worktime-metrics/internal/payroll"
	"github.com/kurihiro0119/worktime-metrics/internal/storage"
	"github.com/kurihiro0119/worktime-metrics/internal/storage/postgres"
	"github.com/kurihiro0119/worktime-metrics/internal/storage/sqlite"
	"github.com/kurihiro0119/worktime-metrics/pkg/client"
)

// periodArgs are the raw reporting flags shared by every command
type periodArgs struct {
	Period string
	Start  string
	End    string
	Days   int
	Rate   *float64
}

// backend answers CLI commands either from local storage or a remote API server
type backend interface {
	Members(ctx context.Context) ([]*domain.Member, error)
	AddMember(ctx context.Context, m *domain.Member) (*domain.Member, error)
	AddRecord(ctx context.Context, member string, start time.Time, hours float64, category string) (*domain.TimeRecord, error)
	SetHours(ctx context.Context, recordID string, hours float64) (*domain.TimeRecord, error)
	Summary(ctx context.Context, member string, pa periodArgs) (*domain.MemberSummary, error)
	Daily(ctx context.Context, member string, pa periodArgs) (*domain.DailyReport, error)
	Payroll(ctx context.Context, member string, pa periodArgs) (*payroll.Line, error)
	PayrollAll(ctx context.Context, pa periodArgs) ([]*payroll.Line, error)
	MarkPaid(ctx context.Context, member string, pa periodArgs) (*domain.Payment, error)
	ExportCSV(ctx context.Context, pa periodArgs, w io.Writer) error
	Close() error
}

func openStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageType {
	case "postgres":
		return postgres.NewPostgresStorage(cfg.PostgresURL)
	default:
		return sqlite.NewSQLiteStorageWithDriver(cfg.SQLiteDriver, cfg.SQLitePath)
	}
}

type localBackend struct {
	store storage.Storage
	agg   aggregator.Aggregator
	calc  *payroll.Calculator
}

func newLocalBackend(cfg *config.Config, logger *slog.Logger) (*localBackend, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	store, err := openStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	agg := aggregator.NewAggregator(store, aggregator.WithLocation(loc), aggregator.WithLogger(logger))
	return &localBackend{
		store: store,
		agg:   agg,
		calc:  payroll.NewCalculator(store, agg, payroll.WithCalculatorLogger(logger)),
	}, nil
}

func (b *localBackend) query(pa periodArgs) (aggregator.PeriodQuery, error) {
	return aggregator.ParsePeriodQuery(pa.Period, pa.Start, pa.End, pa.Days, b.agg.Location())
}

func (b *localBackend) Members(ctx context.Context) ([]*domain.Member, error) {
	return b.store.GetMembers(ctx)
}

func (b *localBackend) AddMember(ctx context.Context, m *domain.Member) (*domain.Member, error) {
	now := time.Now().UTC()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt, m.UpdatedAt = now, now
	if err := b.store.SaveMember(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (b *localBackend) AddRecord(ctx context.Context, member string, start time.Time, hours float64, category string) (*domain.TimeRecord, error) {
	now := time.Now().UTC()
	r := &domain.TimeRecord{
		ID:         uuid.New().String(),
		OwnerID:    member,
		StartTime:  start.UTC(),
		DurationMs: int64(math.Round(hours * domain.MsPerHour)),
		Category:   domain.NormalizeCategory(category),
		Source:     "manual",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := b.store.SaveRecord(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (b *localBackend) SetHours(ctx context.Context, recordID string, hours float64) (*domain.TimeRecord, error) {
	if err := b.store.UpdateRecordDuration(ctx, recordID, int64(math.Round(hours*domain.MsPerHour))); err != nil {
		return nil, err
	}
	return b.store.GetRecord(ctx, recordID)
}

func (b *localBackend) Summary(ctx context.Context, member string, pa periodArgs) (*domain.MemberSummary, error) {
	q, err := b.query(pa)
	if err != nil {
		return nil, err
	}
	return b.agg.Summary(ctx, member, q)
}

func (b *localBackend) Daily(ctx context.Context, member string, pa periodArgs) (*domain.DailyReport, error) {
	q, err := b.query(pa)
	if err != nil {
		return nil, err
	}
	return b.agg.Daily(ctx, member, q)
}

func (b *localBackend) Payroll(ctx context.Context, member string, pa periodArgs) (*payroll.Line, error) {
	q, err := b.query(pa)
	if err != nil {
		return nil, err
	}
	return b.calc.ForMember(ctx, member, q, pa.Rate)
}

func (b *localBackend) PayrollAll(ctx context.Context, pa periodArgs) ([]*payroll.Line, error) {
	q, err := b.query(pa)
	if err != nil {
		return nil, err
	}
	return b.calc.ForAll(ctx, q)
}

func (b *localBackend) MarkPaid(ctx context.Context, member string, pa periodArgs) (*domain.Payment, error) {
	q, err := b.query(pa)
	if err != nil {
		return nil, err
	}
	return b.calc.MarkPaid(ctx, member, q, pa.Rate)
}

func (b *localBackend) ExportCSV(ctx context.Context, pa periodArgs, w io.Writer) error {
	lines, err := b.PayrollAll(ctx, pa)
	if err != nil {
		return err
	}
	return export.WritePayrollCSV(w, lines)
}

func (b *localBackend) Close() error {
	return b.store.Close()
}

type remoteBackend struct {
	client *client.Client
}

func newRemoteBackend(cfg *config.Config) *remoteBackend {
	return &remoteBackend{client: client.NewClient(cfg.APIEndpoint, client.WithToken(cfg.APIToken))}
}

func (pa periodArgs) clientQuery() client.Query {
	return client.Query{Period: pa.Period, Start: pa.Start, End: pa.End, Days: pa.Days, Rate: pa.Rate}
}

func (b *remoteBackend) Members(ctx context.Context) ([]*domain.Member, error) {
	return b.client.GetMembers(ctx)
}

func (b *remoteBackend) AddMember(ctx context.Context, m *domain.Member) (*domain.Member, error) {
	return b.client.CreateMember(ctx, m)
}

func (b *remoteBackend) AddRecord(ctx context.Context, member string, start time.Time, hours float64, category string) (*domain.TimeRecord, error) {
	return b.client.AddRecord(ctx, member, start, 0, &hours, category)
}

func (b *remoteBackend) SetHours(ctx context.Context, recordID string, hours float64) (*domain.TimeRecord, error) {
	return b.client.SetRecordHours(ctx, recordID, hours)
}

func (b *remoteBackend) Summary(ctx context.Context, member string, pa periodArgs) (*domain.MemberSummary, error) {
	return b.client.GetSummary(ctx, member, pa.clientQuery())
}

func (b *remoteBackend) Daily(ctx context.Context, member string, pa periodArgs) (*domain.DailyReport, error) {
	return b.client.GetDaily(ctx, member, pa.clientQuery())
}

func (b *remoteBackend) Payroll(ctx context.Context, member string, pa periodArgs) (*payroll.Line, error) {
	return b.client.GetPayroll(ctx, member, pa.clientQuery())
}

func (b *remoteBackend) PayrollAll(ctx context.Context, pa periodArgs) ([]*payroll.Line, error) {
	return b.client.GetAllPayroll(ctx, pa.clientQuery())
}

func (b *remoteBackend) MarkPaid(ctx context.Context, member string, pa periodArgs) (*domain.Payment, error) {
	return b.client.MarkPaid(ctx, member, pa.clientQuery())
}

func (b *remoteBackend) ExportCSV(ctx context.Context, pa periodArgs, w io.Writer) error {
	return b.client.ExportPayrollCSV(ctx, pa.clientQuery(), w)
}

func (b *remoteBackend) Close() error {
	return nil
}
