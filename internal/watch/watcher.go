// Package watch re-aggregates an owner's records whenever they change in storage.
package watch

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"time"

	"github.com/kurihiro0119/worktime-metrics/internal/aggregator"
	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	"github.com/kurihiro0119/worktime-metrics/internal/storage"
)

// DefaultInterval is used when no poll interval is configured
const DefaultInterval = 30 * time.Second

// ChangeFunc receives the fresh summary after each detected change
type ChangeFunc func(summary *domain.MemberSummary)

// Fingerprint identifies the state of a record set within one resolved period.
// Digest is order independent and covers each record's content, so a changed
// category is seen even when updated_at is not bumped.
type Fingerprint struct {
	PeriodID      string
	Count         int
	DurationMs    int64
	LastUpdatedMs int64
	Digest        uint64
}

// FingerprintOf computes the fingerprint of records resolved for p
func FingerprintOf(p domain.Period, records []*domain.TimeRecord) Fingerprint {
	fp := Fingerprint{PeriodID: p.ID()}
	for _, r := range records {
		if r == nil {
			continue
		}
		fp.Count++
		fp.DurationMs += r.DurationMs
		if ms := r.UpdatedAt.UnixMilli(); ms > fp.LastUpdatedMs {
			fp.LastUpdatedMs = ms
		}
		fp.Digest += recordDigest(r)
	}
	return fp
}

func recordDigest(r *domain.TimeRecord) uint64 {
	h := fnv.New64a()
	var start int64
	if r.HasStart() {
		start = r.StartTime.UnixMilli()
	}
	fmt.Fprintf(h, "%s|%s|%s|%d|%d", r.ID, r.Category, r.Source, start, r.DurationMs)
	return h.Sum64()
}

// Watcher polls one owner's records for a period query
type Watcher struct {
	store    storage.Storage
	agg      aggregator.Aggregator
	ownerID  string
	query    aggregator.PeriodQuery
	interval time.Duration
	onChange ChangeFunc
	logger   *slog.Logger

	last    Fingerprint
	started bool
}

// Option configures a Watcher
type Option func(*Watcher)

// WithInterval sets the poll interval
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a watcher. onChange is invoked on the first poll and after every change.
func New(store storage.Storage, agg aggregator.Aggregator, ownerID string, q aggregator.PeriodQuery, onChange ChangeFunc, opts ...Option) *Watcher {
	w := &Watcher{
		store:    store,
		agg:      agg,
		ownerID:  ownerID,
		query:    q,
		interval: DefaultInterval,
		onChange: onChange,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled. Poll errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	if _, err := w.Poll(ctx); err != nil {
		w.logger.WarnContext(ctx, "watch poll failed", "owner_id", w.ownerID, "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Poll(ctx); err != nil {
				w.logger.WarnContext(ctx, "watch poll failed", "owner_id", w.ownerID, "error", err)
			}
		}
	}
}

// Poll checks storage once and reports whether onChange fired
func (w *Watcher) Poll(ctx context.Context) (bool, error) {
	p, err := w.agg.ResolvePeriod(w.query)
	if err != nil {
		return false, err
	}
	records, err := w.store.GetRecords(ctx, w.ownerID, p.Start, p.End)
	if err != nil {
		return false, fmt.Errorf("fetching records: %w", err)
	}

	fp := FingerprintOf(p, records)
	if w.started && fp == w.last {
		return false, nil
	}
	w.started = true
	w.last = fp

	summary := &domain.MemberSummary{
		OwnerID: w.ownerID,
		Period:  p,
		Summary: aggregator.Aggregate(records, p, w.agg.Location()),
	}
	if n := summary.Summary.MalformedCount; n > 0 {
		w.logger.WarnContext(ctx, "malformed records excluded from aggregation", "owner_id", w.ownerID, "period", fp.PeriodID, "malformed_count", n)
	}

	w.logger.DebugContext(ctx, "records changed", "owner_id", w.ownerID, "period", fp.PeriodID, "count", fp.Count)
	if w.onChange != nil {
		w.onChange(summary)
	}
	return true, nil
}
