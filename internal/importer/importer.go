// Package importer loads time records from document-store exports.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/worktime-metrics/internal/errors"
	"github.com/kurihiro0119/worktime-metrics/internal/storage"
)

const defaultBatchSize = 500

// ProgressCallback reports how many records have been saved so far
type ProgressCallback func(saved, total int)

// Result summarizes an import run
type Result struct {
	Imported  int `json:"imported"`
	Undated   int `json:"undated"`
	Generated int `json:"generated_ids"`
}

// Importer decodes exported records and saves them in batches
type Importer struct {
	store     storage.Storage
	batchSize int
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures an Importer
type Option func(*Importer)

// WithBatchSize sets how many records go into each SaveRecords call
func WithBatchSize(n int) Option {
	return func(i *Importer) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// WithClock overrides the clock used for created/updated stamps
func WithClock(now func() time.Time) Option {
	return func(i *Importer) { i.now = now }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(i *Importer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// New creates an importer writing to store
func New(store storage.Storage, opts ...Option) *Importer {
	i := &Importer{
		store:     store,
		batchSize: defaultBatchSize,
		now:       time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import reads a JSON array or newline-delimited JSON stream from r and saves every
// record. onProgress may be nil.
func (i *Importer) Import(ctx context.Context, r io.Reader, onProgress ProgressCallback) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	docs, err := decodeDocuments(data)
	if err != nil {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("invalid import document: %v", err))
	}

	now := i.now().UTC().Truncate(time.Millisecond)
	result := &Result{}
	records := make([]*domain.TimeRecord, 0, len(docs))
	for _, doc := range docs {
		rec, generated := doc.toRecord(now)
		if generated {
			result.Generated++
		}
		if !rec.HasStart() {
			result.Undated++
		}
		records = append(records, rec)
	}

	for start := 0; start < len(records); start += i.batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		end := min(start+i.batchSize, len(records))
		if err := i.store.SaveRecords(ctx, records[start:end]); err != nil {
			return result, fmt.Errorf("saving records %d-%d: %w", start, end, err)
		}
		result.Imported = end
		if onProgress != nil {
			onProgress(end, len(records))
		}
	}

	if result.Undated > 0 {
		i.logger.WarnContext(ctx, "imported records without a usable start time", "count", result.Undated)
	}
	i.logger.InfoContext(ctx, "import finished", "imported", result.Imported, "generated_ids", result.Generated)
	return result, nil
}

// Decode parses an export without saving it
func Decode(r io.Reader, now time.Time) ([]*domain.TimeRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	docs, err := decodeDocuments(data)
	if err != nil {
		return nil, err
	}
	records := make([]*domain.TimeRecord, 0, len(docs))
	for _, doc := range docs {
		rec, _ := doc.toRecord(now)
		records = append(records, rec)
	}
	return records, nil
}

func decodeDocuments(data []byte) ([]document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var docs []document
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}

	var docs []document
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var doc document
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("record %d: %w", len(docs)+1, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
