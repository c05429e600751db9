package importer

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
)

const sourceManual = "manual"

// document is one exported record. Several spellings exist in the wild.
type document struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	OwnerID     string          `json:"ownerId"`
	StartTime   json.RawMessage `json:"startTime"`
	Timestamp   json.RawMessage `json:"timestamp"`
	EndTime     json.RawMessage `json:"endTime"`
	DurationMs  *float64        `json:"durationMs"`
	Duration    *float64        `json:"duration"`
	HoursWorked *float64        `json:"hoursWorked"`
	Category    string          `json:"category"`
	Type        string          `json:"type"`
}

func (d document) toRecord(now time.Time) (*domain.TimeRecord, bool) {
	rec := &domain.TimeRecord{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		Category:  domain.NormalizeCategory(d.Category),
		Source:    d.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if rec.OwnerID == "" {
		rec.OwnerID = d.UserID
	}

	generated := false
	if rec.ID == "" {
		rec.ID = uuid.New().String()
		generated = true
	}

	start, ok := parseTimestamp(d.StartTime)
	if !ok {
		start, ok = parseTimestamp(d.Timestamp)
	}
	if ok {
		rec.StartTime = start
	}
	if end, ok := parseTimestamp(d.EndTime); ok {
		rec.EndTime = &end
	}

	switch {
	case d.HoursWorked != nil:
		rec.DurationMs = int64(math.Round(*d.HoursWorked * domain.MsPerHour))
		if rec.Source == "" {
			rec.Source = sourceManual
		}
	case d.DurationMs != nil:
		rec.DurationMs = int64(math.Round(*d.DurationMs))
	case d.Duration != nil:
		rec.DurationMs = int64(math.Round(*d.Duration * 1000))
	}

	return rec, generated
}

type firestoreTimestamp struct {
	Seconds         *int64 `json:"seconds"`
	Nanoseconds     int64  `json:"nanoseconds"`
	UnderscoreSecs  *int64 `json:"_seconds"`
	UnderscoreNanos int64  `json:"_nanoseconds"`
}

// parseTimestamp accepts RFC 3339 strings, epoch milliseconds (number or numeric
// string) and {seconds, nanoseconds} objects.
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, false
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, false
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC(), true
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
		return time.Time{}, false
	case '{':
		var ts firestoreTimestamp
		if err := json.Unmarshal(raw, &ts); err != nil {
			return time.Time{}, false
		}
		switch {
		case ts.Seconds != nil:
			return time.Unix(*ts.Seconds, ts.Nanoseconds).UTC(), true
		case ts.UnderscoreSecs != nil:
			return time.Unix(*ts.UnderscoreSecs, ts.UnderscoreNanos).UTC(), true
		}
		return time.Time{}, false
	default:
		var ms float64
		if err := json.Unmarshal(raw, &ms); err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)).UTC(), true
	}
}
