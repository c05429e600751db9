package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	"github.com/kurihiro0119/worktime-metrics/internal/testutil"
)

var importNow = testutil.Date(2024, 3, 1, 12, 0)

func TestDecode_JSONArray(t *testing.T) {
	input := `[
		{"id":"r1","userId":"alice","startTime":"2024-01-01T09:00:00Z","durationMs":7200000,"category":"productive","type":"app"},
		{"id":"r2","ownerId":"alice","timestamp":1704099600000,"duration":3600,"category":"Neutral"},
		{"userId":"bob","startTime":{"seconds":1704099600,"nanoseconds":0},"hoursWorked":1.5,"category":"productive"},
		{"id":"r4","userId":"bob","startTime":{"_seconds":1704099600},"endTime":"2024-01-01T10:00:00Z"},
		{"id":"r5","userId":"bob","startTime":"yesterday","durationMs":1000}
	]`

	records, err := Decode(strings.NewReader(input), importNow)
	require.NoError(t, err)
	require.Len(t, records, 5)

	assert.Equal(t, "r1", records[0].ID)
	assert.Equal(t, "alice", records[0].OwnerID)
	assert.Equal(t, testutil.Date(2024, 1, 1, 9, 0), records[0].StartTime)
	assert.Equal(t, int64(7_200_000), records[0].DurationMs)
	assert.Equal(t, "app", records[0].Source)

	assert.Equal(t, testutil.Date(2024, 1, 1, 9, 0), records[1].StartTime)
	assert.Equal(t, int64(3_600_000), records[1].DurationMs)
	assert.Equal(t, domain.CategoryNeutral, records[1].Category)

	assert.NotEmpty(t, records[2].ID)
	assert.Equal(t, int64(5_400_000), records[2].DurationMs)
	assert.Equal(t, "manual", records[2].Source)

	require.NotNil(t, records[3].EndTime)
	assert.Equal(t, domain.CategoryNeutral, records[3].Category)
	assert.Equal(t, time.Hour.Milliseconds(), records[3].EffectiveDurationMs())

	assert.False(t, records[4].HasStart())
}

func TestDecode_NDJSON(t *testing.T) {
	input := `{"id":"a","userId":"alice","startTime":"2024-01-01T09:00:00Z","durationMs":1000}
{"id":"b","userId":"alice","startTime":"1704099600000","durationMs":2000}

`
	records, err := Decode(strings.NewReader(input), importNow)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[1].ID)
	assert.Equal(t, testutil.Date(2024, 1, 1, 9, 0), records[1].StartTime)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"id": `), importNow)
	assert.Error(t, err)

	records, err := Decode(strings.NewReader("  "), importNow)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestImporter_Import(t *testing.T) {
	store := testutil.NewTestStorage(t)
	imp := New(store, WithBatchSize(2), WithClock(func() time.Time { return importNow }))

	input := `{"id":"a","userId":"alice","startTime":"2024-01-01T09:00:00Z","durationMs":1000}
{"id":"b","userId":"alice","startTime":"2024-01-01T10:00:00Z","durationMs":2000}
{"userId":"alice","startTime":"not a time","durationMs":3000}`

	var progress [][2]int
	res, err := imp.Import(context.Background(), strings.NewReader(input), func(saved, total int) {
		progress = append(progress, [2]int{saved, total})
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 1, res.Undated)
	assert.Equal(t, 1, res.Generated)
	assert.Equal(t, [][2]int{{2, 3}, {3, 3}}, progress)

	stored, err := store.GetRecords(context.Background(), "alice",
		testutil.Date(2024, 1, 1, 0, 0), testutil.Date(2024, 1, 2, 0, 0))
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	got, err := store.GetRecord(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.DurationMs)
}
