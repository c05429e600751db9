package testutil

import (
	"testing"

	"github.com/kurihiro0119/worktime-metrics/internal/storage"
	"github.com/kurihiro0119/worktime-metrics/internal/storage/sqlite"
)

// NewTestStorage creates an in-memory SQLite storage on the pure-Go driver with the
// schema applied. The storage is closed when the test completes.
func NewTestStorage(t *testing.T) storage.Storage {
	t.Helper()
	store, err := sqlite.NewSQLiteStorageWithDriver(sqlite.DriverPureGo, sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
