package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/resource-booker/internal/persistence"
	"github.com/example/resource-booker/internal/persistence/sqlite"
)

// SQLiteHarness provides an entity store backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Storage *sqlite.Storage
	Store   *persistence.Store
	Path    string

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file whose
// snapshots table is created automatically. Callers may optionally invoke
// Close, but the helper also registers a cleanup callback with tb.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "booker.db")
	storage, err := sqlite.Open(context.Background(), "file:"+path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage: storage,
		Store:   persistence.NewStore(storage),
		Path:    path,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
