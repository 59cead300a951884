package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/managerapp/internal/persistence"
	"github.com/example/managerapp/internal/persistence/sqlite"
)

// SQLiteHarness provides a migrated token store backed by a temporary SQLite
// file for integration-style tests.
type SQLiteHarness struct {
	Tokens persistence.TokenStore
	Path   string

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. The harness registers its own cleanup with tb.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "managerapp.db")

	storage, err := sqlite.Open(context.Background(), path, nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Tokens: storage,
		Path:   path,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
