package migration

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(context.Background(), InMemoryTestSQLiteConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestManager_RunMigrations(t *testing.T) {
	t.Parallel()

	t.Run("applies pending migrations once", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db := openTestDB(t)
		files := fstest.MapFS{
			"m/001_create.sql": {Data: []byte("CREATE TABLE kv (key TEXT PRIMARY KEY, value TEXT NOT NULL);")},
			"m/002_seed.sql":   {Data: []byte("INSERT INTO kv (key, value) VALUES ('a', 'b');")},
		}
		manager := NewManager(NewFSScanner(files, "m"), NewSQLiteExecutor(db), nil)

		require.NoError(t, manager.RunMigrations(ctx))
		require.NoError(t, manager.RunMigrations(ctx))

		var count int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kv").Scan(&count))
		assert.Equal(t, 1, count, "seed migration must not run twice")

		status, err := manager.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, "002", status.CurrentVersion)
		assert.Empty(t, status.PendingMigrations)
		assert.Len(t, status.AppliedMigrations, 2)
	})

	t.Run("rolls back a failing migration", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db := openTestDB(t)
		files := fstest.MapFS{
			"m/001_broken.sql": {Data: []byte("CREATE TABLE ok (id TEXT); CREATE TABLE broken (;")},
		}
		manager := NewManager(NewFSScanner(files, "m"), NewSQLiteExecutor(db), nil)

		err := manager.RunMigrations(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMigrationFailed))

		var name string
		err = db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'ok'").Scan(&name)
		assert.ErrorIs(t, err, sql.ErrNoRows)

		status, err := manager.Status(ctx)
		require.NoError(t, err)
		assert.Len(t, status.PendingMigrations, 1)
	})

	t.Run("detects edited migrations", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db := openTestDB(t)
		original := fstest.MapFS{"m/001_create.sql": {Data: []byte("CREATE TABLE kv (key TEXT);")}}
		require.NoError(t, NewManager(NewFSScanner(original, "m"), NewSQLiteExecutor(db), nil).RunMigrations(ctx))

		edited := fstest.MapFS{"m/001_create.sql": {Data: []byte("CREATE TABLE kv (key TEXT, value TEXT);")}}
		err := NewManager(NewFSScanner(edited, "m"), NewSQLiteExecutor(db), nil).RunMigrations(ctx)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})
}

func TestSQLiteConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  SQLiteConfig
		wantErr bool
	}{
		{name: "defaults", config: DefaultSQLiteConfig("/tmp/managerapp.db")},
		{name: "in memory", config: InMemoryTestSQLiteConfig()},
		{name: "empty path", config: SQLiteConfig{}, wantErr: true},
		{name: "bad journal mode", config: SQLiteConfig{Path: "x.db", JournalMode: "BOGUS"}, wantErr: true},
		{name: "bad synchronous mode", config: SQLiteConfig{Path: "x.db", Synchronous: "SOMETIMES"}, wantErr: true},
		{name: "negative timeout", config: SQLiteConfig{Path: "x.db", BusyTimeout: -1}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.config.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
