package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/example/managerapp/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationFS returns the embedded schema migrations rooted at their directory.
func MigrationFS() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Storage is the SQLite-backed client storage used to persist the bearer token.
type Storage struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path. Use
// migration.InMemoryPath for a private in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Storage, error) {
	config := migration.DefaultSQLiteConfig(path)
	if path == migration.InMemoryPath {
		config = migration.InMemoryTestSQLiteConfig()
	}
	return OpenWithConfig(ctx, config, logger)
}

// OpenWithConfig opens the database with explicit connection settings.
func OpenWithConfig(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := migration.Open(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return &Storage{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewFSScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.db),
		s.logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	return nil
}

// Ping tests the database connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
