package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/example/managerapp/internal/persistence/sqlite"
	"github.com/example/managerapp/internal/persistence/sqlite/migration"
)

func runDatabaseMigrations(ctx context.Context, databasePath string, logger *slog.Logger) error {
	return runMigrations(ctx, databasePath, sqlite.MigrationFS(), ".", logger)
}

// runMigrations applies the migrations found in dir of files to the token
// database, logging the schema version before and after.
func runMigrations(ctx context.Context, databasePath string, files fs.FS, dir string, logger *slog.Logger) error {
	logger = logger.With("database_path", databasePath)

	config := migration.DefaultSQLiteConfig(databasePath)
	if err := config.Validate(); err != nil {
		logger.ErrorContext(ctx, "invalid database configuration", "error", err)
		return fmt.Errorf("migration configuration validation failed: %w", err)
	}

	db, err := migration.Open(ctx, config)
	if err != nil {
		logger.ErrorContext(ctx, "failed to open token database", "error", err)
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.ErrorContext(ctx, "failed to close migration database connection", "error", cerr)
		}
	}()

	manager := migration.NewManager(migration.NewFSScanner(files, dir), migration.NewSQLiteExecutor(db), logger)

	before, err := manager.Status(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to scan for pending migrations", "error", err)
		return fmt.Errorf("failed to get pending migrations: %w", err)
	}
	if len(before.PendingMigrations) == 0 {
		logger.InfoContext(ctx, "token database is up to date", "version", before.CurrentVersion)
		return nil
	}
	logger.InfoContext(ctx, "applying migrations", "pending_count", len(before.PendingMigrations), "from_version", before.CurrentVersion)

	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	after, err := manager.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	logger.InfoContext(ctx, "migrations completed", "version", after.CurrentVersion)
	return nil
}
