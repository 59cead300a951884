package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Manager orchestrates the migration process.
type Manager struct {
	scanner  Scanner
	executor Executor
	logger   *slog.Logger
}

// NewManager creates a Manager. A nil logger falls back to slog.Default.
func NewManager(scanner Scanner, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		logger:   logger.With("component", "migration"),
	}
}

// RunMigrations executes all pending migrations in sequential order
func (m *Manager) RunMigrations(ctx context.Context) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}

	if len(status.PendingMigrations) == 0 {
		m.logger.DebugContext(ctx, "schema up to date", "version", status.CurrentVersion)
		return nil
	}

	for i, migration := range status.PendingMigrations {
		start := time.Now()
		logger := m.logger.With(
			"version", migration.Version,
			"description", migration.Description,
			"position", fmt.Sprintf("%d/%d", i+1, len(status.PendingMigrations)),
		)

		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath,
				"execute migration", fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}

		elapsed := time.Since(start)
		if err := m.executor.RecordMigration(ctx, migration, elapsed); err != nil {
			logger.ErrorContext(ctx, "failed to record migration", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath,
				"record migration", fmt.Errorf("failed to record migration: %w", err))
		}
		logger.InfoContext(ctx, "migration applied", "duration", elapsed)
	}
	return nil
}

// Status reports applied and pending migrations. Applied migrations whose
// checksum no longer matches the source are rejected.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}

	available, err := m.scanner.ScanMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	appliedByVersion := make(map[string]AppliedMigration, len(applied))
	for _, entry := range applied {
		appliedByVersion[entry.Version] = entry
	}

	status := &Status{AppliedMigrations: applied}
	for _, migration := range available {
		entry, ok := appliedByVersion[migration.Version]
		if !ok {
			status.PendingMigrations = append(status.PendingMigrations, migration)
			continue
		}
		if entry.Checksum != "" && entry.Checksum != migration.Checksum {
			return nil, NewMigrationError(migration.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}
	return status, nil
}
