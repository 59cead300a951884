package migration

import (
	"context"
	"time"
)

// Migration represents a database migration with its metadata and SQL content
type Migration struct {
	Version     string // Version identifier (e.g., "001", "002")
	Description string // Human-readable description of the migration
	SQL         string // SQL statements to execute
	FilePath    string // Path of the migration inside its source filesystem
	Checksum    string // SHA-256 of the SQL content
}

// Scanner discovers migrations from a source.
type Scanner interface {
	// ScanMigrations returns every migration ordered by ascending version.
	ScanMigrations() ([]Migration, error)
}

// Executor handles the actual execution of migrations against the database
type Executor interface {
	// ExecuteMigration runs a single migration within a transaction
	ExecuteMigration(ctx context.Context, migration Migration) error

	// InitializeVersionTable creates the schema_migrations table if it doesn't exist
	InitializeVersionTable(ctx context.Context) error

	// RecordMigration records a successful migration in the version tracking table
	RecordMigration(ctx context.Context, migration Migration, executionTime time.Duration) error

	// GetAppliedVersions returns all applied migration versions with timestamps
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}

// Status provides information about the current migration state
type Status struct {
	CurrentVersion    string             // Latest applied migration version
	AppliedMigrations []AppliedMigration // List of applied migrations
	PendingMigrations []Migration        // List of pending migrations
}

// AppliedMigration represents a migration that has been successfully applied
type AppliedMigration struct {
	Version       string        // Migration version
	AppliedAt     time.Time     // When the migration was applied
	ExecutionTime time.Duration // How long the migration took to execute
	Checksum      string        // Checksum of the migration file when applied
}
