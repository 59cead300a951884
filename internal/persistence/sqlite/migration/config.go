package migration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// InMemoryPath selects a private in-memory database.
const InMemoryPath = ":memory:"

// SQLiteConfig holds SQLite-specific database configuration
type SQLiteConfig struct {
	// Path is the database file path or InMemoryPath
	Path string

	// BusyTimeout sets how long to wait for database locks
	BusyTimeout time.Duration

	// JournalMode sets the SQLite journal mode (WAL, DELETE, TRUNCATE, etc.)
	JournalMode string

	// Synchronous sets the synchronous mode (FULL, NORMAL, OFF)
	Synchronous string

	// MaxOpenConns sets the maximum number of open connections
	MaxOpenConns int
}

// DefaultSQLiteConfig returns settings suited to a single console process
// sharing its token file with sibling processes.
func DefaultSQLiteConfig(databasePath string) SQLiteConfig {
	return SQLiteConfig{
		Path:         databasePath,
		BusyTimeout:  5 * time.Second,
		JournalMode:  "WAL",
		Synchronous:  "NORMAL",
		MaxOpenConns: 4,
	}
}

// InMemoryTestSQLiteConfig returns a configuration for throwaway test databases.
func InMemoryTestSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path:         InMemoryPath,
		BusyTimeout:  time.Second,
		JournalMode:  "MEMORY",
		Synchronous:  "OFF",
		MaxOpenConns: 1,
	}
}

// Validate validates the SQLite configuration
func (c SQLiteConfig) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("BusyTimeout cannot be negative")
	}

	validJournalModes := map[string]bool{"DELETE": true, "TRUNCATE": true, "PERSIST": true, "MEMORY": true, "WAL": true, "OFF": true}
	if c.JournalMode != "" && !validJournalModes[c.JournalMode] {
		return fmt.Errorf("invalid journal mode: %s", c.JournalMode)
	}

	validSyncModes := map[string]bool{"OFF": true, "NORMAL": true, "FULL": true, "EXTRA": true}
	if c.Synchronous != "" && !validSyncModes[c.Synchronous] {
		return fmt.Errorf("invalid synchronous mode: %s", c.Synchronous)
	}

	if c.MaxOpenConns < 0 {
		return fmt.Errorf("MaxOpenConns cannot be negative")
	}
	return nil
}

// Open returns a configured SQLite database connection
func Open(ctx context.Context, config SQLiteConfig) (*sql.DB, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SQLite configuration: %w", err)
	}

	if config.Path != InMemoryPath {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if config.Path == InMemoryPath {
		// each connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}

	if err := configure(ctx, db, config); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure SQLite database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	return db, nil
}

func configure(ctx context.Context, db *sql.DB, config SQLiteConfig) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", config.BusyTimeout.Milliseconds()),
	}
	if config.JournalMode != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = "+config.JournalMode)
	}
	if config.Synchronous != "" {
		pragmas = append(pragmas, "PRAGMA synchronous = "+config.Synchronous)
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return nil
}
