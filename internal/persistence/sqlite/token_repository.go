package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/managerapp/internal/persistence"
)

var _ persistence.TokenStore = (*Storage)(nil)

// LoadToken retrieves the value stored under key.
func (s *Storage) LoadToken(ctx context.Context, key string) (string, error) {
	normalizedKey := strings.TrimSpace(key)
	if normalizedKey == "" {
		return "", persistence.ErrNotFound
	}

	query := `SELECT value FROM client_storage WHERE storage_key = ?`

	var value string
	if err := s.db.QueryRowContext(ctx, query, normalizedKey).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", persistence.ErrNotFound
		}
		return "", fmt.Errorf("sqlite: load %s: %w", normalizedKey, err)
	}
	return value, nil
}

// SaveToken inserts or replaces the value stored under key.
func (s *Storage) SaveToken(ctx context.Context, key, value string) error {
	normalizedKey := strings.TrimSpace(key)
	if normalizedKey == "" {
		return fmt.Errorf("sqlite: storage key is required")
	}

	query := `
		INSERT INTO client_storage (storage_key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(storage_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, normalizedKey, value, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("sqlite: save %s: %w", normalizedKey, err)
	}
	return nil
}

// ClearToken deletes key. Missing keys are ignored.
func (s *Storage) ClearToken(ctx context.Context, key string) error {
	normalizedKey := strings.TrimSpace(key)
	if normalizedKey == "" {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM client_storage WHERE storage_key = ?`, normalizedKey); err != nil {
		return fmt.Errorf("sqlite: clear %s: %w", normalizedKey, err)
	}
	return nil
}
