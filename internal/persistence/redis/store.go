// Package redis stores the bearer token in Redis so several console
// processes on one workstation can share a single session.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/example/managerapp/internal/persistence"
)

const defaultKeyPrefix = "managerapp:"

// Store implements persistence.TokenStore on top of a go-redis client.
type Store struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

var _ persistence.TokenStore = (*Store)(nil)

// Option customises a Store.
type Option func(*Store)

// WithKeyPrefix namespaces every key written by the store.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithTTL expires stored values after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// NewClient creates a go-redis client from a URL (e.g. "redis://localhost:6379/0")
// and verifies the connection.
func NewClient(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

// NewStore wraps an existing client.
func NewStore(rdb *goredis.Client, opts ...Option) *Store {
	s := &Store{rdb: rdb, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(key string) string {
	return s.prefix + strings.TrimSpace(key)
}

func (s *Store) LoadToken(ctx context.Context, key string) (string, error) {
	value, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", persistence.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis: get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) SaveToken(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("redis: storage key is required")
	}
	if err := s.rdb.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

func (s *Store) ClearToken(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis: del %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}
