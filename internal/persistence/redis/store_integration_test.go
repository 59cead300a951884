//go:build integration

package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/example/managerapp/internal/persistence"
)

var (
	testRedisURL   string
	redisContainer testcontainers.Container
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	redisContainer, err = tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
		os.Exit(1)
	}
	testRedisURL = "redis://" + endpoint

	code := m.Run()
	if err := redisContainer.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to terminate redis container: %v\n", err)
	}
	os.Exit(code)
}

func setupStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	client, err := NewClient(context.Background(), testRedisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.FlushAll(context.Background()).Err())

	return NewStore(client, opts...)
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	_, err := store.LoadToken(ctx, persistence.TokenKey)
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	require.NoError(t, store.SaveToken(ctx, persistence.TokenKey, "token"))
	value, err := store.LoadToken(ctx, persistence.TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "token", value)

	require.NoError(t, store.ClearToken(ctx, persistence.TokenKey))
	require.NoError(t, store.ClearToken(ctx, persistence.TokenKey))
	_, err = store.LoadToken(ctx, persistence.TokenKey)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestStoreKeyPrefixIsolation(t *testing.T) {
	ctx := context.Background()
	first := setupStore(t, WithKeyPrefix("a:"))
	second := NewStore(first.rdb, WithKeyPrefix("b:"))

	require.NoError(t, first.SaveToken(ctx, persistence.TokenKey, "first"))
	_, err := second.LoadToken(ctx, persistence.TokenKey)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestStoreTTL(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t, WithTTL(time.Minute))

	require.NoError(t, store.SaveToken(ctx, persistence.TokenKey, "token"))
	ttl, err := store.rdb.TTL(ctx, store.key(persistence.TokenKey)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}
