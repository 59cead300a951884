package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/managerapp/internal/persistence"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	storage, err := Open(context.Background(), filepath.Join(t.TempDir(), "managerapp.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	require.NoError(t, storage.Migrate(context.Background()))
	return storage
}

func TestTokenRepository(t *testing.T) {
	t.Parallel()

	t.Run("round trips and replaces values", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		storage := newTestStorage(t)

		_, err := storage.LoadToken(ctx, persistence.TokenKey)
		assert.ErrorIs(t, err, persistence.ErrNotFound)

		require.NoError(t, storage.SaveToken(ctx, persistence.TokenKey, "first"))
		require.NoError(t, storage.SaveToken(ctx, persistence.TokenKey, "second"))

		value, err := storage.LoadToken(ctx, persistence.TokenKey)
		require.NoError(t, err)
		assert.Equal(t, "second", value)
	})

	t.Run("clear removes the key and tolerates repeats", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		storage := newTestStorage(t)

		require.NoError(t, storage.SaveToken(ctx, persistence.TokenKey, "token"))
		require.NoError(t, storage.ClearToken(ctx, persistence.TokenKey))
		require.NoError(t, storage.ClearToken(ctx, persistence.TokenKey))

		_, err := storage.LoadToken(ctx, persistence.TokenKey)
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("values survive reopening the file", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "managerapp.db")

		first, err := Open(ctx, path, nil)
		require.NoError(t, err)
		require.NoError(t, first.Migrate(ctx))
		require.NoError(t, first.SaveToken(ctx, persistence.TokenKey, "persisted"))
		require.NoError(t, first.Close())

		second, err := Open(ctx, path, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = second.Close() })
		require.NoError(t, second.Migrate(ctx))

		value, err := second.LoadToken(ctx, persistence.TokenKey)
		require.NoError(t, err)
		assert.Equal(t, "persisted", value)
	})

	t.Run("blank keys", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		storage := newTestStorage(t)

		assert.Error(t, storage.SaveToken(ctx, "  ", "x"))
		_, err := storage.LoadToken(ctx, "")
		assert.ErrorIs(t, err, persistence.ErrNotFound)
		assert.NoError(t, storage.ClearToken(ctx, ""))
	})
}
