package persistence

import (
	"context"
	"fmt"

	"github.com/example/managerapp/internal/crypto"
)

// SealedTokenStore encrypts values before delegating to the wrapped store.
type SealedTokenStore struct {
	inner  TokenStore
	sealer crypto.Sealer
}

var _ TokenStore = (*SealedTokenStore)(nil)

// NewSealedTokenStore wraps inner. A nil sealer stores values unchanged.
func NewSealedTokenStore(inner TokenStore, sealer crypto.Sealer) *SealedTokenStore {
	if sealer == nil {
		sealer = crypto.NoopSealer{}
	}
	return &SealedTokenStore{inner: inner, sealer: sealer}
}

func (s *SealedTokenStore) LoadToken(ctx context.Context, key string) (string, error) {
	sealed, err := s.inner.LoadToken(ctx, key)
	if err != nil {
		return "", err
	}
	value, err := s.sealer.Open(sealed)
	if err != nil {
		return "", fmt.Errorf("persistence: open %s: %w", key, err)
	}
	return value, nil
}

func (s *SealedTokenStore) SaveToken(ctx context.Context, key, value string) error {
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		return fmt.Errorf("persistence: seal %s: %w", key, err)
	}
	return s.inner.SaveToken(ctx, key, sealed)
}

func (s *SealedTokenStore) ClearToken(ctx context.Context, key string) error {
	return s.inner.ClearToken(ctx, key)
}
