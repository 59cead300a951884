package persistence

import "context"

// TokenStore is durable client-side storage for the bearer credential.
//
// Implementations hold opaque string values under namespaced keys. Only the
// session manager writes to it; every other component reads the token through
// the session manager.
type TokenStore interface {
	// LoadToken returns the value stored under key or ErrNotFound.
	LoadToken(ctx context.Context, key string) (string, error)
	// SaveToken stores value under key, replacing any previous value.
	SaveToken(ctx context.Context, key, value string) error
	// ClearToken removes key. Removing an absent key is not an error.
	ClearToken(ctx context.Context, key string) error
}
