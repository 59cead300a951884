package http

import (
	"context"

	"github.com/example/managerapp/internal/backend"
)

type contextKey string

const currentUserContextKey contextKey = "current_user"

// ContextWithCurrentUser returns a derived context carrying the signed-in profile.
func ContextWithCurrentUser(ctx context.Context, user backend.User) context.Context {
	return context.WithValue(ctx, currentUserContextKey, user)
}

// CurrentUserFromContext extracts the signed-in profile from context if available.
func CurrentUserFromContext(ctx context.Context) (backend.User, bool) {
	user, ok := ctx.Value(currentUserContextKey).(backend.User)
	return user, ok
}
