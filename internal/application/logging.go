package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/managerapp/internal/backend"
	"github.com/example/managerapp/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps typed and sentinel errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var (
		authErr    *AuthError
		expiredErr *SessionExpiredError
		vErr       *ValidationError
		opErr      *OperationError
	)
	switch {
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &expiredErr), errors.Is(err, backend.ErrUnauthenticated):
		return "session_expired"
	case errors.As(err, &vErr):
		return "validation"
	case errors.Is(err, ErrNotSignedIn):
		return "not_signed_in"
	case errors.Is(err, backend.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &opErr):
		return "operation"
	}
	return "unexpected"
}
