package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/managerapp/internal/backend"
	"github.com/example/managerapp/internal/logging"
	"github.com/example/managerapp/internal/navigation"
)

// SessionGate is what RequireSession needs from the console session.
type SessionGate interface {
	Decide(target string) navigation.Decision
}

// ViewTracker records which view the user is on.
type ViewTracker interface {
	Navigate(location string)
}

// ProfileSource yields the signed-in profile, if loaded.
type ProfileSource interface {
	CurrentUser() *backend.User
}

// RequireSession applies the route guard: requests without a locally valid
// session are redirected to the sign-in view with the target as return
// location. Allowed GET requests update the tracked view.
func RequireSession(gate SessionGate, views ViewTracker, profiles ProfileSource, logger *slog.Logger) func(http.Handler) http.Handler {
	base := defaultLogger(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			target := r.URL.RequestURI()
			decision := gate.Decide(target)
			if !decision.Allow {
				handlerLogger(r.Context(), base, "RequireSession", "", "target", target).
					InfoContext(r.Context(), "session not valid, redirecting to sign-in")
				http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
				return
			}

			if views != nil && r.Method == http.MethodGet {
				views.Navigate(target)
			}

			ctx := r.Context()
			if profiles != nil {
				if user := profiles.CurrentUser(); user != nil {
					ctx = ContextWithCurrentUser(ctx, *user)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// RequestLogger attaches a request-scoped logger and correlation id. An
// incoming X-Request-ID is reused; otherwise a new one is generated. The id
// is echoed on the response and forwarded on backend calls.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(backend.RequestIDHeader))
			if id == "" {
				id = uuid.NewString()
			}
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			ctx = logging.WithRequestID(ctx, id)
			w.Header().Set(backend.RequestIDHeader, id)

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(recorder, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", recorder.status, "duration", time.Since(start))
		})
	}
}
