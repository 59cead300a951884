package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/example/managerapp/internal/backend"
	"github.com/example/managerapp/internal/metrics"
	"github.com/example/managerapp/internal/persistence"
)

// SessionBackend is the part of the REST client the session manager needs.
type SessionBackend interface {
	PasswordGrant(ctx context.Context, username, password string) (backend.TokenResponse, error)
	CurrentUser(ctx context.Context) (backend.User, error)
}

// Claims is the decoded token payload the console relies on.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// HasExpiry reports whether the token carried an exp claim.
func (c Claims) HasExpiry() bool {
	return !c.ExpiresAt.IsZero()
}

// SessionManager is the single owner of the bearer token. It is the only
// writer of the token store and every other component reads the token
// through Token.
type SessionManager struct {
	store      persistence.TokenStore
	backend    SessionBackend
	translator *Translator
	clock      clockwork.Clock
	logger     *slog.Logger
	parser     *jwt.Parser

	mu    sync.RWMutex
	token string
	user  *backend.User
}

// NewSessionManager constructs a SessionManager with the provided dependencies.
func NewSessionManager(store persistence.TokenStore, api SessionBackend, clock clockwork.Clock) *SessionManager {
	return NewSessionManagerWithLogger(store, api, clock, nil)
}

// NewSessionManagerWithLogger constructs a SessionManager with a specified logger.
func NewSessionManagerWithLogger(store persistence.TokenStore, api SessionBackend, clock clockwork.Clock, logger *slog.Logger) *SessionManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionManager{
		store:      store,
		backend:    api,
		translator: DefaultTranslator(),
		clock:      clock,
		logger:     defaultLogger(logger),
		parser:     jwt.NewParser(),
	}
}

func (m *SessionManager) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, m.logger, "SessionManager", operation, attrs...)
}

// Initialize restores the persisted session. An absent or undecodable token
// leaves the session unauthenticated. A decodable token is kept even when the
// profile fetch fails; CurrentUser then stays nil.
func (m *SessionManager) Initialize(ctx context.Context) {
	logger := m.loggerWith(ctx, "Initialize")

	token, err := m.store.LoadToken(ctx, persistence.TokenKey)
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			logger.WarnContext(ctx, "failed to read persisted token", "error", err)
		}
		m.reset()
		return
	}

	if _, err := m.decode(token); err != nil {
		logger.InfoContext(ctx, "persisted token is not decodable", "error", err)
		m.reset()
		return
	}

	m.mu.Lock()
	m.token = token
	m.user = nil
	m.mu.Unlock()

	if err := m.refreshProfile(ctx, token); err != nil {
		logger.WarnContext(ctx, "GET /users/me failed", "error", err, "error_kind", ErrorKind(err))
		return
	}
	logger.InfoContext(ctx, "session restored")
}

// SignIn exchanges credentials for a token, persists it and loads the
// profile before returning. A rejected credential yields *AuthError and
// leaves the session untouched.
func (m *SessionManager) SignIn(ctx context.Context, identifier, secret string) (err error) {
	identifier = strings.TrimSpace(identifier)
	logger := m.loggerWith(ctx, "SignIn", "identifier", identifier)
	defer func() {
		if err != nil {
			metrics.SignInsTotal.WithLabelValues(ErrorKind(err)).Inc()
			logger.ErrorContext(ctx, "sign-in failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		metrics.SignInsTotal.WithLabelValues("ok").Inc()
		logger.InfoContext(ctx, "sign-in succeeded")
	}()

	var grant backend.TokenResponse
	grant, err = m.backend.PasswordGrant(ctx, identifier, secret)
	if err != nil {
		err = m.classifyGrantError(err)
		return
	}

	if _, decodeErr := m.decode(grant.AccessToken); decodeErr != nil {
		err = &OperationError{Op: "sign-in", RawMessage: decodeErr.Error(), Message: UnexpectedErrorMessage, Err: decodeErr}
		return
	}

	if saveErr := m.store.SaveToken(ctx, persistence.TokenKey, grant.AccessToken); saveErr != nil {
		err = &OperationError{Op: "sign-in", RawMessage: saveErr.Error(), Message: UnexpectedErrorMessage, Err: saveErr}
		return
	}

	m.mu.Lock()
	m.token = grant.AccessToken
	m.user = nil
	m.mu.Unlock()

	err = m.refreshProfile(ctx, grant.AccessToken)
	return
}

func (m *SessionManager) classifyGrantError(err error) error {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= http.StatusBadRequest && apiErr.Status < http.StatusInternalServerError {
		return &AuthError{Status: apiErr.Status, Message: apiErr.Message, Err: err}
	}
	return m.translator.Classify("sign-in", err)
}

// refreshProfile fetches the profile and applies it only if token is still current.
func (m *SessionManager) refreshProfile(ctx context.Context, token string) error {
	user, err := m.backend.CurrentUser(ctx)
	if err != nil {
		return m.translator.Classify("load profile", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != token {
		return nil
	}
	m.user = &user
	return nil
}

// SignOut clears the persisted token and the in-memory session. It never fails.
func (m *SessionManager) SignOut(ctx context.Context) {
	m.clear(ctx, "SignOut")
}

// HandleUnauthenticated clears the session after the backend rejected the token.
func (m *SessionManager) HandleUnauthenticated(ctx context.Context) {
	m.clear(ctx, "HandleUnauthenticated")
}

func (m *SessionManager) clear(ctx context.Context, operation string) {
	logger := m.loggerWith(ctx, operation)
	if err := m.store.ClearToken(ctx, persistence.TokenKey); err != nil {
		logger.WarnContext(ctx, "failed to clear persisted token", "error", err)
	}
	m.reset()
	logger.InfoContext(ctx, "session cleared")
}

func (m *SessionManager) reset() {
	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.mu.Unlock()
}

// IsValid reports whether the token is decodable, carries an expiry and the
// current time is strictly before expiry minus skewSeconds. Claims are
// decoded afresh on every call.
func (m *SessionManager) IsValid(skewSeconds int) bool {
	claims, ok := m.Claims()
	if !ok || !claims.HasExpiry() {
		return false
	}
	deadline := claims.ExpiresAt.Add(-time.Duration(skewSeconds) * time.Second)
	return m.clock.Now().Before(deadline)
}

// Token returns the raw bearer token, or "" when signed out.
func (m *SessionManager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Claims decodes the current token.
func (m *SessionManager) Claims() (Claims, bool) {
	token := m.Token()
	if token == "" {
		return Claims{}, false
	}
	claims, err := m.decode(token)
	if err != nil {
		return Claims{}, false
	}
	return claims, true
}

// CurrentUser returns the loaded profile, or nil.
func (m *SessionManager) CurrentUser() *backend.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	user := *m.user
	return &user
}

// Authenticated reports whether a decodable token is held, regardless of expiry.
func (m *SessionManager) Authenticated() bool {
	_, ok := m.Claims()
	return ok
}

func (m *SessionManager) decode(token string) (Claims, error) {
	var registered jwt.RegisteredClaims
	if _, _, err := m.parser.ParseUnverified(token, &registered); err != nil {
		return Claims{}, fmt.Errorf("decode token: %w", err)
	}
	claims := Claims{Subject: registered.Subject}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	return claims, nil
}
