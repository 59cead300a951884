package application

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/example/managerapp/internal/backend"
	"github.com/example/managerapp/internal/navigation"
	"github.com/example/managerapp/internal/persistence"
	"github.com/example/managerapp/internal/testfixtures"
)

const (
	testUsername = "ana@clinic.test"
	testPassword = "s3cret"
)

// consoleHarness wires a session, REST client and navigator against the fake backend.
type consoleHarness struct {
	fake      *testfixtures.FakeBackend
	clock     *clockwork.FakeClock
	store     *persistence.MemoryTokenStore
	client    *backend.API
	session   *SessionManager
	navigator *navigation.Navigator
	notes     *NotificationLog
	user      backend.User
}

func newConsoleHarness(t *testing.T) *consoleHarness {
	t.Helper()

	clock := testfixtures.NewClock(time.Time{})
	fake := testfixtures.NewFakeBackend(t, clock)
	user := fake.AddAccount(testUsername, testPassword, backend.User{Name: "Ana Souza", Roles: []string{"PROFESSIONAL"}})

	cfg := fake.ClientConfig()
	cfg.Logger = discardLogger()
	client, err := backend.New(cfg)
	require.NoError(t, err)

	store := persistence.NewMemoryTokenStore()
	session := NewSessionManagerWithLogger(store, client, clock, discardLogger())
	client.SetTokenSource(session)

	navigator := navigation.NewNavigator(discardLogger())
	InstallInterceptor(client, session, navigator)

	return &consoleHarness{
		fake:      fake,
		clock:     clock,
		store:     store,
		client:    client,
		session:   session,
		navigator: navigator,
		notes:     NewNotificationLog(0),
		user:      user,
	}
}

func (h *consoleHarness) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, h.session.SignIn(context.Background(), testUsername, testPassword))
	h.navigator.Navigate("/appointments")
}

func (h *consoleHarness) screenOptions() ScreenOptions {
	return ScreenOptions{
		Notifier: h.notes,
		Logger:   discardLogger(),
		Location: time.UTC,
		Clock:    h.clock,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubSessionBackend answers the session manager without a network.
type stubSessionBackend struct {
	mu         sync.Mutex
	token      string
	grantErr   error
	user       backend.User
	profileErr error
	grants     int
	profiles   int
}

func (s *stubSessionBackend) PasswordGrant(context.Context, string, string) (backend.TokenResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants++
	if s.grantErr != nil {
		return backend.TokenResponse{}, s.grantErr
	}
	return backend.TokenResponse{AccessToken: s.token}, nil
}

func (s *stubSessionBackend) CurrentUser(context.Context) (backend.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles++
	if s.profileErr != nil {
		return backend.User{}, s.profileErr
	}
	return s.user, nil
}

// failingStore rejects every write.
type failingStore struct {
	persistence.TokenStore
	err error
}

func (s failingStore) SaveToken(context.Context, string, string) error { return s.err }
func (s failingStore) ClearToken(context.Context, string) error        { return s.err }

func backendClient(name string) backend.Client {
	return backend.Client{Name: name, Email: strings.ToLower(name) + "@example.com"}
}
