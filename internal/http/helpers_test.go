package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/example/managerapp/internal/application"
	"github.com/example/managerapp/internal/backend"
	"github.com/example/managerapp/internal/navigation"
	"github.com/example/managerapp/internal/persistence"
	"github.com/example/managerapp/internal/testfixtures"
)

const (
	testUsername = "ana@clinic.test"
	testPassword = "s3cret"
)

// console is the full console wired against the fake backend and served
// through the router.
type console struct {
	fake      *testfixtures.FakeBackend
	clock     *clockwork.FakeClock
	session   *application.SessionManager
	navigator *navigation.Navigator
	notes     *application.NotificationLog
	user      backend.User
	handler   http.Handler
}

func newConsole(t *testing.T) *console {
	t.Helper()

	clock := testfixtures.NewClock(time.Time{})
	fake := testfixtures.NewFakeBackend(t, clock)
	user := fake.AddAccount(testUsername, testPassword, backend.User{Name: "Ana Souza", Roles: []string{"PROFESSIONAL"}})

	logger := discardLogger()
	cfg := fake.ClientConfig()
	cfg.Logger = logger
	client, err := backend.New(cfg)
	require.NoError(t, err)

	session := application.NewSessionManagerWithLogger(persistence.NewMemoryTokenStore(), client, clock, logger)
	client.SetTokenSource(session)
	navigator := navigation.NewNavigator(logger)
	application.InstallInterceptor(client, session, navigator)

	notes := application.NewNotificationLog(0)
	opts := application.ScreenOptions{Notifier: notes, Logger: logger, Location: time.UTC, Clock: clock}
	appointments := application.NewAppointmentsScreen(client, opts)
	picker := application.NewSlotPicker(client, application.SlotPickerOptions{ScreenOptions: opts, CacheTTL: time.Minute})
	appointments.OnMutated(picker.Invalidate)

	guard := navigation.NewGuard(session)
	handler := NewRouter(RouterConfig{
		Session:        NewSessionHandler(session, navigator, navigation.DefaultSkewSeconds, logger),
		Appointments:   NewAppointmentsHandler(appointments, logger),
		Clients:        NewClientsHandler(application.NewClientsScreen(client, opts), logger),
		WorkingPeriods: NewWorkingPeriodsHandler(application.NewWorkingPeriodsScreen(client, opts), logger),
		Availability:   NewAvailabilityHandler(picker, logger),
		Notifications:  NewNotificationsHandler(notes, logger),
		Guard:          RequireSession(guard, navigator, session, logger),
		Middleware:     []func(http.Handler) http.Handler{RequestLogger(logger)},
	})

	return &console{
		fake:      fake,
		clock:     clock,
		session:   session,
		navigator: navigator,
		notes:     notes,
		user:      user,
		handler:   handler,
	}
}

func (c *console) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(payload))
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func (c *console) signIn(t *testing.T, next string) *httptest.ResponseRecorder {
	t.Helper()

	form := url.Values{"username": {testUsername}, "password": {testPassword}}
	if next != "" {
		form.Set("next", next)
	}
	req := httptest.NewRequest(http.MethodPost, navigation.SignInPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strconv64(id int64) string {
	return strconv.FormatInt(id, 10)
}
