package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/managerapp/internal/application"
	"github.com/example/managerapp/internal/backend"
	"github.com/example/managerapp/internal/config"
	"github.com/example/managerapp/internal/testfixtures"
)

const (
	testUsername = "ana@clinic.test"
	testPassword = "s3cret"
)

type cliHarness struct {
	fake *testfixtures.FakeBackend
	env  map[string]string
	dir  string
	user backend.User
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()

	clock := testfixtures.NewClock(time.Time{})
	fake := testfixtures.NewFakeBackend(t, clock)
	user := fake.AddAccount(testUsername, testPassword, backend.User{Name: "Ana Souza"})
	dir := t.TempDir()

	return &cliHarness{
		fake: fake,
		dir:  dir,
		user: user,
		env: map[string]string{
			config.KeyAPIURL:       fake.URL(),
			config.KeyClientID:     testfixtures.FakeClientID,
			config.KeyClientSecret: testfixtures.FakeClientSecret,
			config.KeyTokenDB:      filepath.Join(dir, "tokens.db"),
			config.KeyLogLevel:     "error",
		},
	}
}

func (h *cliHarness) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(environment{
		stdout: &stdout,
		stderr: &stderr,
		getenv: func(key string) string { return h.env[key] },
		clock:  h.fake.Clock,
	})
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(h.dir, "absent.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCommands_SessionLifecycle(t *testing.T) {
	h := newCLIHarness(t)

	_, _, err := h.run(t, "whoami")
	require.ErrorIs(t, err, errSessionRequired)

	out, _, err := h.run(t, "login", "--username", testUsername, "--password", testPassword)
	require.NoError(t, err)
	var signedIn backend.User
	require.NoError(t, json.Unmarshal([]byte(out), &signedIn))
	assert.Equal(t, h.user.ID, signedIn.ID)

	out, _, err = h.run(t, "whoami")
	require.NoError(t, err, "the session survives across processes through the token store")
	var who whoamiOutput
	require.NoError(t, json.Unmarshal([]byte(out), &who))
	require.NotNil(t, who.User)
	assert.Equal(t, "Ana Souza", who.User.Name)
	assert.Equal(t, "2025-03-10T13:00:00Z", who.ExpiresAt)

	_, _, err = h.run(t, "logout")
	require.NoError(t, err)

	_, _, err = h.run(t, "whoami")
	assert.ErrorIs(t, err, errSessionRequired)
}

func TestCommands_Login(t *testing.T) {
	t.Run("rejected credentials keep the backend message", func(t *testing.T) {
		h := newCLIHarness(t)

		_, _, err := h.run(t, "login", "--username", testUsername, "--password", "wrong")

		var authErr *application.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "Bad credentials", authErr.Error())
	})

	t.Run("password can come from the environment", func(t *testing.T) {
		h := newCLIHarness(t)
		h.env[keyPassword] = testPassword

		_, _, err := h.run(t, "login", "-u", testUsername)

		require.NoError(t, err)
	})

	t.Run("missing configuration is reported before any call", func(t *testing.T) {
		h := newCLIHarness(t)
		delete(h.env, config.KeyClientSecret)

		_, _, err := h.run(t, "login", "-u", testUsername, "-p", testPassword)

		require.Error(t, err)
		assert.Contains(t, err.Error(), config.KeyClientSecret)
		assert.Zero(t, h.fake.Hits("POST /oauth2/token"))
	})
}

func TestCommands_Screens(t *testing.T) {
	h := newCLIHarness(t)
	customer := h.fake.SeedClient(backend.Client{Name: "Bruno Lima", Email: "bruno@example.com"})
	ref := &backend.ClientRef{ID: customer.ID, Name: customer.Name}
	first := h.fake.SeedAppointment(backend.Appointment{Title: "Avaliação", DateTime: testfixtures.ReferenceTime().Add(24 * time.Hour), Client: ref})
	h.fake.SeedAppointment(backend.Appointment{Title: "Retorno", DateTime: testfixtures.ReferenceTime().Add(48 * time.Hour), Client: ref})
	h.fake.SetAvailability("2025-03-12", "2025-03-12T09:00:00Z", "2025-03-12T10:00:00Z")

	_, _, err := h.run(t, "login", "-u", testUsername, "-p", testPassword)
	require.NoError(t, err)

	t.Run("appointments for one day", func(t *testing.T) {
		out, _, err := h.run(t, "appointments", "--day", "2025-03-11")
		require.NoError(t, err)

		var view application.AppointmentsView
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		require.Len(t, view.Items, 1)
		assert.Equal(t, first.ID, view.Items[0].ID)
		assert.Equal(t, "2025-03-11", view.SelectedDay)
	})

	t.Run("cancel prints a notification", func(t *testing.T) {
		_, stderr, err := h.run(t, "appointments", "cancel", "100000")
		require.Error(t, err)
		assert.Contains(t, stderr, "[error] Agendamento não encontrado")

		_, stderr, err = h.run(t, "appointments", "cancel", strconv.FormatInt(first.ID, 10))
		require.NoError(t, err)
		assert.Contains(t, stderr, "[success] Agendamento cancelado!")

		stored, _ := h.fake.Appointment(first.ID)
		assert.Equal(t, backend.StatusCanceled, stored.Status)
	})

	t.Run("client validation is described per field", func(t *testing.T) {
		_, _, err := h.run(t, "clients", "create", "--name", " ")
		require.Error(t, err)
		assert.Equal(t, "name: Nome é obrigatório", err.Error())
	})

	t.Run("clients search", func(t *testing.T) {
		out, _, err := h.run(t, "clients", "--name", "bru")
		require.NoError(t, err)

		var view application.PageView[backend.Client]
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		require.Len(t, view.Items, 1)
		assert.Equal(t, customer.ID, view.Items[0].ID)
	})

	t.Run("working periods are edited a day at a time", func(t *testing.T) {
		_, _, err := h.run(t, "working-periods", "set", "seg", "--start", "08:00", "--end", "12:00")
		require.NoError(t, err)

		stored := h.fake.WorkingPeriods()
		require.Len(t, stored, 1)
		assert.Equal(t, "MONDAY", stored[0].DayOfWeek)

		_, _, err = h.run(t, "working-periods", "disable", "MONDAY")
		require.NoError(t, err)
		assert.Empty(t, h.fake.WorkingPeriods())
	})

	t.Run("availability defaults to the signed-in professional", func(t *testing.T) {
		out, _, err := h.run(t, "availability", "--date", "2025-03-12")
		require.NoError(t, err)

		var view application.SlotPickerView
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		assert.Equal(t, h.user.ID, view.UserID)
		assert.Len(t, view.Slots, 2)
	})
}

func TestRunMigrations(t *testing.T) {
	files := fstest.MapFS{
		"migrations/001_token_store.sql": {Data: []byte("CREATE TABLE IF NOT EXISTS client_storage (storage_key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TEXT NOT NULL);")},
		"migrations/002_audit.sql":       {Data: []byte("CREATE TABLE IF NOT EXISTS audit (id INTEGER PRIMARY KEY);")},
	}
	dbPath := filepath.Join(t.TempDir(), "tokens.db")

	var logs strings.Builder
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo}))

	require.NoError(t, runMigrations(context.Background(), dbPath, files, "migrations", logger))
	assert.Contains(t, logs.String(), "pending_count=2")
	assert.Contains(t, logs.String(), "version=002")

	logs.Reset()
	require.NoError(t, runMigrations(context.Background(), dbPath, files, "migrations", logger))
	assert.Contains(t, logs.String(), "token database is up to date")

	err := runMigrations(context.Background(), dbPath, files, "absent", logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get pending migrations")
	assert.Contains(t, logs.String(), "failed to scan for pending migrations")
}

func TestRunDatabaseMigrations_Embedded(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "tokens.db")
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	require.NoError(t, runDatabaseMigrations(context.Background(), dbPath, logger))
	require.NoError(t, runDatabaseMigrations(context.Background(), dbPath, logger))
}

func TestApp_SlotCacheExpiresQuickly(t *testing.T) {
	h := newCLIHarness(t)
	h.fake.SetAvailability("2025-03-12", "2025-03-12T09:00:00Z", "2025-03-12T10:00:00Z")
	clock, ok := h.fake.Clock.(*clockwork.FakeClock)
	require.True(t, ok)

	cfg := config.Default()
	cfg.APIURL = h.fake.URL()
	cfg.ClientID = testfixtures.FakeClientID
	cfg.ClientSecret = testfixtures.FakeClientSecret
	cfg.TokenDB = filepath.Join(h.dir, "tokens.db")

	ctx := context.Background()
	a, err := newApp(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), clock)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.NoError(t, a.session.SignIn(ctx, testUsername, testPassword))
	require.NoError(t, a.picker.Open(ctx, h.user.ID, "2025-03-12"))
	require.Len(t, a.picker.View().Slots, 2)

	h.fake.SeedAppointment(backend.Appointment{Title: "Externo", DateTime: time.Date(2025, time.March, 12, 9, 0, 0, 0, time.UTC)})

	require.NoError(t, a.picker.SetDate(ctx, "2025-03-12"))
	assert.Len(t, a.picker.View().Slots, 2, "served from the cache")

	clock.Advance(slotCacheTTL + time.Second)
	require.NoError(t, a.picker.SetDate(ctx, "2025-03-12"))
	assert.Len(t, a.picker.View().Slots, 1, "a slot booked elsewhere disappears once the cache expires")
}
