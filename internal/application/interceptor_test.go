package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/managerapp/internal/backend"
	"github.com/example/managerapp/internal/navigation"
	"github.com/example/managerapp/internal/persistence"
)

func TestInterceptor_UnauthorizedClearsSessionAndRedirects(t *testing.T) {
	t.Parallel()

	h := newConsoleHarness(t)
	h.signIn(t)
	require.Equal(t, "/appointments", h.navigator.Current())

	h.fake.RevokeAll()
	_, err := h.client.CurrentUser(context.Background())

	require.ErrorIs(t, err, backend.ErrUnauthenticated)
	assert.False(t, h.store.Has(persistence.TokenKey))
	assert.Empty(t, h.session.Token())
	assert.Equal(t, navigation.SignInPath, h.navigator.Current())
	assert.Equal(t, 1, h.navigator.Redirects())
}

func TestInterceptor_RepeatedUnauthorizedDoesNotRedirectTwice(t *testing.T) {
	t.Parallel()

	h := newConsoleHarness(t)
	h.signIn(t)
	h.fake.RevokeAll()

	clients := NewClientsScreen(h.client, h.screenOptions())
	appointments := NewAppointmentsScreen(h.client, h.screenOptions())

	var expired *SessionExpiredError
	require.ErrorAs(t, clients.Load(context.Background()), &expired)
	require.ErrorAs(t, appointments.Load(context.Background()), &expired)

	assert.Equal(t, 1, h.navigator.Redirects())
	assert.Equal(t, navigation.SignInPath, h.navigator.Current())
	assert.Empty(t, h.notes.Recent(), "expired sessions are not reported as failures")
}

func TestInterceptor_TokenEndpointRejectionIsNotIntercepted(t *testing.T) {
	t.Parallel()

	h := newConsoleHarness(t)
	cfg := h.fake.ClientConfig()
	cfg.ClientSecret = "wrong"
	cfg.Logger = discardLogger()
	client, err := backend.New(cfg)
	require.NoError(t, err)

	fired := false
	client.OnUnauthenticated(func(context.Context) { fired = true })

	_, err = client.PasswordGrant(context.Background(), testUsername, testPassword)
	require.Error(t, err)
	assert.False(t, fired)
}
