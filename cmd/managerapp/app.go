package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/example/managerapp/internal/application"
	"github.com/example/managerapp/internal/backend"
	"github.com/example/managerapp/internal/config"
	"github.com/example/managerapp/internal/crypto"
	httptransport "github.com/example/managerapp/internal/http"
	"github.com/example/managerapp/internal/navigation"
	"github.com/example/managerapp/internal/persistence"
	"github.com/example/managerapp/internal/persistence/redis"
	"github.com/example/managerapp/internal/persistence/sqlite"
)

// slotCacheTTL bounds how long a slot booked from another console can still be offered.
const slotCacheTTL = 15 * time.Second

var errSessionRequired = errors.New("sessão inválida ou expirada; execute `managerapp login`")

// app is one console: a session, the REST client and every screen, wired
// the same way for the server and for one-shot commands.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	client       *backend.API
	session      *application.SessionManager
	navigator    *navigation.Navigator
	guard        *navigation.Guard
	notes        *application.NotificationLog
	appointments *application.AppointmentsScreen
	clients      *application.ClientsScreen
	periods      *application.WorkingPeriodsScreen
	picker       *application.SlotPicker

	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, clock clockwork.Clock) (*app, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	a := &app{cfg: cfg, logger: logger}

	store, err := a.openTokenStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	client, err := backend.New(backend.Config{
		BaseURL:           cfg.APIURL,
		ClientID:          cfg.ClientID,
		ClientSecret:      cfg.ClientSecret,
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("backend client: %w", err)
	}
	a.client = client

	a.session = application.NewSessionManagerWithLogger(store, client, clock, logger)
	client.SetTokenSource(a.session)
	a.navigator = navigation.NewNavigator(logger)
	application.InstallInterceptor(client, a.session, a.navigator)
	a.guard = navigation.NewGuard(a.session).WithSkew(cfg.SkewSeconds)

	a.notes = application.NewNotificationLog(0)
	opts := application.ScreenOptions{
		PageSize: cfg.PageSize,
		Notifier: application.MultiNotifier{a.notes, application.LogNotifier{Logger: logger}},
		Logger:   logger,
		Clock:    clock,
	}
	a.appointments = application.NewAppointmentsScreen(client, opts)
	a.clients = application.NewClientsScreen(client, opts)
	a.periods = application.NewWorkingPeriodsScreen(client, opts)
	a.picker = application.NewSlotPicker(client, application.SlotPickerOptions{ScreenOptions: opts, CacheTTL: slotCacheTTL})
	a.appointments.OnMutated(a.picker.Invalidate)

	return a, nil
}

// openTokenStore picks Redis when configured and the sqlite file otherwise,
// sealing values when a passphrase is set.
func (a *app) openTokenStore(ctx context.Context) (persistence.TokenStore, error) {
	var store persistence.TokenStore
	if a.cfg.RedisURL != "" {
		rdb, err := redis.NewClient(ctx, a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		s := redis.NewStore(rdb)
		a.closers = append(a.closers, s.Close)
		store = s
	} else {
		storage, err := sqlite.Open(ctx, a.cfg.TokenDB, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, storage.Close)
		if err := storage.Migrate(ctx); err != nil {
			return nil, err
		}
		store = storage
	}

	if a.cfg.TokenPassphrase == "" {
		return store, nil
	}
	sealer, err := crypto.NewPassphraseSealer(a.cfg.TokenPassphrase, crypto.DefaultKeyParams)
	if err != nil {
		return nil, fmt.Errorf("token sealer: %w", err)
	}
	return persistence.NewSealedTokenStore(store, sealer), nil
}

// requireSession restores the persisted session and applies the route guard
// to target, the way the console server does for a guarded view.
func (a *app) requireSession(ctx context.Context, target string) error {
	a.session.Initialize(ctx)
	if decision := a.guard.Decide(target); !decision.Allow {
		a.logger.DebugContext(ctx, "guard rejected command", "target", target, "redirect", decision.Redirect)
		return errSessionRequired
	}
	a.navigator.Navigate(target)
	return nil
}

func (a *app) router() http.Handler {
	return httptransport.NewRouter(httptransport.RouterConfig{
		Session:        httptransport.NewSessionHandler(a.session, a.navigator, a.cfg.SkewSeconds, a.logger),
		Appointments:   httptransport.NewAppointmentsHandler(a.appointments, a.logger),
		Clients:        httptransport.NewClientsHandler(a.clients, a.logger),
		WorkingPeriods: httptransport.NewWorkingPeriodsHandler(a.periods, a.logger),
		Availability:   httptransport.NewAvailabilityHandler(a.picker, a.logger),
		Notifications:  httptransport.NewNotificationsHandler(a.notes, a.logger),
		Guard:          httptransport.RequireSession(a.guard, a.navigator, a.session, a.logger),
		Middleware:     []func(http.Handler) http.Handler{httptransport.RequestLogger(a.logger)},
	})
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to close resource", "error", err)
		}
	}
	a.closers = nil
}
