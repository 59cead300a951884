package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/managerapp/internal/navigation"
)

// SignOutPath clears the session.
const SignOutPath = "/authentication/sign-out"

type RouterConfig struct {
	Session        *SessionHandler
	Appointments   *AppointmentsHandler
	Clients        *ClientsHandler
	WorkingPeriods *WorkingPeriodsHandler
	Availability   *AvailabilityHandler
	Notifications  *NotificationsHandler
	// Guard wraps every protected route. Sign-in, /session and /metrics stay open.
	Guard      func(http.Handler) http.Handler
	Metrics    http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	guarded := func(pattern string, fn http.HandlerFunc) {
		var h http.Handler = fn
		if cfg.Guard != nil {
			h = cfg.Guard(h)
		}
		mux.Handle(pattern, h)
	}

	if cfg.Session != nil {
		mux.HandleFunc("GET "+navigation.SignInPath, cfg.Session.SignInPage)
		mux.HandleFunc("POST "+navigation.SignInPath, cfg.Session.SignIn)
		mux.HandleFunc("POST "+SignOutPath, cfg.Session.SignOut)
		mux.HandleFunc("GET /session", cfg.Session.Current)
	}

	if cfg.Appointments != nil {
		guarded("GET /appointments", cfg.Appointments.List)
		guarded("POST /appointments", cfg.Appointments.Create)
		guarded("PUT /appointments/{id}", cfg.Appointments.Update)
		guarded("POST /appointments/{id}/{action}", cfg.Appointments.Transition)
	}

	if cfg.Clients != nil {
		guarded("GET /clients", cfg.Clients.List)
		guarded("POST /clients", cfg.Clients.Create)
		guarded("PUT /clients/{id}", cfg.Clients.Update)
		guarded("DELETE /clients/{id}", cfg.Clients.Delete)
	}

	if cfg.WorkingPeriods != nil {
		guarded("GET /working-periods", cfg.WorkingPeriods.Show)
		guarded("PUT /working-periods", cfg.WorkingPeriods.SaveWeek)
		guarded("POST /working-periods", cfg.WorkingPeriods.Create)
		guarded("PUT /working-periods/{id}", cfg.WorkingPeriods.Update)
		guarded("DELETE /working-periods/{id}", cfg.WorkingPeriods.Delete)
	}

	if cfg.Availability != nil {
		guarded("GET /availability", cfg.Availability.Show)
		guarded("POST /availability/open", cfg.Availability.Open)
		guarded("POST /availability/date", cfg.Availability.SetDate)
		guarded("POST /availability/select", cfg.Availability.Select)
		guarded("POST /availability/close", cfg.Availability.Close)
	}

	if cfg.Notifications != nil {
		guarded("GET /notifications", cfg.Notifications.Drain)
	}

	metricsHandler := cfg.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	mux.Handle("GET /metrics", metricsHandler)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, DefaultLanding, http.StatusSeeOther)
	})

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}
