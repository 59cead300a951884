// Package metrics exposes Prometheus collectors for the console process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Backend client metrics
var (
	// BackendRequestsTotal counts backend calls by endpoint and status class.
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "managerapp_backend_requests_total",
			Help: "Backend requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	// BackendRequestDuration tracks backend latency in seconds.
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "managerapp_backend_request_duration_seconds",
			Help:    "Backend request duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	// CircuitBreakerState tracks the backend breaker (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "managerapp_backend_circuit_breaker_state",
			Help: "Backend circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// Session metrics
var (
	// SignInsTotal counts sign-in attempts by outcome.
	SignInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "managerapp_sign_ins_total",
			Help: "Sign-in attempts by outcome",
		},
		[]string{"outcome"},
	)

	// ForcedSignInRedirects counts navigations forced by a 401 response.
	ForcedSignInRedirects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "managerapp_forced_sign_in_redirects_total",
			Help: "Navigations to the sign-in view forced by an unauthenticated backend response",
		},
	)

	// GuardRedirects counts guarded navigations rejected by the route guard.
	GuardRedirects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "managerapp_guard_redirects_total",
			Help: "Guarded navigations redirected to sign-in",
		},
	)
)

// Loader metrics
var (
	// StaleResponsesDiscarded counts page responses dropped because a newer request was issued.
	StaleResponsesDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "managerapp_stale_responses_discarded_total",
			Help: "Responses discarded because a newer request superseded them",
		},
		[]string{"resource"},
	)

	// PageFetchesTotal counts page fetches by resource and outcome.
	PageFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "managerapp_page_fetches_total",
			Help: "Page fetches by resource and outcome",
		},
		[]string{"resource", "outcome"},
	)
)
