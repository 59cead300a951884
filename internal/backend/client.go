// Package backend is the REST client for the ManagerApp API. Every request
// passes through one choke point that attaches the bearer token, forwards the
// correlation id, rate-limits, trips a circuit breaker on server failures and
// reports 401 responses to the registered unauthenticated hook.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/example/managerapp/internal/logging"
	"github.com/example/managerapp/internal/metrics"
)

const (
	defaultTimeout           = 10 * time.Second
	defaultRequestsPerSecond = 10
	maxResponseBytes         = 4 << 20

	// RequestIDHeader carries the console correlation id to the backend.
	RequestIDHeader = "X-Request-ID"
)

var errServerStatus = errors.New("backend: server error")

// Config configures an API.
type Config struct {
	BaseURL           string
	ClientID          string
	ClientSecret      string
	Timeout           time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *slog.Logger
	// BreakerTimeout is how long the breaker stays open before probing again.
	BreakerTimeout time.Duration
}

// TokenSource yields the bearer token for the next request. An empty string
// sends the request without an Authorization header.
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func() string

func (f TokenSourceFunc) Token() string { return f() }

// API talks to the ManagerApp REST API.
type API struct {
	baseURL      *url.URL
	clientID     string
	clientSecret string
	http         *http.Client
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker
	logger       *slog.Logger

	mu                sync.RWMutex
	tokens            TokenSource
	onUnauthenticated func(context.Context)
}

// New builds an API client from cfg.
func New(cfg Config) (*API, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid base url %q", ErrMisconfigured, cfg.BaseURL)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}

	c := &API{
		baseURL:      base,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		http:         httpClient,
		limiter:      rate.NewLimiter(rate.Limit(rps), burst),
		logger:       logger.With("component", "backend"),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.Set(breakerStateValue(to))
		},
	})
	return c, nil
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// SetTokenSource installs the source of bearer tokens.
func (c *API) SetTokenSource(tokens TokenSource) {
	c.mu.Lock()
	c.tokens = tokens
	c.mu.Unlock()
}

// OnUnauthenticated registers the hook invoked for every 401 response outside
// the token endpoint. The hook runs before the error reaches the caller.
func (c *API) OnUnauthenticated(hook func(context.Context)) {
	c.mu.Lock()
	c.onUnauthenticated = hook
	c.mu.Unlock()
}

// BreakerState exposes the circuit breaker state for diagnostics.
func (c *API) BreakerState() gobreaker.State {
	return c.breaker.State()
}

type request struct {
	endpoint string
	method   string
	path     string
	query    url.Values
	body     any
	form     url.Values
	// clientAuth sends the OAuth client credentials instead of the bearer token
	// and exempts the call from the unauthenticated hook.
	clientAuth bool
}

type response struct {
	status int
	body   []byte
}

func (c *API) do(ctx context.Context, req request, out any) (err error) {
	start := time.Now()
	requestID := logging.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := c.logger.With("endpoint", req.endpoint, "method", req.method, "path", req.path, "request_id", requestID)

	outcome := "error"
	defer func() {
		metrics.BackendRequestsTotal.WithLabelValues(req.endpoint, outcome).Inc()
		metrics.BackendRequestDuration.WithLabelValues(req.endpoint).Observe(time.Since(start).Seconds())
		if err != nil {
			logger.Debug("backend request failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		}
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("backend: rate limit wait: %w", err)
	}

	httpReq, err := c.newHTTPRequest(ctx, req, requestID)
	if err != nil {
		return err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}
		res := response{status: resp.StatusCode, body: body}
		if resp.StatusCode >= http.StatusInternalServerError {
			return res, errServerStatus
		}
		return res, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		outcome = "rejected"
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil && !errors.Is(err, errServerStatus) {
		return fmt.Errorf("backend: %s %s: %w", req.method, req.path, err)
	}

	res, _ := result.(response)
	outcome = strconv.Itoa(res.status/100) + "xx"

	if res.status == http.StatusUnauthorized && !req.clientAuth {
		logger.Info("backend rejected bearer token")
		c.notifyUnauthenticated(ctx)
	}
	if res.status >= http.StatusBadRequest {
		return decodeAPIError(res.status, res.body)
	}

	if out == nil || len(bytes.TrimSpace(res.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return fmt.Errorf("backend: decode %s response: %w", req.endpoint, err)
	}
	return nil
}

func (c *API) newHTTPRequest(ctx context.Context, req request, requestID string) (*http.Request, error) {
	target := c.baseURL.JoinPath(req.path)
	if len(req.query) > 0 {
		target.RawQuery = req.query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.form != nil:
		body = strings.NewReader(req.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.body != nil:
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("backend: encode %s request: %w", req.endpoint, err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if req.clientAuth {
		httpReq.SetBasicAuth(c.clientID, c.clientSecret)
		return httpReq, nil
	}

	c.mu.RLock()
	tokens := c.tokens
	c.mu.RUnlock()
	if tokens != nil {
		if token := tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return httpReq, nil
}

func (c *API) notifyUnauthenticated(ctx context.Context) {
	c.mu.RLock()
	hook := c.onUnauthenticated
	c.mu.RUnlock()
	if hook != nil {
		hook(ctx)
	}
}
