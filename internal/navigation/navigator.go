// Package navigation decides which view the console shows: the route guard
// gates protected views and the navigator performs forced redirects to the
// sign-in view.
package navigation

import (
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/example/managerapp/internal/metrics"
)

// SignInPath is the location of the sign-in view.
const SignInPath = "/authentication/sign-in"

// Navigator tracks the current view location of the single console session.
type Navigator struct {
	logger *slog.Logger

	mu        sync.Mutex
	current   string
	redirects int
}

// NewNavigator starts at the sign-in view.
func NewNavigator(logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{logger: logger.With("component", "navigator"), current: SignInPath}
}

// Navigate records a user-driven move to location.
func (n *Navigator) Navigate(location string) {
	n.mu.Lock()
	n.current = location
	n.mu.Unlock()
}

// Current returns the location of the view being shown.
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// OnSignIn reports whether the sign-in view is being shown.
func (n *Navigator) OnSignIn() bool {
	return IsSignIn(n.Current())
}

// ForceSignIn moves to the sign-in view unless already there. It reports
// whether a redirect happened.
func (n *Navigator) ForceSignIn() bool {
	n.mu.Lock()
	if IsSignIn(n.current) {
		n.mu.Unlock()
		return false
	}
	from := n.current
	n.current = SignInPath
	n.redirects++
	n.mu.Unlock()

	metrics.ForcedSignInRedirects.Inc()
	n.logger.Info("session rejected by backend, redirecting to sign-in", "from", from)
	return true
}

// Redirects counts forced sign-in redirects.
func (n *Navigator) Redirects() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.redirects
}

// IsSignIn reports whether location points at the sign-in view, ignoring any query.
func IsSignIn(location string) bool {
	path := location
	if u, err := url.Parse(location); err == nil {
		path = u.Path
	}
	return strings.TrimRight(path, "/") == SignInPath
}
