package navigation

import (
	"net/url"
	"strings"

	"github.com/example/managerapp/internal/metrics"
)

// DefaultSkewSeconds is the safety margin subtracted from token expiry.
const DefaultSkewSeconds = 30

// SessionValidator is the part of the session manager the guard consults.
type SessionValidator interface {
	IsValid(skewSeconds int) bool
}

// Decision is the outcome of a guarded navigation.
type Decision struct {
	Allow    bool
	Redirect string
}

// Guard gates protected views on a locally valid session. It performs no I/O.
type Guard struct {
	session SessionValidator
	skew    int
}

func NewGuard(session SessionValidator) *Guard {
	return &Guard{session: session, skew: DefaultSkewSeconds}
}

// WithSkew returns a copy of the guard using a different skew margin.
func (g *Guard) WithSkew(seconds int) *Guard {
	return &Guard{session: g.session, skew: seconds}
}

// Decide allows target when the session is valid and otherwise redirects to
// sign-in carrying target as the return location.
func (g *Guard) Decide(target string) Decision {
	if g.session != nil && g.session.IsValid(g.skew) {
		return Decision{Allow: true}
	}
	metrics.GuardRedirects.Inc()
	return Decision{Redirect: SignInLocation(target)}
}

// SignInLocation builds the sign-in location returning to next afterwards.
func SignInLocation(next string) string {
	next = SafeNext(next)
	if next == "" || IsSignIn(next) {
		return SignInPath
	}
	return SignInPath + "?" + url.Values{"next": []string{next}}.Encode()
}

// SafeNext returns next when it is a local absolute path and "" otherwise.
func SafeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return next
}
