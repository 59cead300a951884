package testfixtures

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var signingKey = []byte("managerapp-test-signing-key")

// TokenClaims selects the claims of a generated bearer token.
type TokenClaims struct {
	ID        string
	Subject   string
	ExpiresAt time.Time
	// OmitExpiry leaves the exp claim out entirely.
	OmitExpiry bool
}

// SignedToken returns an HS256 JWT carrying claims.
func SignedToken(tb testing.TB, claims TokenClaims) string {
	tb.Helper()

	token, err := signToken(claims)
	if err != nil {
		tb.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func signToken(claims TokenClaims) (string, error) {
	registered := jwt.RegisteredClaims{ID: claims.ID, Subject: claims.Subject}
	if !claims.OmitExpiry {
		registered.ExpiresAt = jwt.NewNumericDate(claims.ExpiresAt)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, registered).SignedString(signingKey)
}

// TokenExpiringIn returns a token for subject expiring d after now.
func TokenExpiringIn(tb testing.TB, subject string, now time.Time, d time.Duration) string {
	tb.Helper()
	return SignedToken(tb, TokenClaims{Subject: subject, ExpiresAt: now.Add(d)})
}
