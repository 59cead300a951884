package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/example/managerapp/internal/backend"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: []FieldError{{Field: "title", Message: "invalid"}}}
	if got := withFields.Error(); got != "validation failed" {
		t.Fatalf("expected consistent message for populated error, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if (&ValidationError{}).HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if !(&ValidationError{FieldErrors: []FieldError{{Field: "name", Message: "bad"}}}).HasErrors() {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddKeepsOrder(t *testing.T) {
	t.Parallel()

	v := &ValidationError{}
	v.add("title", "first")
	v.add("dateTime", "second")
	v.add("title", "third")

	if len(v.FieldErrors) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(v.FieldErrors))
	}
	if v.FieldErrors[1].Field != "dateTime" {
		t.Fatalf("expected insertion order to be kept, got %+v", v.FieldErrors)
	}
	if msg, ok := v.Message("title"); !ok || msg != "first" {
		t.Fatalf("expected first message for title, got %q (%v)", msg, ok)
	}
	if _, ok := v.Message("missing"); ok {
		t.Fatalf("expected no message for unknown field")
	}
}

func TestAuthError(t *testing.T) {
	t.Parallel()

	cause := errors.New("grant rejected")
	err := &AuthError{Status: http.StatusBadRequest, Message: "Bad credentials", Err: cause}
	if err.Error() != "Bad credentials" {
		t.Fatalf("expected backend message verbatim, got %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected AuthError to unwrap to its cause")
	}
	if got := (&AuthError{}).Error(); got != "authentication rejected" {
		t.Fatalf("expected fallback message, got %q", got)
	}
}

func TestOperationError(t *testing.T) {
	t.Parallel()

	err := &OperationError{Op: "cancel appointment", Message: "Agendamento não encontrado", Err: backend.ErrUnavailable}
	if got := err.Error(); got != "cancel appointment: Agendamento não encontrado" {
		t.Fatalf("unexpected message %q", got)
	}
	if !errors.Is(err, backend.ErrUnavailable) {
		t.Fatalf("expected OperationError to unwrap")
	}
	if got := (&OperationError{Message: "x"}).Error(); got != "x" {
		t.Fatalf("expected message without op, got %q", got)
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "auth", err: &AuthError{Message: "Bad credentials"}, want: "auth"},
		{name: "expired", err: &SessionExpiredError{}, want: "session_expired"},
		{name: "raw 401", err: &backend.APIError{Status: http.StatusUnauthorized}, want: "session_expired"},
		{name: "validation", err: fmt.Errorf("wrap: %w", &ValidationError{}), want: "validation"},
		{name: "not signed in", err: ErrNotSignedIn, want: "not_signed_in"},
		{name: "unavailable", err: fmt.Errorf("call: %w", backend.ErrUnavailable), want: "unavailable"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{name: "operation", err: &OperationError{Message: "boom"}, want: "operation"},
		{name: "unexpected", err: errors.New("boom"), want: "unexpected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ErrorKind(tt.err); got != tt.want {
				t.Fatalf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
