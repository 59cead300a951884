package application

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSignedIn is returned by operations that need a signed-in professional.
	ErrNotSignedIn = errors.New("application: not signed in")
	// ErrPickerClosed is returned when the slot picker is used while closed.
	ErrPickerClosed = errors.New("application: slot picker is closed")
	// ErrSlotUnavailable is returned when selecting a time that is not offered.
	ErrSlotUnavailable = errors.New("application: slot unavailable")
)

// AuthError reports a credential rejection at sign-in. Message is the
// backend's rejection text, unchanged.
type AuthError struct {
	Status  int
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return "authentication rejected"
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// SessionExpiredError reports that the backend no longer accepts the session.
// The session has already been cleared when callers see it.
type SessionExpiredError struct {
	Err error
}

func (e *SessionExpiredError) Error() string {
	return "session expired"
}

func (e *SessionExpiredError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FieldError is one translated field-level validation message.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError captures field level validation issues that callers can surface to users.
// Entries keep the order the backend reported them in.
type ValidationError struct {
	FieldErrors []FieldError
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Message returns the message recorded for field, if any.
func (v *ValidationError) Message(field string) (string, bool) {
	if v == nil {
		return "", false
	}
	for _, fe := range v.FieldErrors {
		if fe.Field == field {
			return fe.Message, true
		}
	}
	return "", false
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	v.FieldErrors = append(v.FieldErrors, FieldError{Field: field, Message: message})
}

// OperationError is any other backend or network failure. Message is the
// translated text shown to the user; RawMessage is what the backend sent.
type OperationError struct {
	Op         string
	Status     int
	RawMessage string
	Message    string
	Err        error
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
