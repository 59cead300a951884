package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthenticated is returned when the backend answers 401.
	ErrUnauthenticated = errors.New("backend: unauthenticated")
	// ErrUnavailable is returned while the circuit breaker rejects calls.
	ErrUnavailable = errors.New("backend: unavailable")
	// ErrMisconfigured is returned when required client settings are absent.
	ErrMisconfigured = errors.New("backend: misconfigured")
)

// FieldError is one field-level validation failure reported by the backend.
type FieldError struct {
	FieldName string `json:"fieldName"`
	Message   string `json:"message"`
}

// APIError is a non-2xx backend response.
type APIError struct {
	Status      int
	Message     string
	FieldErrors []FieldError
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.Status)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// Is lets errors.Is match 401 responses against ErrUnauthenticated.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthenticated && e != nil && e.Status == 401
}

type errorBody struct {
	Message string       `json:"message"`
	Error   string       `json:"error"`
	Errors  []FieldError `json:"errors"`
	// OAuth2 token endpoint errors.
	ErrorDescription string `json:"error_description"`
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var payload errorBody
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}

	switch {
	case payload.Message != "":
		apiErr.Message = payload.Message
	case payload.ErrorDescription != "":
		apiErr.Message = payload.ErrorDescription
	case payload.Error != "":
		apiErr.Message = payload.Error
	}

	for _, fe := range payload.Errors {
		if fe.FieldName == "" || fe.Message == "" {
			continue
		}
		apiErr.FieldErrors = append(apiErr.FieldErrors, fe)
	}
	return apiErr
}
