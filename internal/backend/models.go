package backend

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// TokenResponse is the body returned by the password-grant token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
	Scope       string `json:"scope,omitempty"`
}

// User is the profile returned by GET /users/me.
type User struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// HasRole reports whether the profile carries role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "SCHEDULED"
	StatusCanceled  AppointmentStatus = "CANCELED"
	StatusDone      AppointmentStatus = "DONE"
	StatusNoShow    AppointmentStatus = "NO_SHOW"
)

var statusOrdinals = []AppointmentStatus{StatusScheduled, StatusCanceled, StatusDone, StatusNoShow}

// UnmarshalJSON accepts either the enum name or its ordinal.
func (s *AppointmentStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*s = AppointmentStatus(strings.ToUpper(strings.TrimSpace(name)))
		return nil
	}
	var ordinal int
	if err := json.Unmarshal(data, &ordinal); err != nil {
		return fmt.Errorf("backend: invalid appointment status %s", string(data))
	}
	if ordinal < 0 || ordinal >= len(statusOrdinals) {
		*s = AppointmentStatus(strconv.Itoa(ordinal))
		return nil
	}
	*s = statusOrdinals[ordinal]
	return nil
}

// Label returns the display label shown in the console.
func (s AppointmentStatus) Label() string {
	switch s {
	case StatusScheduled:
		return "Agendado"
	case StatusCanceled:
		return "Cancelado"
	case StatusDone:
		return "Concluído"
	case StatusNoShow:
		return "Não Compareceu"
	default:
		return "Desconhecido"
	}
}

// ClientRef is the client summary embedded in an appointment.
type ClientRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Appointment struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	DateTime    time.Time         `json:"dateTime"`
	Status      AppointmentStatus `json:"status"`
	Client      *ClientRef        `json:"client,omitempty"`
}

// AppointmentCreate is the body of POST /appointments.
type AppointmentCreate struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DateTime    time.Time `json:"dateTime"`
	ClientID    int64     `json:"clientId"`
}

// AppointmentUpdate is the body of PUT /appointments/{id}.
type AppointmentUpdate struct {
	Description string    `json:"description"`
	DateTime    time.Time `json:"dateTime"`
}

type Client struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Document string `json:"document"`
}

// ClientInput is the body of POST /clients and PUT /clients/{id}.
type ClientInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Document string `json:"document"`
}

type WorkingPeriod struct {
	ID        int64  `json:"id"`
	DayOfWeek string `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Active    *bool  `json:"active,omitempty"`
}

// WorkingPeriodCreate is the body of POST /working-periods.
type WorkingPeriodCreate struct {
	DayOfWeek string `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// WorkingPeriodUpdate is the body of PUT /working-periods/{id}.
type WorkingPeriodUpdate struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Page is the paginated envelope returned by list endpoints.
type Page[T any] struct {
	Content       []T `json:"content"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
	Size          int `json:"size"`
}

// PageRequest selects one page of a filtered collection.
type PageRequest struct {
	Page    int
	Size    int
	Sort    string
	Filters map[string]string
}

// Values encodes the request as query parameters. Blank filters are omitted.
func (r PageRequest) Values() url.Values {
	values := url.Values{}
	values.Set("page", strconv.Itoa(r.Page))
	if r.Size > 0 {
		values.Set("size", strconv.Itoa(r.Size))
	}
	if r.Sort != "" {
		values.Set("sort", r.Sort)
	}
	for name, value := range r.Filters {
		if strings.TrimSpace(value) == "" {
			continue
		}
		values.Set(name, value)
	}
	return values
}
