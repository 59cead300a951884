package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PasswordGrant exchanges resource-owner credentials for an access token.
func (c *API) PasswordGrant(ctx context.Context, username, password string) (TokenResponse, error) {
	if c.clientID == "" {
		return TokenResponse{}, fmt.Errorf("%w: oauth client id is not configured", ErrMisconfigured)
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)

	var token TokenResponse
	err := c.do(ctx, request{
		endpoint:   "token",
		method:     http.MethodPost,
		path:       "/oauth2/token",
		form:       form,
		clientAuth: true,
	}, &token)
	if err != nil {
		return TokenResponse{}, err
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return TokenResponse{}, fmt.Errorf("backend: token response without access_token")
	}
	return token, nil
}

// CurrentUser fetches the profile of the bearer of the current token.
func (c *API) CurrentUser(ctx context.Context) (User, error) {
	var user User
	err := c.do(ctx, request{endpoint: "users.me", method: http.MethodGet, path: "/users/me"}, &user)
	return user, err
}

// Availability lists bookable slot timestamps for userID on date (YYYY-MM-DD).
func (c *API) Availability(ctx context.Context, userID int64, date string) ([]string, error) {
	var slots []string
	err := c.do(ctx, request{
		endpoint: "users.availability",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/users/%d/availability", userID),
		query:    url.Values{"date": []string{date}},
	}, &slots)
	return slots, err
}

// ListAppointments fetches one page of appointments.
func (c *API) ListAppointments(ctx context.Context, req PageRequest) (Page[Appointment], error) {
	var page Page[Appointment]
	err := c.do(ctx, request{endpoint: "appointments.list", method: http.MethodGet, path: "/appointments", query: req.Values()}, &page)
	return page, err
}

func (c *API) CreateAppointment(ctx context.Context, in AppointmentCreate) (Appointment, error) {
	in.DateTime = in.DateTime.UTC()
	var out Appointment
	err := c.do(ctx, request{endpoint: "appointments.create", method: http.MethodPost, path: "/appointments", body: in}, &out)
	return out, err
}

func (c *API) UpdateAppointment(ctx context.Context, id int64, in AppointmentUpdate) (Appointment, error) {
	in.DateTime = in.DateTime.UTC()
	var out Appointment
	err := c.do(ctx, request{endpoint: "appointments.update", method: http.MethodPut, path: fmt.Sprintf("/appointments/%d", id), body: in}, &out)
	return out, err
}

// CancelAppointment moves a scheduled appointment to CANCELED.
func (c *API) CancelAppointment(ctx context.Context, id int64) error {
	return c.transitionAppointment(ctx, id, "cancel")
}

// CompleteAppointment moves an appointment to DONE.
func (c *API) CompleteAppointment(ctx context.Context, id int64) error {
	return c.transitionAppointment(ctx, id, "done")
}

// MarkNoShow moves an appointment to NO_SHOW.
func (c *API) MarkNoShow(ctx context.Context, id int64) error {
	return c.transitionAppointment(ctx, id, "noShow")
}

func (c *API) transitionAppointment(ctx context.Context, id int64, action string) error {
	return c.do(ctx, request{
		endpoint: "appointments." + action,
		method:   http.MethodPut,
		path:     fmt.Sprintf("/appointments/%d/%s", id, action),
	}, nil)
}

// ListClients fetches one page of clients.
func (c *API) ListClients(ctx context.Context, req PageRequest) (Page[Client], error) {
	var page Page[Client]
	err := c.do(ctx, request{endpoint: "clients.list", method: http.MethodGet, path: "/clients", query: req.Values()}, &page)
	return page, err
}

func (c *API) CreateClient(ctx context.Context, in ClientInput) (Client, error) {
	var out Client
	err := c.do(ctx, request{endpoint: "clients.create", method: http.MethodPost, path: "/clients", body: in}, &out)
	return out, err
}

func (c *API) UpdateClient(ctx context.Context, id int64, in ClientInput) (Client, error) {
	var out Client
	err := c.do(ctx, request{endpoint: "clients.update", method: http.MethodPut, path: fmt.Sprintf("/clients/%d", id), body: in}, &out)
	return out, err
}

func (c *API) DeleteClient(ctx context.Context, id int64) error {
	return c.do(ctx, request{endpoint: "clients.delete", method: http.MethodDelete, path: fmt.Sprintf("/clients/%d", id)}, nil)
}

// ListWorkingPeriods fetches one page of the signed-in professional's working periods.
func (c *API) ListWorkingPeriods(ctx context.Context, req PageRequest) (Page[WorkingPeriod], error) {
	var page Page[WorkingPeriod]
	err := c.do(ctx, request{endpoint: "working_periods.list", method: http.MethodGet, path: "/working-periods", query: req.Values()}, &page)
	return page, err
}

func (c *API) CreateWorkingPeriod(ctx context.Context, in WorkingPeriodCreate) (WorkingPeriod, error) {
	var out WorkingPeriod
	err := c.do(ctx, request{endpoint: "working_periods.create", method: http.MethodPost, path: "/working-periods", body: in}, &out)
	return out, err
}

func (c *API) UpdateWorkingPeriod(ctx context.Context, id int64, in WorkingPeriodUpdate) (WorkingPeriod, error) {
	var out WorkingPeriod
	err := c.do(ctx, request{endpoint: "working_periods.update", method: http.MethodPut, path: fmt.Sprintf("/working-periods/%d", id), body: in}, &out)
	return out, err
}

func (c *API) DeleteWorkingPeriod(ctx context.Context, id int64) error {
	return c.do(ctx, request{endpoint: "working_periods.delete", method: http.MethodDelete, path: fmt.Sprintf("/working-periods/%d", id)}, nil)
}

// ParseSlot parses an availability timestamp. The backend may omit the zone,
// in which case loc is assumed.
func ParseSlot(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("backend: invalid slot timestamp %q", value)
}
