package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/managerapp/internal/logging"
)

func newTestClient(t *testing.T, handler http.Handler) *API {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		BaseURL:           server.URL,
		ClientID:          "console",
		ClientSecret:      "s3cret",
		RequestsPerSecond: 1000,
	})
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "localhost:8080", "://bad"} {
		_, err := New(Config{BaseURL: raw})
		assert.ErrorIs(t, err, ErrMisconfigured, raw)
	}
}

func TestClientAttachesBearerTokenAndRequestID(t *testing.T) {
	t.Parallel()

	var (
		gotAuth      string
		gotRequestID string
	)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get(RequestIDHeader)
		writeJSON(w, http.StatusOK, User{ID: 7, Name: "Ana"})
	}))

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, User{ID: 7, Name: "Ana"}, user)
	assert.Empty(t, gotAuth)
	_, parseErr := uuid.Parse(gotRequestID)
	assert.NoError(t, parseErr)

	client.SetTokenSource(TokenSourceFunc(func() string { return "abc" }))
	ctx := logging.WithRequestID(context.Background(), "req-42")
	_, err = client.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "req-42", gotRequestID)
}

func TestPasswordGrant(t *testing.T) {
	t.Parallel()

	t.Run("sends form body with client credentials", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/oauth2/token", r.URL.Path)
			assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "console", user)
			assert.Equal(t, "s3cret", pass)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "password", r.PostForm.Get("grant_type"))
			assert.Equal(t, "ana@example.com", r.PostForm.Get("username"))
			assert.Equal(t, "pw", r.PostForm.Get("password"))
			writeJSON(w, http.StatusOK, map[string]any{"access_token": "tok", "token_type": "bearer"})
		}))
		client.SetTokenSource(TokenSourceFunc(func() string { return "stale" }))

		token, err := client.PasswordGrant(context.Background(), "ana@example.com", "pw")
		require.NoError(t, err)
		assert.Equal(t, "tok", token.AccessToken)
	})

	t.Run("rejection does not fire the unauthenticated hook", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_grant", "error_description": "Bad credentials"})
		}))
		var fired atomic.Int32
		client.OnUnauthenticated(func(context.Context) { fired.Add(1) })

		_, err := client.PasswordGrant(context.Background(), "ana", "wrong")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "Bad credentials", apiErr.Message)
		assert.Zero(t, fired.Load())
	})

	t.Run("empty access token", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{})
		}))
		_, err := client.PasswordGrant(context.Background(), "ana", "pw")
		assert.Error(t, err)
	})
}

func TestUnauthenticatedResponseFiresHook(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	var fired atomic.Int32
	client.OnUnauthenticated(func(context.Context) { fired.Add(1) })

	_, err := client.ListClients(context.Background(), PageRequest{Size: 10})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, int32(1), fired.Load())

	err = client.DeleteClient(context.Background(), 3)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, int32(2), fired.Load())
}

func TestAPIErrorDecoding(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantFields  []FieldError
	}{
		{
			name:        "message wins over error",
			status:      http.StatusConflict,
			body:        `{"message":"This time slot is already booked.","error":"Conflict"}`,
			wantMessage: "This time slot is already booked.",
		},
		{
			name:        "error used when message absent",
			status:      http.StatusForbidden,
			body:        `{"error":"Access denied"}`,
			wantMessage: "Access denied",
		},
		{
			name:        "field errors in order",
			status:      http.StatusUnprocessableEntity,
			body:        `{"errors":[{"fieldName":"title","message":"Title is required!"},{"fieldName":"","message":"skipped"},{"fieldName":"dateTime","message":"Date must be in the future"}]}`,
			wantFields:  []FieldError{{FieldName: "title", Message: "Title is required!"}, {FieldName: "dateTime", Message: "Date must be in the future"}},
			wantMessage: "",
		},
		{
			name:        "plain text body",
			status:      http.StatusBadGateway,
			body:        "upstream down",
			wantMessage: "upstream down",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))

			_, err := client.CreateAppointment(context.Background(), AppointmentCreate{Title: "x", DateTime: time.Now()})
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.wantMessage, apiErr.Message)
			assert.Equal(t, tc.wantFields, apiErr.FieldErrors)
			assert.NotErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestCircuitBreakerOpensAfterServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	for i := 0; i < 5; i++ {
		_, err := client.ListAppointments(context.Background(), PageRequest{})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	}
	assert.Equal(t, gobreaker.StateOpen, client.BreakerState())

	_, err := client.ListAppointments(context.Background(), PageRequest{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(5), calls.Load())
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Appointment not found"})
	}))

	for i := 0; i < 6; i++ {
		err := client.CancelAppointment(context.Background(), 1)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrUnavailable))
	}
	assert.Equal(t, gobreaker.StateClosed, client.BreakerState())
}

func TestEndpointsShapeRequests(t *testing.T) {
	t.Parallel()

	type seen struct {
		method string
		path   string
		query  string
		body   map[string]any
	}
	var last seen
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last = seen{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&last.body)
		}
		switch r.URL.Path {
		case "/users/5/availability":
			writeJSON(w, http.StatusOK, []string{"2025-03-10T09:00:00", "2025-03-10T10:00:00"})
		case "/appointments":
			writeJSON(w, http.StatusOK, map[string]any{
				"content":       []map[string]any{{"id": 1, "title": "Corte", "dateTime": "2025-03-10T12:00:00Z", "status": 2, "client": map[string]any{"id": 3, "name": "Bia"}}},
				"totalElements": 1,
				"totalPages":    1,
			})
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	ctx := context.Background()

	slots, err := client.Availability(ctx, 5, "2025-03-10")
	require.NoError(t, err)
	assert.Len(t, slots, 2)
	assert.Equal(t, "date=2025-03-10", last.query)

	page, err := client.ListAppointments(ctx, PageRequest{Page: 2, Size: 10, Filters: map[string]string{"status": "DONE", "clientId": ""}})
	require.NoError(t, err)
	assert.Equal(t, "page=2&size=10&status=DONE", last.query)
	require.Len(t, page.Content, 1)
	assert.Equal(t, StatusDone, page.Content[0].Status)
	assert.Equal(t, "Bia", page.Content[0].Client.Name)

	require.NoError(t, client.MarkNoShow(ctx, 9))
	assert.Equal(t, http.MethodPut, last.method)
	assert.Equal(t, "/appointments/9/noShow", last.path)

	require.NoError(t, client.CompleteAppointment(ctx, 9))
	assert.Equal(t, "/appointments/9/done", last.path)

	_, err = client.ListWorkingPeriods(ctx, PageRequest{Page: 0, Size: 7, Sort: "dayOfWeek"})
	require.NoError(t, err)
	assert.Equal(t, "page=0&size=7&sort=dayOfWeek", last.query)

	_, err = client.UpdateWorkingPeriod(ctx, 4, WorkingPeriodUpdate{StartTime: "08:00", EndTime: "12:00"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"startTime": "08:00", "endTime": "12:00"}, last.body)

	when := time.Date(2025, 3, 10, 9, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	_, err = client.CreateAppointment(ctx, AppointmentCreate{Title: "Corte", Description: "curto", DateTime: when, ClientID: 3})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10T12:00:00Z", last.body["dateTime"])
	assert.Equal(t, float64(3), last.body["clientId"])
}

func TestAppointmentStatusUnmarshal(t *testing.T) {
	t.Parallel()

	cases := map[string]AppointmentStatus{
		`"SCHEDULED"`: StatusScheduled,
		`"canceled"`:  StatusCanceled,
		`0`:           StatusScheduled,
		`3`:           StatusNoShow,
		`9`:           AppointmentStatus("9"),
	}
	for input, want := range cases {
		var got AppointmentStatus
		require.NoError(t, json.Unmarshal([]byte(input), &got), input)
		assert.Equal(t, want, got, input)
	}
	assert.Equal(t, "Desconhecido", AppointmentStatus("9").Label())
	assert.Equal(t, "Não Compareceu", StatusNoShow.Label())
}

func TestParseSlot(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("BRT", -3*3600)
	got, err := ParseSlot("2025-03-10T09:30:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 30, 0, 0, loc), got)

	got, err = ParseSlot("2025-03-10T12:30:00Z", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC)))

	_, err = ParseSlot("tomorrow", loc)
	assert.Error(t, err)
}
