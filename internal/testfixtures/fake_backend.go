package testfixtures

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/example/managerapp/internal/backend"
)

const (
	// FakeClientID and FakeClientSecret are the OAuth client credentials the
	// fake token endpoint accepts.
	FakeClientID     = "managerapp-console"
	FakeClientSecret = "console-secret"

	fakeTokenTTL   = time.Hour
	filterLayout   = "2006-01-02T15:04:05"
	defaultPageLen = 10
)

var dayOrder = map[string]int{
	"MONDAY": 0, "TUESDAY": 1, "WEDNESDAY": 2, "THURSDAY": 3,
	"FRIDAY": 4, "SATURDAY": 5, "SUNDAY": 6,
}

type fakeAccount struct {
	password string
	user     backend.User
}

// FakeBackend is an in-memory rendition of the ManagerApp REST contract
// served over httptest. All state is guarded by a single mutex.
type FakeBackend struct {
	Server *httptest.Server
	Clock  clockwork.Clock

	mu           sync.Mutex
	accounts     map[string]fakeAccount
	tokens       map[string]int64
	appointments map[int64]backend.Appointment
	clients      map[int64]backend.Client
	periods      map[int64]backend.WorkingPeriod
	availability map[string][]string
	hits         map[string]int
	failures     map[string]int
	ids          *IDGenerator
}

// NewFakeBackend starts a fake backend and registers its shutdown with tb.
// A nil clock defaults to a fake clock at ReferenceTime.
func NewFakeBackend(tb testing.TB, clock clockwork.Clock) *FakeBackend {
	tb.Helper()

	if clock == nil {
		clock = NewClock(time.Time{})
	}

	f := &FakeBackend{
		Clock:        clock,
		accounts:     make(map[string]fakeAccount),
		tokens:       make(map[string]int64),
		appointments: make(map[int64]backend.Appointment),
		clients:      make(map[int64]backend.Client),
		periods:      make(map[int64]backend.WorkingPeriod),
		availability: make(map[string][]string),
		hits:         make(map[string]int),
		failures:     make(map[string]int),
		ids:          NewIDGenerator(100),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/token", f.handleToken)
	mux.HandleFunc("GET /users/me", f.authed(f.handleMe))
	mux.HandleFunc("GET /users/{id}/availability", f.authed(f.handleAvailability))
	mux.HandleFunc("GET /appointments", f.authed(f.handleListAppointments))
	mux.HandleFunc("POST /appointments", f.authed(f.handleCreateAppointment))
	mux.HandleFunc("PUT /appointments/{id}", f.authed(f.handleUpdateAppointment))
	mux.HandleFunc("PUT /appointments/{id}/{action}", f.authed(f.handleTransition))
	mux.HandleFunc("GET /clients", f.authed(f.handleListClients))
	mux.HandleFunc("POST /clients", f.authed(f.handleCreateClient))
	mux.HandleFunc("PUT /clients/{id}", f.authed(f.handleUpdateClient))
	mux.HandleFunc("DELETE /clients/{id}", f.authed(f.handleDeleteClient))
	mux.HandleFunc("GET /working-periods", f.authed(f.handleListPeriods))
	mux.HandleFunc("POST /working-periods", f.authed(f.handleCreatePeriod))
	mux.HandleFunc("PUT /working-periods/{id}", f.authed(f.handleUpdatePeriod))
	mux.HandleFunc("DELETE /working-periods/{id}", f.authed(f.handleDeletePeriod))

	f.Server = httptest.NewServer(f.record(mux))
	tb.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake backend.
func (f *FakeBackend) URL() string {
	return f.Server.URL
}

// ClientConfig returns a backend.Config pointed at the fake with the accepted
// OAuth client credentials.
func (f *FakeBackend) ClientConfig() backend.Config {
	return backend.Config{
		BaseURL:           f.Server.URL,
		ClientID:          FakeClientID,
		ClientSecret:      FakeClientSecret,
		RequestsPerSecond: 1000,
	}
}

// AddAccount registers credentials that the token endpoint will accept. A zero
// user ID is replaced by a generated one. The stored profile is returned.
func (f *FakeBackend) AddAccount(username, password string, user backend.User) backend.User {
	f.mu.Lock()
	defer f.mu.Unlock()

	if user.ID == 0 {
		user.ID = f.ids.Next()
	}
	if user.Email == "" {
		user.Email = username
	}
	f.accounts[username] = fakeAccount{password: password, user: user}
	return user
}

// IssueToken returns a valid bearer token for username without a round trip.
func (f *FakeBackend) IssueToken(tb testing.TB, username string) string {
	tb.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	account, ok := f.accounts[username]
	if !ok {
		tb.Fatalf("unknown fake account %q", username)
	}
	token := f.mintLocked(account.user)
	if token == "" {
		tb.Fatalf("failed to mint token for %q", username)
	}
	return token
}

// RevokeAll invalidates every issued token so subsequent calls receive 401.
func (f *FakeBackend) RevokeAll() {
	f.mu.Lock()
	f.tokens = make(map[string]int64)
	f.mu.Unlock()
}

// FailNext makes the next n requests matching "METHOD /path" answer with
// status 500.
func (f *FakeBackend) FailNext(route string, n int) {
	f.mu.Lock()
	f.failures[route] += n
	f.mu.Unlock()
}

// Hits reports how many requests reached "METHOD /path".
func (f *FakeBackend) Hits(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

// SeedClient stores c, generating an ID when it is zero.
func (f *FakeBackend) SeedClient(c backend.Client) backend.Client {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c.ID == 0 {
		c.ID = f.ids.Next()
	}
	f.clients[c.ID] = c
	return c
}

// SeedAppointment stores a, generating an ID when it is zero and defaulting
// the status to SCHEDULED.
func (f *FakeBackend) SeedAppointment(a backend.Appointment) backend.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()

	if a.ID == 0 {
		a.ID = f.ids.Next()
	}
	if a.Status == "" {
		a.Status = backend.StatusScheduled
	}
	a.DateTime = a.DateTime.UTC()
	f.appointments[a.ID] = a
	return a
}

// SeedWorkingPeriod stores p, generating an ID when it is zero.
func (f *FakeBackend) SeedWorkingPeriod(p backend.WorkingPeriod) backend.WorkingPeriod {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p.ID == 0 {
		p.ID = f.ids.Next()
	}
	f.periods[p.ID] = p
	return p
}

// SetAvailability configures the open slots offered for date (YYYY-MM-DD).
func (f *FakeBackend) SetAvailability(date string, slots ...string) {
	f.mu.Lock()
	f.availability[date] = append([]string(nil), slots...)
	f.mu.Unlock()
}

// Appointment returns the stored appointment with id.
func (f *FakeBackend) Appointment(id int64) (backend.Appointment, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	return a, ok
}

// WorkingPeriods returns stored periods ordered by weekday.
func (f *FakeBackend) WorkingPeriods() []backend.WorkingPeriod {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedPeriodsLocked()
}

func (f *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path

		f.mu.Lock()
		f.hits[route]++
		fail := f.failures[route] > 0
		if fail {
			f.failures[route]--
		}
		f.mu.Unlock()

		if fail {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeBackend) authed(next func(http.ResponseWriter, *http.Request, backend.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized", "error_description": "Full authentication is required"})
			return
		}

		f.mu.Lock()
		userID, known := f.tokens[token]
		var user backend.User
		for _, account := range f.accounts {
			if account.user.ID == userID {
				user = account.user
			}
		}
		f.mu.Unlock()

		if !known {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token", "error_description": "Token expired"})
			return
		}
		next(w, r, user)
	}
}

func (f *FakeBackend) mintLocked(user backend.User) string {
	token, err := signToken(TokenClaims{
		ID:        strconv.FormatInt(f.ids.Next(), 10),
		Subject:   user.Email,
		ExpiresAt: f.Clock.Now().Add(fakeTokenTTL),
	})
	if err != nil {
		return ""
	}
	f.tokens[token] = user.ID
	return token
}

func (f *FakeBackend) handleToken(w http.ResponseWriter, r *http.Request) {
	id, secret, ok := r.BasicAuth()
	if !ok || id != FakeClientID || secret != FakeClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client", "error_description": "Bad client credentials"})
		return
	}
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "password" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	f.mu.Lock()
	account, known := f.accounts[r.PostForm.Get("username")]
	if !known || account.password != r.PostForm.Get("password") {
		f.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Bad credentials"})
		return
	}
	token := f.mintLocked(account.user)
	f.mu.Unlock()

	if token == "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "token signing failed"})
		return
	}
	writeJSON(w, http.StatusOK, backend.TokenResponse{AccessToken: token, TokenType: "bearer", ExpiresIn: int64(fakeTokenTTL.Seconds())})
}

func (f *FakeBackend) handleMe(w http.ResponseWriter, _ *http.Request, user backend.User) {
	writeJSON(w, http.StatusOK, user)
}

func (f *FakeBackend) handleAvailability(w http.ResponseWriter, r *http.Request, _ backend.User) {
	date := r.URL.Query().Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid date"})
		return
	}

	f.mu.Lock()
	booked := make(map[string]bool)
	for _, a := range f.appointments {
		if a.Status == backend.StatusScheduled {
			booked[a.DateTime.UTC().Format(time.RFC3339)] = true
		}
	}
	slots := []string{}
	for _, slot := range f.availability[date] {
		if !booked[slot] {
			slots = append(slots, slot)
		}
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, slots)
}

func (f *FakeBackend) handleListAppointments(w http.ResponseWriter, r *http.Request, _ backend.User) {
	query := r.URL.Query()
	var (
		start, end time.Time
		err        error
	)
	if v := query.Get("startDateTime"); v != "" {
		if start, err = time.ParseInLocation(filterLayout, v, time.UTC); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid startDateTime"})
			return
		}
	}
	if v := query.Get("endDateTime"); v != "" {
		if end, err = time.ParseInLocation(filterLayout, v, time.UTC); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid endDateTime"})
			return
		}
	}

	f.mu.Lock()
	items := make([]backend.Appointment, 0, len(f.appointments))
	for _, a := range f.appointments {
		if v := query.Get("clientId"); v != "" && (a.Client == nil || strconv.FormatInt(a.Client.ID, 10) != v) {
			continue
		}
		if v := query.Get("status"); v != "" && string(a.Status) != strings.ToUpper(v) {
			continue
		}
		if !start.IsZero() && a.DateTime.Before(start) {
			continue
		}
		if !end.IsZero() && a.DateTime.After(end) {
			continue
		}
		items = append(items, a)
	}
	f.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].DateTime.Equal(items[j].DateTime) {
			return items[i].ID < items[j].ID
		}
		return items[i].DateTime.Before(items[j].DateTime)
	})
	writePage(w, r, items)
}

func (f *FakeBackend) handleCreateAppointment(w http.ResponseWriter, r *http.Request, _ backend.User) {
	var in backend.AppointmentCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed request body"})
		return
	}

	var fieldErrors []backend.FieldError
	if strings.TrimSpace(in.Title) == "" {
		fieldErrors = append(fieldErrors, backend.FieldError{FieldName: "title", Message: "Title is required!"})
	}
	if in.DateTime.IsZero() {
		fieldErrors = append(fieldErrors, backend.FieldError{FieldName: "dateTime", Message: "Date time is required!"})
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": fieldErrors})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	client, ok := f.clients[in.ClientID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Client Id not found"})
		return
	}
	for _, a := range f.appointments {
		if a.Status == backend.StatusScheduled && a.DateTime.Equal(in.DateTime.UTC()) {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "This time slot is already booked."})
			return
		}
	}

	created := backend.Appointment{
		ID:          f.ids.Next(),
		Title:       in.Title,
		Description: in.Description,
		DateTime:    in.DateTime.UTC(),
		Status:      backend.StatusScheduled,
		Client:      &backend.ClientRef{ID: client.ID, Name: client.Name},
	}
	f.appointments[created.ID] = created
	writeJSON(w, http.StatusCreated, created)
}

func (f *FakeBackend) handleUpdateAppointment(w http.ResponseWriter, r *http.Request, _ backend.User) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in backend.AppointmentUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed request body"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	a, found := f.appointments[id]
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Appointment not found"})
		return
	}
	a.Description = in.Description
	if !in.DateTime.IsZero() {
		a.DateTime = in.DateTime.UTC()
	}
	f.appointments[id] = a
	writeJSON(w, http.StatusOK, a)
}

func (f *FakeBackend) handleTransition(w http.ResponseWriter, r *http.Request, _ backend.User) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var target backend.AppointmentStatus
	switch r.PathValue("action") {
	case "cancel":
		target = backend.StatusCanceled
	case "done":
		target = backend.StatusDone
	case "noShow":
		target = backend.StatusNoShow
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not found"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	a, found := f.appointments[id]
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Appointment not found"})
		return
	}
	if a.Status != backend.StatusScheduled {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Only scheduled appointments can be canceled"})
		return
	}
	a.Status = target
	f.appointments[id] = a
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeBackend) handleListClients(w http.ResponseWriter, r *http.Request, _ backend.User) {
	name := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("name")))

	f.mu.Lock()
	items := make([]backend.Client, 0, len(f.clients))
	for _, c := range f.clients {
		if name != "" && !strings.Contains(strings.ToLower(c.Name), name) {
			continue
		}
		items = append(items, c)
	}
	f.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	writePage(w, r, items)
}

func (f *FakeBackend) handleCreateClient(w http.ResponseWriter, r *http.Request, _ backend.User) {
	in, ok := decodeClient(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.clients {
		if in.Email != "" && strings.EqualFold(c.Email, in.Email) {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "Email already in use"})
			return
		}
	}
	created := backend.Client{ID: f.ids.Next(), Name: in.Name, Email: in.Email, Phone: in.Phone, Document: in.Document}
	f.clients[created.ID] = created
	writeJSON(w, http.StatusCreated, created)
}

func (f *FakeBackend) handleUpdateClient(w http.ResponseWriter, r *http.Request, _ backend.User) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, ok := decodeClient(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, found := f.clients[id]; !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Client not found"})
		return
	}
	updated := backend.Client{ID: id, Name: in.Name, Email: in.Email, Phone: in.Phone, Document: in.Document}
	f.clients[id] = updated
	writeJSON(w, http.StatusOK, updated)
}

func (f *FakeBackend) handleDeleteClient(w http.ResponseWriter, r *http.Request, _ backend.User) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, found := f.clients[id]; !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Client not found"})
		return
	}
	delete(f.clients, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeBackend) handleListPeriods(w http.ResponseWriter, r *http.Request, _ backend.User) {
	f.mu.Lock()
	items := f.sortedPeriodsLocked()
	f.mu.Unlock()
	writePage(w, r, items)
}

func (f *FakeBackend) handleCreatePeriod(w http.ResponseWriter, r *http.Request, _ backend.User) {
	var in backend.WorkingPeriodCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed request body"})
		return
	}
	if _, known := dayOrder[in.DayOfWeek]; !known {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": []backend.FieldError{{FieldName: "dayOfWeek", Message: "Invalid day of week"}}})
		return
	}
	if in.StartTime >= in.EndTime {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Start time must be before end time"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	created := backend.WorkingPeriod{ID: f.ids.Next(), DayOfWeek: in.DayOfWeek, StartTime: in.StartTime + ":00", EndTime: in.EndTime + ":00"}
	f.periods[created.ID] = created
	writeJSON(w, http.StatusCreated, created)
}

func (f *FakeBackend) handleUpdatePeriod(w http.ResponseWriter, r *http.Request, _ backend.User) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in backend.WorkingPeriodUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed request body"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p, found := f.periods[id]
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Working period not found"})
		return
	}
	p.StartTime = in.StartTime + ":00"
	p.EndTime = in.EndTime + ":00"
	f.periods[id] = p
	writeJSON(w, http.StatusOK, p)
}

func (f *FakeBackend) handleDeletePeriod(w http.ResponseWriter, r *http.Request, _ backend.User) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, found := f.periods[id]; !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Working period not found"})
		return
	}
	delete(f.periods, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeBackend) sortedPeriodsLocked() []backend.WorkingPeriod {
	items := make([]backend.WorkingPeriod, 0, len(f.periods))
	for _, p := range f.periods {
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool {
		di, dj := dayOrder[items[i].DayOfWeek], dayOrder[items[j].DayOfWeek]
		if di == dj {
			return items[i].ID < items[j].ID
		}
		return di < dj
	})
	return items
}

func decodeClient(w http.ResponseWriter, r *http.Request) (backend.ClientInput, bool) {
	var in backend.ClientInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed request body"})
		return in, false
	}
	if strings.TrimSpace(in.Name) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": []backend.FieldError{{FieldName: "name", Message: "Name is required!"}}})
		return in, false
	}
	return in, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": fmt.Sprintf("Invalid id %q", r.PathValue("id"))})
		return 0, false
	}
	return id, true
}

func writePage[T any](w http.ResponseWriter, r *http.Request, items []T) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	size, _ := strconv.Atoi(query.Get("size"))
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageLen
	}

	total := len(items)
	totalPages := (total + size - 1) / size
	from := page * size
	if from > total {
		from = total
	}
	to := from + size
	if to > total {
		to = total
	}

	writeJSON(w, http.StatusOK, backend.Page[T]{
		Content:       append([]T{}, items[from:to]...),
		TotalElements: total,
		TotalPages:    totalPages,
		Number:        page,
		Size:          size,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
