package http

import (
	"context"
	"log/slog"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/example/managerapp/internal/application"
	"github.com/example/managerapp/internal/backend"
	"github.com/example/managerapp/internal/pagination"
)

type appointmentsScreen interface {
	Loader() *pagination.Loader[backend.Appointment]
	DateFilters(date string) (map[string]string, error)
	Create(ctx context.Context, form application.AppointmentForm) error
	Update(ctx context.Context, id int64, edit application.AppointmentEdit) error
	Cancel(ctx context.Context, id int64) error
	Complete(ctx context.Context, id int64) error
	NoShow(ctx context.Context, id int64) error
	View() application.AppointmentsView
}

var appointmentFilters = []string{
	application.FilterClientID,
	application.FilterStatus,
	application.FilterStartDateTime,
	application.FilterEndDateTime,
}

type AppointmentsHandler struct {
	screen    appointmentsScreen
	responder responder
	logger    *slog.Logger
}

func NewAppointmentsHandler(screen appointmentsScreen, logger *slog.Logger) *AppointmentsHandler {
	base := defaultLogger(logger)
	return &AppointmentsHandler{screen: screen, responder: newResponder(base), logger: base}
}

func (h *AppointmentsHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AppointmentsHandler", operation, attrs...)
}

// List applies the requested filters, day and page as one loader change and
// renders the result. Without query parameters the current page is refetched.
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.screen == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	values := r.URL.Query()

	change, err := pagingChange(values)
	if err != nil {
		h.fail(w, r, "List", err)
		return
	}

	change.Filters = map[string]string{}
	for _, name := range appointmentFilters {
		if values.Has(name) {
			change.Filters[name] = strings.TrimSpace(values.Get(name))
		}
	}
	if values.Has("day") {
		dayFilters, err := h.screen.DateFilters(strings.TrimSpace(values.Get("day")))
		if err != nil {
			h.fail(w, r, "List", err)
			return
		}
		maps.Copy(change.Filters, dayFilters)
	}

	if err := h.screen.Loader().Apply(ctx, change); err != nil {
		h.fail(w, r, "List", err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, h.screen.View())
}

func (h *AppointmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.screen == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req appointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode appointment request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "client_id", req.ClientID)
	if err := h.screen.Create(r.Context(), req.toForm()); err != nil {
		h.fail(w, r, "Create", err)
		return
	}

	logger.InfoContext(r.Context(), "appointment created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, h.screen.View())
}

func (h *AppointmentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.screen == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, err := parseID(r)
	if err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid appointment id", "id", r.PathValue("id"))
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	var req appointmentEditRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "appointment_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode appointment update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := h.screen.Update(r.Context(), id, application.AppointmentEdit{Description: req.Description, DateTime: req.DateTime}); err != nil {
		h.fail(w, r, "Update", err, "appointment_id", id)
		return
	}

	h.log(r.Context(), "Update", "appointment_id", id).InfoContext(r.Context(), "appointment updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.screen.View())
}

// Transition applies cancel, done or noShow to the appointment in the path.
func (h *AppointmentsHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.screen == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, err := parseID(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	action := r.PathValue("action")
	var apply func(context.Context, int64) error
	switch action {
	case "cancel":
		apply = h.screen.Cancel
	case "done":
		apply = h.screen.Complete
	case "noShow":
		apply = h.screen.NoShow
	default:
		http.NotFound(w, r)
		return
	}

	if err := apply(r.Context(), id); err != nil {
		h.fail(w, r, "Transition", err, "appointment_id", id, "action", action)
		return
	}

	h.log(r.Context(), "Transition", "appointment_id", id, "action", action).InfoContext(r.Context(), "appointment transitioned")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.screen.View())
}

func (h *AppointmentsHandler) fail(w http.ResponseWriter, r *http.Request, operation string, err error, attrs ...any) {
	h.log(r.Context(), operation, attrs...).ErrorContext(r.Context(), "appointments request failed", "error", err, "error_kind", application.ErrorKind(err))
	h.responder.handleServiceError(r.Context(), w, refererTarget(r, "/appointments"), err)
}

type appointmentRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DateTime    time.Time `json:"dateTime"`
	ClientID    int64     `json:"clientId"`
}

func (r appointmentRequest) toForm() application.AppointmentForm {
	return application.AppointmentForm{
		Title:       r.Title,
		Description: r.Description,
		DateTime:    r.DateTime,
		ClientID:    r.ClientID,
	}
}

type appointmentEditRequest struct {
	Description string    `json:"description"`
	DateTime    time.Time `json:"dateTime"`
}
