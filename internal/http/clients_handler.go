package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/managerapp/internal/application"
	"github.com/example/managerapp/internal/backend"
	"github.com/example/managerapp/internal/pagination"
)

type clientsScreen interface {
	Loader() *pagination.Loader[backend.Client]
	Create(ctx context.Context, form application.ClientForm) error
	Update(ctx context.Context, id int64, form application.ClientForm) error
	Delete(ctx context.Context, id int64) error
	View() application.PageView[backend.Client]
}

type ClientsHandler struct {
	screen    clientsScreen
	responder responder
	logger    *slog.Logger
}

func NewClientsHandler(screen clientsScreen, logger *slog.Logger) *ClientsHandler {
	base := defaultLogger(logger)
	return &ClientsHandler{screen: screen, responder: newResponder(base), logger: base}
}

func (h *ClientsHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ClientsHandler", operation, attrs...)
}

func (h *ClientsHandler) List(w http.ResponseWriter, r *http.Request) {
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
	if values.Has(application.FilterName) {
		change.Filters = map[string]string{application.FilterName: strings.TrimSpace(values.Get(application.FilterName))}
	}

	if err := h.screen.Loader().Apply(ctx, change); err != nil {
		h.fail(w, r, "List", err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, h.screen.View())
}

func (h *ClientsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.screen == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode client request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := h.screen.Create(r.Context(), req.toForm()); err != nil {
		h.fail(w, r, "Create", err)
		return
	}

	h.log(r.Context(), "Create").InfoContext(r.Context(), "client created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, h.screen.View())
}

func (h *ClientsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.screen == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, err := parseID(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "client_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode client update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := h.screen.Update(r.Context(), id, req.toForm()); err != nil {
		h.fail(w, r, "Update", err, "client_id", id)
		return
	}

	h.log(r.Context(), "Update", "client_id", id).InfoContext(r.Context(), "client updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.screen.View())
}

func (h *ClientsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.screen == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, err := parseID(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	if err := h.screen.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "Delete", err, "client_id", id)
		return
	}

	h.log(r.Context(), "Delete", "client_id", id).InfoContext(r.Context(), "client deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.screen.View())
}

func (h *ClientsHandler) fail(w http.ResponseWriter, r *http.Request, operation string, err error, attrs ...any) {
	h.log(r.Context(), operation, attrs...).ErrorContext(r.Context(), "clients request failed", "error", err, "error_kind", application.ErrorKind(err))
	h.responder.handleServiceError(r.Context(), w, refererTarget(r, "/clients"), err)
}

type clientRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Document string `json:"document"`
}

func (r clientRequest) toForm() application.ClientForm {
	return application.ClientForm{Name: r.Name, Email: r.Email, Phone: r.Phone, Document: r.Document}
}
