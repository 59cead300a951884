package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/managerapp/internal/application"
)

type slotPicker interface {
	Open(ctx context.Context, userID int64, date string) error
	SetDate(ctx context.Context, date string) error
	Select(slot time.Time) error
	Close()
	View() application.SlotPickerView
}

// AvailabilityHandler drives the time-slot picker of the appointment dialog.
type AvailabilityHandler struct {
	picker    slotPicker
	responder responder
	logger    *slog.Logger
}

func NewAvailabilityHandler(picker slotPicker, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	return &AvailabilityHandler{picker: picker, responder: newResponder(base), logger: base}
}

func (h *AvailabilityHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AvailabilityHandler", operation, attrs...)
}

func (h *AvailabilityHandler) Show(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.picker == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.picker.View())
}

// Open shows the picker for a professional. Without userId the signed-in
// profile is used.
func (h *AvailabilityHandler) Open(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.picker == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req openPickerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Open", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode picker request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	userID := req.UserID
	if userID == 0 {
		user, ok := CurrentUserFromContext(r.Context())
		if !ok {
			h.fail(w, r, "Open", application.ErrNotSignedIn)
			return
		}
		userID = user.ID
	}

	if err := h.picker.Open(r.Context(), userID, req.Date); err != nil {
		h.fail(w, r, "Open", err, "user_id", userID, "date", req.Date)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.picker.View())
}

func (h *AvailabilityHandler) SetDate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.picker == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req pickerDateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := h.picker.SetDate(r.Context(), req.Date); err != nil {
		h.fail(w, r, "SetDate", err, "date", req.Date)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.picker.View())
}

func (h *AvailabilityHandler) Select(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.picker == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req selectSlotRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := h.picker.Select(req.Slot); err != nil {
		h.fail(w, r, "Select", err, "slot", req.Slot)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.picker.View())
}

func (h *AvailabilityHandler) Close(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.picker == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.picker.Close()
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.picker.View())
}

func (h *AvailabilityHandler) fail(w http.ResponseWriter, r *http.Request, operation string, err error, attrs ...any) {
	h.log(r.Context(), operation, attrs...).WarnContext(r.Context(), "picker request failed", "error", err, "error_kind", application.ErrorKind(err))
	h.responder.handleServiceError(r.Context(), w, refererTarget(r, "/appointments"), err)
}

type openPickerRequest struct {
	UserID int64  `json:"userId"`
	Date   string `json:"date"`
}

type pickerDateRequest struct {
	Date string `json:"date"`
}

type selectSlotRequest struct {
	Slot time.Time `json:"slot"`
}
