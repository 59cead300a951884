package http

import (
	"log/slog"
	"net/http"

	"github.com/example/managerapp/internal/application"
)

type notificationSource interface {
	Drain() []application.Notification
}

// NotificationsHandler hands pending notifications to the console once.
type NotificationsHandler struct {
	source    notificationSource
	responder responder
}

func NewNotificationsHandler(source notificationSource, logger *slog.Logger) *NotificationsHandler {
	return &NotificationsHandler{source: source, responder: newResponder(defaultLogger(logger))}
}

func (h *NotificationsHandler) Drain(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.source == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	notes := h.source.Drain()
	if notes == nil {
		notes = []application.Notification{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, notificationsResponse{Notifications: notes})
}

type notificationsResponse struct {
	Notifications []application.Notification `json:"notifications"`
}
