package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/managerapp/internal/application"
	"github.com/example/managerapp/internal/backend"
	"github.com/example/managerapp/internal/workweek"
)

type workingPeriodsScreen interface {
	Load(ctx context.Context) error
	Week() workweek.Week
	SaveWeek(ctx context.Context, week workweek.Week) error
	Create(ctx context.Context, in backend.WorkingPeriodCreate) error
	Update(ctx context.Context, id int64, in backend.WorkingPeriodUpdate) error
	Delete(ctx context.Context, id int64) error
	View() application.WorkingPeriodsView
}

type WorkingPeriodsHandler struct {
	screen    workingPeriodsScreen
	responder responder
	logger    *slog.Logger
}

func NewWorkingPeriodsHandler(screen workingPeriodsScreen, logger *slog.Logger) *WorkingPeriodsHandler {
	base := defaultLogger(logger)
	return &WorkingPeriodsHandler{screen: screen, responder: newResponder(base), logger: base}
}

func (h *WorkingPeriodsHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "WorkingPeriodsHandler", operation, attrs...)
}

func (h *WorkingPeriodsHandler) Show(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.screen == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := h.screen.Load(r.Context()); err != nil {
		h.fail(w, r, "Show", err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.screen.View())
}

// SaveWeek applies the edited rows to the freshly loaded week and persists
// the difference. Rows not mentioned keep their current values.
func (h *WorkingPeriodsHandler) SaveWeek(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.screen == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req weekRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "SaveWeek", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode week", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := h.screen.Load(r.Context()); err != nil {
		h.fail(w, r, "SaveWeek", err)
		return
	}

	week := h.screen.Week()
	for _, day := range req.Days {
		if err := day.applyTo(&week); err != nil {
			h.fail(w, r, "SaveWeek", err, "day", day.Key)
			return
		}
	}

	if err := h.screen.SaveWeek(r.Context(), week); err != nil {
		h.fail(w, r, "SaveWeek", err)
		return
	}

	h.log(r.Context(), "SaveWeek").InfoContext(r.Context(), "week saved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.screen.View())
}

func (h *WorkingPeriodsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.screen == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req backend.WorkingPeriodCreate
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := h.screen.Create(r.Context(), req); err != nil {
		h.fail(w, r, "Create", err, "day", req.DayOfWeek)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, h.screen.View())
}

func (h *WorkingPeriodsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.screen == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, err := parseID(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	var req backend.WorkingPeriodUpdate
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := h.screen.Update(r.Context(), id, req); err != nil {
		h.fail(w, r, "Update", err, "working_period_id", id)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.screen.View())
}

func (h *WorkingPeriodsHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
		h.fail(w, r, "Delete", err, "working_period_id", id)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.screen.View())
}

func (h *WorkingPeriodsHandler) fail(w http.ResponseWriter, r *http.Request, operation string, err error, attrs ...any) {
	h.log(r.Context(), operation, attrs...).ErrorContext(r.Context(), "working periods request failed", "error", err, "error_kind", application.ErrorKind(err))
	h.responder.handleServiceError(r.Context(), w, refererTarget(r, "/working-periods"), err)
}

type weekRequest struct {
	Days []dayRequest `json:"days"`
}

type dayRequest struct {
	Key       string `json:"key"`
	Enabled   bool   `json:"enabled"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

func (d dayRequest) applyTo(week *workweek.Week) error {
	if err := week.SetEnabled(d.Key, d.Enabled); err != nil {
		return err
	}
	start, end := strings.TrimSpace(d.StartTime), strings.TrimSpace(d.EndTime)
	if start == "" && end == "" {
		return nil
	}
	i, _ := workweek.Lookup(d.Key)
	if start == "" {
		start = week[i].StartTime
	}
	if end == "" {
		end = week[i].EndTime
	}
	return week.SetHours(d.Key, start, end)
}
