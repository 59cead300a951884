package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/managerapp/internal/application"
	"github.com/example/managerapp/internal/navigation"
	"github.com/example/managerapp/internal/workweek"
)

var (
	errBadRequestBody = errors.New("Formato de requisição inválido.")
	errInvalidID      = errors.New("Identificador inválido.")
)

const sessionExpiredMessage = "Sessão expirada. Faça login novamente."

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps a typed console error to a status and localized
// body. target is the location the user was on, used as the return location
// when the session expired mid-request.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, target string, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		authErr    *application.AuthError
		expiredErr *application.SessionExpiredError
		vErr       *application.ValidationError
		opErr      *application.OperationError
		dayErr     *workweek.DayError
	)
	switch {
	case errors.As(err, &authErr):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_REJECTED", Message: authErr.Error()})
	case errors.As(err, &expiredErr), errors.Is(err, application.ErrNotSignedIn):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   sessionExpiredMessage,
			Redirect:  navigation.SignInLocation(target),
		})
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: localizedStatusMessage(http.StatusUnprocessableEntity),
			Errors:  toFieldErrorDTOs(vErr),
		})
	case errors.As(err, &dayErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{Message: dayErr.Error()})
	case errors.Is(err, workweek.ErrInvalidTime), errors.Is(err, workweek.ErrUnknownDay):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{Message: localizedStatusMessage(http.StatusUnprocessableEntity)})
	case errors.Is(err, application.ErrPickerClosed):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "Seletor de horários fechado."})
	case errors.Is(err, application.ErrSlotUnavailable):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: localizedStatusMessage(http.StatusConflict)})
	case errors.As(err, &opErr):
		status := opErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		r.writeJSON(ctx, w, status, errorResponse{Message: opErr.Message})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: application.UnexpectedErrorMessage})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return handlerLogger(ctx, r.logger, "responder", "")
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Requisição inválida."
	case http.StatusUnauthorized:
		return "Autenticação necessária."
	case http.StatusForbidden:
		return "Acesso negado"
	case http.StatusNotFound:
		return "Recurso não encontrado."
	case http.StatusConflict:
		return "Horário indisponível"
	case http.StatusUnprocessableEntity:
		return "Verifique os campos destacados."
	default:
		return application.UnexpectedErrorMessage
	}
}

type fieldErrorDTO struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func toFieldErrorDTOs(vErr *application.ValidationError) []fieldErrorDTO {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}
	out := make([]fieldErrorDTO, 0, len(vErr.FieldErrors))
	for _, fe := range vErr.FieldErrors {
		out = append(out, fieldErrorDTO{Field: fe.Field, Message: fe.Message})
	}
	return out
}

type errorResponse struct {
	ErrorCode string          `json:"error_code,omitempty"`
	Message   string          `json:"message"`
	Redirect  string          `json:"redirect,omitempty"`
	Errors    []fieldErrorDTO `json:"errors,omitempty"`
}
