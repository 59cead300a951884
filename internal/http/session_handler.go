package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/example/managerapp/internal/application"
	"github.com/example/managerapp/internal/backend"
	"github.com/example/managerapp/internal/navigation"
)

// DefaultLanding is where sign-in lands when no return location was given.
const DefaultLanding = "/appointments"

type sessionService interface {
	SignIn(ctx context.Context, identifier, secret string) error
	SignOut(ctx context.Context)
	IsValid(skewSeconds int) bool
	Claims() (application.Claims, bool)
	CurrentUser() *backend.User
}

type SessionHandler struct {
	service   sessionService
	views     ViewTracker
	skew      int
	responder responder
	logger    *slog.Logger
}

func NewSessionHandler(service sessionService, views ViewTracker, skewSeconds int, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{service: service, views: views, skew: skewSeconds, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

// SignInPage renders the sign-in view.
func (h *SessionHandler) SignInPage(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if h.views != nil {
		h.views.Navigate(r.URL.RequestURI())
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, signInViewDTO{
		View:          "sign-in",
		Next:          navigation.SafeNext(r.URL.Query().Get("next")),
		Authenticated: h.service.IsValid(h.skew),
	})
}

// SignIn exchanges credentials for a session and redirects to the return location.
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	req, err := decodeSignInRequest(r)
	if err != nil {
		h.log(r.Context(), "SignIn", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode sign-in request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	username := strings.TrimSpace(req.Username)
	logger := h.log(r.Context(), "SignIn", "username", username)

	if err := h.service.SignIn(r.Context(), username, req.Password); err != nil {
		logger.ErrorContext(r.Context(), "sign-in failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, navigation.SignInPath, err)
		return
	}

	dest := navigation.SafeNext(req.Next)
	if dest == "" || navigation.IsSignIn(dest) {
		dest = DefaultLanding
	}
	if h.views != nil {
		h.views.Navigate(dest)
	}

	logger.InfoContext(r.Context(), "signed in", "next", dest)
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

// SignOut clears the session and returns to the sign-in view.
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.service.SignOut(r.Context())
	if h.views != nil {
		h.views.Navigate(navigation.SignInPath)
	}
	h.log(r.Context(), "SignOut").InfoContext(r.Context(), "signed out")
	http.Redirect(w, r, navigation.SignInPath, http.StatusSeeOther)
}

// Current describes the session without redirecting.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	dto := sessionDTO{Valid: h.service.IsValid(h.skew), User: h.service.CurrentUser()}
	if claims, ok := h.service.Claims(); ok {
		dto.Authenticated = true
		dto.Subject = claims.Subject
		if claims.HasExpiry() {
			dto.ExpiresAt = claims.ExpiresAt.UTC().Format(time.RFC3339)
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dto)
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Next     string `json:"next"`
}

func decodeSignInRequest(r *http.Request) (signInRequest, error) {
	var req signInRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return req, err
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
		req.Next = r.PostForm.Get("next")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, err
	}
	if req.Next == "" {
		req.Next = r.URL.Query().Get("next")
	}
	return req, nil
}

type signInViewDTO struct {
	View          string `json:"view"`
	Next          string `json:"next,omitempty"`
	Authenticated bool   `json:"authenticated"`
}

type sessionDTO struct {
	Authenticated bool          `json:"authenticated"`
	Valid         bool          `json:"valid"`
	Subject       string        `json:"subject,omitempty"`
	ExpiresAt     string        `json:"expiresAt,omitempty"`
	User          *backend.User `json:"user,omitempty"`
}
