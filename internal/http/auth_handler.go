package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-booking/internal/application"
)

const sessionCookieName = "session_token"

type authService interface {
	Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error)
	RevokeSession(ctx context.Context, token string) error
}

type currentUserLookup interface {
	GetUser(ctx context.Context, principal application.Principal, userID string) (application.User, error)
}

// AuthHandler issues and revokes session tokens. Tokens travel in the
// response body, the X-Session-Token header and an HttpOnly cookie.
type AuthHandler struct {
	service   authService
	users     currentUserLookup
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, responder: newResponder(base), logger: base}
}

// WithUserLookup lets GetCurrentSession include the caller's profile.
func (h *AuthHandler) WithUserLookup(users currentUserLookup) *AuthHandler {
	h.users = users
	return h
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// CreateSession exchanges credentials for a session token.
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	ctx := r.Context()

	var req loginRequest
	if !h.responder.decodeJSON(w, r, h.log(ctx, "CreateSession"), &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	logger := h.log(ctx, "CreateSession", "email", email)

	result, err := h.service.Authenticate(ctx, application.AuthenticateParams{
		Email:       email,
		Password:    req.Password,
		Fingerprint: r.UserAgent(),
	})
	if err != nil {
		h.responder.fail(ctx, w, logger, "authentication failed", err)
		return
	}

	session := result.Session
	http.SetCookie(w, sessionCookie(session.Token, session.ExpiresAt))
	w.Header().Set("X-Session-Token", session.Token)
	logger.InfoContext(ctx, "user authenticated", "authenticated_user_id", result.User.ID)

	h.responder.writeJSON(ctx, w, http.StatusCreated, loginResponse{
		Token:     session.Token,
		ExpiresAt: formatTimestamp(session.ExpiresAt),
		User:      newUserDTO(result.User),
	})
}

// GetCurrentSession reports the principal behind the presented token.
func (h *AuthHandler) GetCurrentSession(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		unavailable(w)
		return
	}
	ctx := r.Context()
	logger := h.log(ctx, "GetCurrentSession")

	principal, ok := PrincipalFromContext(ctx)
	if !ok || strings.TrimSpace(principal.UserID) == "" {
		logger.WarnContext(ctx, "missing authenticated principal", "error_kind", "unauthorized")
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	body := currentSessionResponse{UserID: principal.UserID, IsAdmin: principal.IsAdmin}
	if h.users != nil {
		user, err := h.users.GetUser(ctx, principal, principal.UserID)
		if err != nil {
			h.responder.fail(ctx, w, logger, "current user lookup failed", err)
			return
		}
		dto := newUserDTO(user)
		body.User = &dto
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, body)
}

// DeleteCurrentSession logs the caller out.
func (h *AuthHandler) DeleteCurrentSession(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	ctx := r.Context()
	logger := h.log(ctx, "DeleteCurrentSession")

	token := sessionToken(r)
	if token == "" {
		logger.WarnContext(ctx, "logout without a session token", "error_kind", "unauthorized")
		h.responder.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_REQUIRED",
			Message:   errMissingSessionToken.Error(),
		})
		return
	}

	if err := h.service.RevokeSession(ctx, token); err != nil {
		h.responder.fail(ctx, w, logger, "failed to revoke session", err)
		return
	}

	// An expired cookie tells the browser to drop it.
	http.SetCookie(w, sessionCookie("", time.Unix(0, 0)))
	logger.InfoContext(ctx, "session revoked")
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSession lets an administrator revoke any token.
func (h *AuthHandler) DeleteSession(w http.ResponseWriter, r *http.Request, token string) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	ctx := r.Context()
	logger := h.log(ctx, "DeleteSession")

	if principal, ok := PrincipalFromContext(ctx); !ok || !principal.IsAdmin {
		logger.WarnContext(ctx, "session revocation by non-administrator", "error_kind", "forbidden")
		h.responder.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   statusMessage(http.StatusForbidden),
		})
		return
	}

	token = strings.TrimSpace(token)
	if token == "" {
		h.responder.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Message: "a token to revoke is required"})
		return
	}

	if err := h.service.RevokeSession(ctx, token); err != nil {
		h.responder.fail(ctx, w, logger, "failed to revoke session", err)
		return
	}
	logger.InfoContext(ctx, "session revoked by administrator")
	w.WriteHeader(http.StatusNoContent)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expires_at"`
	User      userDTO `json:"user"`
}

type currentSessionResponse struct {
	UserID  string   `json:"user_id"`
	IsAdmin bool     `json:"is_admin"`
	User    *userDTO `json:"user,omitempty"`
}

// sessionCookie builds the session cookie. An empty token with an expiry in
// the past clears it.
func sessionCookie(token string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		cookie.MaxAge = -1
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
	}
	return cookie
}

// sessionToken reads a bearer token, falling back to the session cookie.
func sessionToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	if token, ok := strings.CutPrefix(strings.TrimSpace(r.Header.Get("Authorization")), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
