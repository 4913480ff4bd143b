package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-booking/internal/application"
)

type userService interface {
	CreateUser(ctx context.Context, params application.CreateUserParams) (application.User, error)
	UpdateUser(ctx context.Context, params application.UpdateUserParams) (application.User, error)
	GetUser(ctx context.Context, principal application.Principal, userID string) (application.User, error)
	DeleteUser(ctx context.Context, principal application.Principal, userID string) error
	ListUsers(ctx context.Context, principal application.Principal) ([]application.User, error)
}

// UserHandler serves the account administration endpoints. Authorization
// decisions stay in the service; the handler only shapes requests.
type UserHandler struct {
	service   userService
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	logger := h.log(ctx, "List")

	users, err := h.service.ListUsers(ctx, principal)
	if err != nil {
		h.responder.fail(ctx, w, logger, "user list failed", err)
		return
	}

	body := listUsersResponse{Users: make([]userDTO, len(users))}
	for i, user := range users {
		body.Users[i] = newUserDTO(user)
	}
	logger.InfoContext(ctx, "users listed", "result_count", len(users))
	h.responder.writeJSON(ctx, w, http.StatusOK, body)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	userID, ok := h.responder.pathID(w, r, UserIDFromContext, errInvalidUserID)
	if !ok {
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	user, err := h.service.GetUser(ctx, principal, userID)
	if err != nil {
		h.responder.fail(ctx, w, h.log(ctx, "Get"), "user lookup failed", err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, userResponse{User: newUserDTO(user)})
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	ctx := r.Context()
	logger := h.log(ctx, "Create")

	var req userRequest
	if !h.responder.decodeJSON(w, r, logger, &req) {
		return
	}
	principal, _ := PrincipalFromContext(ctx)

	user, err := h.service.CreateUser(ctx, application.CreateUserParams{
		Principal: principal,
		Input:     req.input(),
	})
	if err != nil {
		h.responder.fail(ctx, w, logger, "user creation failed", err)
		return
	}

	logger.InfoContext(ctx, "user created", "created_user_id", user.ID)
	h.responder.writeJSON(ctx, w, http.StatusCreated, userResponse{User: newUserDTO(user)})
}

// Update replaces the editable profile. An empty password keeps the stored
// credential.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	userID, ok := h.responder.pathID(w, r, UserIDFromContext, errInvalidUserID)
	if !ok {
		return
	}
	ctx := r.Context()
	logger := h.log(ctx, "Update")

	var req userRequest
	if !h.responder.decodeJSON(w, r, logger, &req) {
		return
	}
	principal, _ := PrincipalFromContext(ctx)

	user, err := h.service.UpdateUser(ctx, application.UpdateUserParams{
		Principal: principal,
		UserID:    userID,
		Input:     req.input(),
	})
	if err != nil {
		h.responder.fail(ctx, w, logger, "user update failed", err)
		return
	}

	logger.InfoContext(ctx, "user updated")
	h.responder.writeJSON(ctx, w, http.StatusOK, userResponse{User: newUserDTO(user)})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	userID, ok := h.responder.pathID(w, r, UserIDFromContext, errInvalidUserID)
	if !ok {
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	logger := h.log(ctx, "Delete")

	if err := h.service.DeleteUser(ctx, principal, userID); err != nil {
		h.responder.fail(ctx, w, logger, "user delete failed", err)
		return
	}
	logger.InfoContext(ctx, "user deleted")
	w.WriteHeader(http.StatusNoContent)
}

type userRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	IsAdmin     bool   `json:"is_admin"`
	Disabled    bool   `json:"disabled"`
}

func (req userRequest) input() application.UserInput {
	in := application.UserInput{
		Password: req.Password,
		IsAdmin:  req.IsAdmin,
		Disabled: req.Disabled,
	}
	in.Email = strings.TrimSpace(req.Email)
	in.DisplayName = strings.TrimSpace(req.DisplayName)
	return in
}

type userDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	IsAdmin     bool   `json:"is_admin"`
	Disabled    bool   `json:"disabled"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func newUserDTO(u application.User) userDTO {
	dto := userDTO{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		IsAdmin:     u.IsAdmin,
		Disabled:    u.Disabled,
	}
	dto.CreatedAt = formatTimestamp(u.CreatedAt)
	dto.UpdatedAt = formatTimestamp(u.UpdatedAt)
	return dto
}

type (
	userResponse struct {
		User userDTO `json:"user"`
	}
	listUsersResponse struct {
		Users []userDTO `json:"users"`
	}
)

// formatTimestamp renders audit timestamps in UTC.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
