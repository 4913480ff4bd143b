package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// MinPasswordLength is the shortest password accepted for new credentials.
const MinPasswordLength = 8

// UserRepository captures the persistence operations needed by the user service.
// UpdateUser keeps the stored password hash when PasswordHash is empty.
type UserRepository interface {
	CreateUser(ctx context.Context, user UserCredentials) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, user UserCredentials) (User, error)
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]User, error)
}

// PasswordHasher derives a storable hash from a plain password.
type PasswordHasher func(password string) (string, error)

// UserService orchestrates validation, authorization, and persistence for users.
type UserService struct {
	users       UserRepository
	hash        PasswordHasher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, hash PasswordHasher, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hash, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies with a specified logger.
func NewUserServiceWithLogger(users UserRepository, hash PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hash == nil {
		hash = HashPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hash: hash, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser validates input and persists a new user for administrators.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateUser", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	normalized := normalizeUserInput(params.Input)
	vErr := validateUserInput(normalized)
	if normalized.Password == "" {
		vErr.add("password", "password is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var passwordHash string
	passwordHash, err = s.hash(normalized.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	user = User{
		ID:          s.idGenerator(),
		Email:       normalized.Email,
		DisplayName: normalized.DisplayName,
		IsAdmin:     normalized.IsAdmin,
		Disabled:    normalized.Disabled,
		CreatedAt:   s.now(),
	}
	user.UpdatedAt = user.CreatedAt

	if s.users == nil {
		return
	}

	user, err = s.users.CreateUser(ctx, UserCredentials{User: user, PasswordHash: passwordHash})
	if err != nil {
		err = mapUserRepoError(err)
	}
	return
}

// GetUser returns a user to administrators or to the user themselves.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	userID = strings.TrimSpace(userID)
	if userID != principal.UserID && !principal.IsAdmin {
		return User{}, ErrUnauthorized
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}
	return user, nil
}

// UpdateUser validates input and updates an existing user for administrators.
// An empty password keeps the current one.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUser",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	var existing User
	existing, err = s.users.GetUser(ctx, params.UserID)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}

	normalized := normalizeUserInput(params.Input)
	vErr := validateUserInput(normalized)
	if existing.ID == params.Principal.UserID {
		if !normalized.IsAdmin {
			vErr.add("is_admin", "administrators cannot revoke their own privileges")
		}
		if normalized.Disabled {
			vErr.add("disabled", "administrators cannot disable themselves")
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var passwordHash string
	if normalized.Password != "" {
		passwordHash, err = s.hash(normalized.Password)
		if err != nil {
			err = fmt.Errorf("hash password: %w", err)
			return
		}
	}

	updated := existing
	updated.Email = normalized.Email
	updated.DisplayName = normalized.DisplayName
	updated.IsAdmin = normalized.IsAdmin
	updated.Disabled = normalized.Disabled
	updated.UpdatedAt = s.now()

	user, err = s.users.UpdateUser(ctx, UserCredentials{User: updated, PasswordHash: passwordHash})
	if err != nil {
		err = mapUserRepoError(err)
	}
	return
}

// DeleteUser removes a user when requested by an administrator. Users with
// reservation history cannot be deleted; disable them instead.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteUser",
		"principal_id", principal.UserID,
		"user_id", userID,
	)

	if userID == principal.UserID {
		err := newFieldError("user_id", "administrators cannot delete themselves")
		logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		err = mapUserRepoError(err)
		logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "user deleted")
	return nil
}

// ListUsers returns all users for administrators.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	if s.users == nil {
		return nil, nil
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapUserRepoError(err)
	}

	out := make([]User, len(users))
	copy(out, users)

	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].Email, out[j].Email) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Email) < strings.ToLower(out[j].Email)
	})

	return out, nil
}

func normalizeUserInput(input UserInput) UserInput {
	return UserInput{
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		DisplayName: strings.TrimSpace(input.DisplayName),
		IsAdmin:     input.IsAdmin,
		Disabled:    input.Disabled,
		Password:    input.Password,
	}
}

func validateUserInput(input UserInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "email is invalid")
	}

	if input.DisplayName == "" {
		vErr.add("display_name", "display name is required")
	}

	if input.Password != "" && len(input.Password) < MinPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	return vErr
}

func mapUserRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrInUse
	}
	return err
}
