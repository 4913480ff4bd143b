package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/room-booking/internal/logging"
	"github.com/example/room-booking/internal/scheduler"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// serviceLogger prefers the request-scoped logger so that request ids and
// principals recorded by the HTTP layer follow the call into the service.
func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
	}
	logger = logger.With("service", serviceName)
	if operation != "" {
		logger = logger.With("operation", operation)
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}

// sentinelKinds is checked in order; the first match labels the error.
var sentinelKinds = []struct {
	target error
	kind   string
}{
	{ErrUnauthorized, "unauthorized"},
	{ErrNotFound, "not_found"},
	{ErrAlreadyExists, "already_exists"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrAccountDisabled, "account_disabled"},
	{ErrSessionExpired, "session_expired"},
	{ErrSessionRevoked, "session_revoked"},
	{ErrReservationConflict, "reservation_conflict"},
	{ErrInUse, "in_use"},
	{context.Canceled, "canceled"},
	{context.DeadlineExceeded, "canceled"},
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, sk := range sentinelKinds {
		if errors.Is(err, sk.target) {
			return sk.kind
		}
	}

	var (
		vErr      *ValidationError
		pastErr   *scheduler.PastStartError
		shortErr  *scheduler.TooShortDurationError
		formatErr *scheduler.FormatError
	)
	switch {
	case errors.As(err, &vErr):
		return "validation"
	case errors.As(err, &pastErr):
		return "past_start"
	case errors.As(err, &shortErr):
		return "too_short"
	case errors.As(err, &formatErr):
		return "format"
	default:
		return "unexpected"
	}
}
