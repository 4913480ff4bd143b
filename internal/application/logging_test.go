package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/room-booking/internal/logging"
	"github.com/example/room-booking/internal/scheduler"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  error
		want string
	}{
		"nil":          {err: nil, want: ""},
		"unauthorized": {err: ErrUnauthorized, want: "unauthorized"},
		"not found":    {err: fmt.Errorf("lookup: %w", ErrNotFound), want: "not_found"},
		"conflict":     {err: fmt.Errorf("%w: overlaps", ErrReservationConflict), want: "reservation_conflict"},
		"in use":       {err: ErrInUse, want: "in_use"},
		"expired":      {err: ErrSessionExpired, want: "session_expired"},
		"canceled":     {err: context.Canceled, want: "canceled"},
		"validation":   {err: newFieldError("date", "bad"), want: "validation"},
		"past start":   {err: &scheduler.PastStartError{}, want: "past_start"},
		"too short":    {err: &scheduler.TooShortDurationError{}, want: "too_short"},
		"format":       {err: &scheduler.FormatError{Field: "date"}, want: "format"},
		"unexpected":   {err: errors.New("boom"), want: "unexpected"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := ErrorKind(tc.err); got != tc.want {
				t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestServiceLoggerPrefersContextLogger(t *testing.T) {
	t.Parallel()

	var base, scoped bytes.Buffer
	baseLogger := slog.New(slog.NewJSONHandler(&base, nil))
	ctx := logging.ContextWithLogger(context.Background(), slog.New(slog.NewJSONHandler(&scoped, nil)))

	serviceLogger(ctx, baseLogger, "RoomService", "CreateRoom", "room_id", "room-1").Info("created")

	if base.Len() != 0 {
		t.Fatalf("expected base logger to stay silent, got %s", base.String())
	}
	for _, want := range []string{`"service":"RoomService"`, `"operation":"CreateRoom"`, `"room_id":"room-1"`} {
		if !strings.Contains(scoped.String(), want) {
			t.Fatalf("expected %s in %s", want, scoped.String())
		}
	}

	serviceLogger(context.Background(), baseLogger, "RoomService", "").Info("fallback")
	if !strings.Contains(base.String(), `"service":"RoomService"`) || strings.Contains(base.String(), `"operation"`) {
		t.Fatalf("unexpected fallback output %s", base.String())
	}
}
