package http

import (
	"context"
	"log/slog"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// handlerLogger returns the request logger, or fallback when the request has
// none, tagged with the handler, the operation and any resource ids taken
// from the request path.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
	}

	pairs := make([]any, 0, 4+len(attrs))
	pairs = append(pairs, "handler", handlerName)
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	pairs = append(pairs, pathIDs(ctx)...)
	return logger.With(append(pairs, attrs...)...)
}

func pathIDs(ctx context.Context) []any {
	var ids []any
	if id, ok := ReservationIDFromContext(ctx); ok && id != "" {
		ids = append(ids, "reservation_id", id)
	}
	if id, ok := SeriesIDFromContext(ctx); ok && id != "" {
		ids = append(ids, "series_id", id)
	}
	if id, ok := RoomIDFromContext(ctx); ok && id != "" {
		ids = append(ids, "room_id", id)
	}
	if id, ok := UserIDFromContext(ctx); ok && id != "" {
		ids = append(ids, "user_id", id)
	}
	return ids
}
