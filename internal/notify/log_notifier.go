package notify

import (
	"context"
	"log/slog"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/logging"
)

// LogNotifier writes reservation events to the log instead of a broker.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a LogNotifier. A nil logger uses slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Publish logs the event at info level.
func (n *LogNotifier) Publish(ctx context.Context, event application.ReservationEvent) error {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = n.logger
	}
	logger.InfoContext(ctx, "reservation event",
		"event_type", event.Type,
		"reservation_id", event.ReservationID,
		"series_id", event.SeriesID,
		"room_id", event.RoomID,
		"date", event.Date,
		"dates", len(event.Dates),
		"attendees", len(event.Attendees),
	)
	return nil
}
