package application

import (
	"context"
	"time"
)

// EventType names a reservation lifecycle event.
type EventType string

const (
	EventReservationCreated   EventType = "reservation.created"
	EventReservationUpdated   EventType = "reservation.updated"
	EventReservationCancelled EventType = "reservation.cancelled"
	EventSeriesCreated        EventType = "reservation.series_created"
	EventSeriesCancelled      EventType = "reservation.series_cancelled"
)

// ReservationEvent is published after a reservation change has been
// committed. Calendar and email workers consume it.
type ReservationEvent struct {
	Type           EventType `json:"type"`
	OccurredAt     time.Time `json:"occurred_at"`
	ReservationID  string    `json:"reservation_id,omitempty"`
	SeriesID       string    `json:"series_id,omitempty"`
	RoomID         string    `json:"room_id"`
	RoomName       string    `json:"room_name,omitempty"`
	RoomLocation   string    `json:"room_location,omitempty"`
	Date           string    `json:"date,omitempty"`
	Dates          []string  `json:"dates,omitempty"`
	StartTime      string    `json:"start_time,omitempty"`
	EndTime        string    `json:"end_time,omitempty"`
	Title          string    `json:"title,omitempty"`
	Description    string    `json:"description,omitempty"`
	OrganizerID    string    `json:"organizer_id"`
	OrganizerName  string    `json:"organizer_name,omitempty"`
	OrganizerEmail string    `json:"organizer_email,omitempty"`
	Attendees      []string  `json:"attendees,omitempty"`
	// RRule is set for series events.
	RRule           string `json:"rrule,omitempty"`
	CalendarEventID string `json:"calendar_event_id,omitempty"`
	CancelledCount  int    `json:"cancelled_count,omitempty"`
}

// Notifier delivers reservation events to downstream collaborators.
// Delivery failures never undo the reservation change.
type Notifier interface {
	Publish(ctx context.Context, event ReservationEvent) error
}
