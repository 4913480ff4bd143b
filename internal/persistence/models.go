package persistence

import "time"

// User represents an account that can book rooms.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room represents a bookable meeting room.
type Room struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	Amenities []string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	// ReservationConfirmed is the initial state.
	ReservationConfirmed ReservationStatus = "confirmed"
	// ReservationCancelled is terminal.
	ReservationCancelled ReservationStatus = "cancelled"
)

// RecurrenceRule records how a series was generated. It is informational.
type RecurrenceRule struct {
	RepeatEvery  int
	RepeatPeriod string
	WeekDays     []time.Weekday
}

// Reservation is a booking of one room for a time range on one date.
// Date is "YYYY-MM-DD" and times are "HH:mm" organization wall-clock values.
type Reservation struct {
	ID                string
	RoomID            string
	UserID            string
	RoomName          string
	RoomLocation      string
	Date              string
	StartTime         string
	EndTime           string
	Title             string
	Description       string
	ParticipantEmails []string
	Status            ReservationStatus
	SeriesID          *string
	Recurrence        *RecurrenceRule
	CalendarEventID   *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CancelledAt       *time.Time
	CancelledBy       *string
}

// ReservationDetail joins a reservation with its owner for administrative
// listings.
type ReservationDetail struct {
	Reservation
	UserName  string
	UserEmail string
}

// Session represents a login session referenced by a signed token.
type Session struct {
	ID          string
	UserID      string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}
