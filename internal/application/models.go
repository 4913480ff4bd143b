package application

import "time"

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	// StatusConfirmed marks a live reservation that blocks its slot.
	StatusConfirmed ReservationStatus = "confirmed"
	// StatusCancelled marks a reservation that no longer blocks its slot.
	StatusCancelled ReservationStatus = "cancelled"
)

// RecurrenceRule records how a series member was generated.
type RecurrenceRule struct {
	RepeatEvery  int
	RepeatPeriod string
	// WeekDays uses 0 for Sunday through 6 for Saturday.
	WeekDays []int
}

// Reservation is a booking of one room on one date.
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

// Active reports whether the reservation still occupies its slot.
func (r Reservation) Active() bool {
	return r.Status != StatusCancelled
}

// ReservationDetail is a reservation joined with its owner.
type ReservationDetail struct {
	Reservation
	UserName  string
	UserEmail string
}

// ReservationInput captures caller provided reservation fields.
type ReservationInput struct {
	RoomID    string
	UserID    string
	Date      string
	StartTime string
	EndTime   string
	Title     string
	// Participants is a comma separated list of email addresses.
	Participants string
	Description  string
	// TimezoneOffset is the caller's UTC offset in minutes as reported by
	// browsers (UTC minus local time). Nil uses the server clock.
	TimezoneOffset *int
}

// CreateReservationParams wraps the data required to create a reservation.
type CreateReservationParams struct {
	Principal Principal
	Input     ReservationInput
}

// UpdateReservationParams wraps the data required to move or edit a reservation.
type UpdateReservationParams struct {
	Principal     Principal
	ReservationID string
	Input         ReservationChanges
}

// ReservationChanges describes a partial update. Empty slot fields and nil
// pointers keep the stored value; a pointer to "" clears a text field.
type ReservationChanges struct {
	RoomID    string
	UserID    string
	Date      string
	StartTime string
	EndTime   string
	Title     *string
	// Participants is a comma separated list of email addresses.
	Participants   *string
	Description    *string
	TimezoneOffset *int
}

// SeriesInput captures caller provided fields for a recurring reservation.
type SeriesInput struct {
	RoomID         string
	UserID         string
	StartDate      string
	EndDate        string
	StartTime      string
	EndTime        string
	IsAllDay       bool
	RepeatEvery    int
	RepeatPeriod   string
	WeekDays       []int
	Title          string
	Participants   string
	Description    string
	TimezoneOffset *int
}

// CreateSeriesParams wraps the data required to create a reservation series.
type CreateSeriesParams struct {
	Principal Principal
	Input     SeriesInput
}

// SeriesOutcomeKind tags the result of a single series date.
type SeriesOutcomeKind string

const (
	OutcomeCreated   SeriesOutcomeKind = "created"
	OutcomeConflict  SeriesOutcomeKind = "conflict"
	OutcomePastStart SeriesOutcomeKind = "past_start"
	OutcomeTooShort  SeriesOutcomeKind = "too_short"
)

// SeriesOutcome reports what happened to one expanded date.
type SeriesOutcome struct {
	Date          string
	Outcome       SeriesOutcomeKind
	ReservationID string
	Message       string
}

// SeriesResult summarizes a series creation. Partial success is not an error.
type SeriesResult struct {
	SeriesID     string
	CreatedCount int
	// Dates lists the dates that were booked, in order.
	Dates    []string
	Outcomes []SeriesOutcome
}

// AllConflicted reports whether every expanded date lost to an existing booking.
func (r SeriesResult) AllConflicted() bool {
	if len(r.Outcomes) == 0 {
		return false
	}
	for _, outcome := range r.Outcomes {
		if outcome.Outcome != OutcomeConflict {
			return false
		}
	}
	return true
}

// ListReservationsParams wraps filters for reservation listings.
type ListReservationsParams struct {
	Principal Principal
	RoomID    string
	UserID    string
	Date      string
}

// AdminListParams wraps filters and ordering for the administrative listing.
type AdminListParams struct {
	Principal Principal
	RoomID    string
	Date      string
	SortBy    string
	SortOrder string
}

// AvailabilityParams describes a requested slot.
type AvailabilityParams struct {
	Date      string
	StartTime string
	EndTime   string
	// RoomID narrows the check to a single room when set.
	RoomID string
}

// RoomAvailability is the availability of one room for the requested slot.
type RoomAvailability struct {
	RoomID            string
	RoomName          string
	IsAvailable       bool
	NextAvailableTime string
	ReservedBy        string
	ReservedByName    string
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name      string
	Location  string
	Capacity  int
	Amenities []string
	// IsActive defaults to true on create and to the stored value on update.
	IsActive *bool
}

// Room represents a catalog entry for a physical meeting room.
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

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    string
	Input     RoomInput
}

// UserInput captures caller provided user attributes.
type UserInput struct {
	Email       string
	DisplayName string
	IsAdmin     bool
	Disabled    bool
	// Password is required on create and optional on update.
	Password string
}

// User represents an account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	Disabled    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session represents an authenticated session issued to a user. Token is the
// signed bearer token; ID is its jti claim.
type Session struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email       string
	Password    string
	Fingerprint string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}
