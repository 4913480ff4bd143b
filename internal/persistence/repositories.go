package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// RoomRepository exposes CRUD operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// ReservationSort names a sortable reservation column.
type ReservationSort string

const (
	SortByDate      ReservationSort = "date"
	SortByStartTime ReservationSort = "start_time"
	SortByRoomName  ReservationSort = "room_name"
	SortByUserName  ReservationSort = "user_name"
	SortByStatus    ReservationSort = "status"
)

// ReservationFilter narrows reservation queries. Zero values match all.
type ReservationFilter struct {
	RoomID     string
	UserID     string
	Date       string
	SeriesID   string
	ActiveOnly bool
	SortBy     ReservationSort
	Descending bool
}

// ReservationRepository stores reservations.
//
// CreateReservation and UpdateReservation check for overlapping confirmed
// reservations of the same room and date inside the same write transaction
// and return ErrConflict instead of writing.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) error
	UpdateReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	ListReservationDetails(ctx context.Context, filter ReservationFilter) ([]ReservationDetail, error)
	CancelReservation(ctx context.Context, id, cancelledBy string, at time.Time) (Reservation, error)
	CancelSeries(ctx context.Context, seriesID, cancelledBy string, at time.Time) (int, error)
	SetCalendarEventID(ctx context.Context, id, eventID string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
