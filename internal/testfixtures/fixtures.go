package testfixtures

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
)

var (
	userCounter        uint64
	roomCounter        uint64
	reservationCounter uint64
)

// referenceTime is a Monday morning; fixture bookings default to later that day.
var referenceTime = time.Date(2024, time.May, 6, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns ReferenceTime as a "YYYY-MM-DD" booking date.
func ReferenceDate() string {
	return referenceTime.Format("2006-01-02")
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic account.
type UserFixture struct {
	ID           string
	Email        string
	DisplayName  string
	Password     string
	PasswordHash string
	IsAdmin      bool
	Disabled     bool
	CreatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
// PasswordHash is a placeholder; use WithUserPassword for accounts that log in.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	fixture := UserFixture{
		ID:           id,
		Email:        id + "@example.com",
		DisplayName:  fmt.Sprintf("User %03d", idx),
		PasswordHash: "hash-" + id,
		CreatedAt:    referenceTime.Add(-time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserAdmin marks the fixture as an administrator.
func WithUserAdmin() UserOption {
	return func(f *UserFixture) {
		f.IsAdmin = true
	}
}

// WithUserDisabled marks the fixture as disabled.
func WithUserDisabled() UserOption {
	return func(f *UserFixture) {
		f.Disabled = true
	}
}

// WithUserPassword hashes password with argon2id and stores both values.
// It panics if hashing fails.
func WithUserPassword(password string) UserOption {
	return func(f *UserFixture) {
		hash, err := application.HashPassword(password)
		if err != nil {
			panic(fmt.Sprintf("hash fixture password: %v", err))
		}
		f.Password = password
		f.PasswordHash = hash
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		IsAdmin:     f.IsAdmin,
		Disabled:    f.Disabled,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
	}
}

// Credentials returns the fixture as application.UserCredentials.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{User: f.Application(), PasswordHash: f.PasswordHash}
}

// Principal returns the principal acting as this user.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, IsAdmin: f.IsAdmin}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		IsAdmin:      f.IsAdmin,
		Disabled:     f.Disabled,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic meeting room.
type RoomFixture struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	Amenities []string
	Inactive  bool
	CreatedAt time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic, active room fixture.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	fixture := RoomFixture{
		ID:        fmt.Sprintf("room-%03d", idx),
		Name:      fmt.Sprintf("Room %03d", idx),
		Location:  "Main Office",
		Capacity:  int(4 + idx%4),
		Amenities: []string{"whiteboard"},
		CreatedAt: referenceTime.Add(-time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomInactive takes the room out of the bookable catalog.
func WithRoomInactive() RoomOption {
	return func(f *RoomFixture) {
		f.Inactive = true
	}
}

// Application returns the fixture as an application.Room value.
func (f RoomFixture) Application() application.Room {
	return application.Room{
		ID:        f.ID,
		Name:      f.Name,
		Location:  f.Location,
		Capacity:  f.Capacity,
		Amenities: append([]string(nil), f.Amenities...),
		IsActive:  !f.Inactive,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:        f.ID,
		Name:      f.Name,
		Location:  f.Location,
		Capacity:  f.Capacity,
		Amenities: append([]string(nil), f.Amenities...),
		IsActive:  !f.Inactive,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// Input returns the fixture as an application.RoomInput.
func (f RoomFixture) Input() application.RoomInput {
	active := !f.Inactive
	return application.RoomInput{
		Name:      f.Name,
		Location:  f.Location,
		Capacity:  f.Capacity,
		Amenities: append([]string(nil), f.Amenities...),
		IsActive:  &active,
	}
}

// -------------------------- Reservation fixtures --------------------------

// ReservationFixture represents a deterministic booking. It defaults to
// 10:00-11:00 on ReferenceDate.
type ReservationFixture struct {
	ID           string
	RoomID       string
	UserID       string
	Date         string
	StartTime    string
	EndTime      string
	Title        string
	Participants []string
	SeriesID     string
	Cancelled    bool
	CreatedAt    time.Time
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a deterministic reservation for room and user.
func NewReservationFixture(roomID, userID string, opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	fixture := ReservationFixture{
		ID:        fmt.Sprintf("reservation-%03d", idx),
		RoomID:    roomID,
		UserID:    userID,
		Date:      ReferenceDate(),
		StartTime: "10:00",
		EndTime:   "11:00",
		Title:     fmt.Sprintf("Meeting %03d", idx),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID overrides the generated reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.ID = id
	}
}

// WithReservationSlot places the reservation on date between start and end.
func WithReservationSlot(date, start, end string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Date = date
		f.StartTime = start
		f.EndTime = end
	}
}

// WithReservationParticipants sets the invited email addresses.
func WithReservationParticipants(emails ...string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Participants = append([]string(nil), emails...)
	}
}

// WithReservationSeries attaches the reservation to a series.
func WithReservationSeries(seriesID string) ReservationOption {
	return func(f *ReservationFixture) {
		f.SeriesID = seriesID
	}
}

// WithReservationCancelled marks the reservation as cancelled.
func WithReservationCancelled() ReservationOption {
	return func(f *ReservationFixture) {
		f.Cancelled = true
	}
}

// Application returns the fixture as an application.Reservation value.
func (f ReservationFixture) Application() application.Reservation {
	reservation := application.Reservation{
		ID:                f.ID,
		RoomID:            f.RoomID,
		UserID:            f.UserID,
		Date:              f.Date,
		StartTime:         f.StartTime,
		EndTime:           f.EndTime,
		Title:             f.Title,
		ParticipantEmails: append([]string(nil), f.Participants...),
		Status:            application.StatusConfirmed,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.CreatedAt,
	}
	if f.SeriesID != "" {
		series := f.SeriesID
		reservation.SeriesID = &series
	}
	if f.Cancelled {
		at := f.CreatedAt
		by := f.UserID
		reservation.Status = application.StatusCancelled
		reservation.CancelledAt = &at
		reservation.CancelledBy = &by
	}
	return reservation
}

// Persistence returns the fixture as a persistence.Reservation value.
func (f ReservationFixture) Persistence() persistence.Reservation {
	model := persistence.Reservation{
		ID:                f.ID,
		RoomID:            f.RoomID,
		UserID:            f.UserID,
		Date:              f.Date,
		StartTime:         f.StartTime,
		EndTime:           f.EndTime,
		Title:             f.Title,
		ParticipantEmails: append([]string(nil), f.Participants...),
		Status:            persistence.ReservationConfirmed,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.CreatedAt,
	}
	if f.SeriesID != "" {
		series := f.SeriesID
		model.SeriesID = &series
	}
	if f.Cancelled {
		at := f.CreatedAt
		by := f.UserID
		model.Status = persistence.ReservationCancelled
		model.CancelledAt = &at
		model.CancelledBy = &by
	}
	return model
}

// Input returns the fixture as an application.ReservationInput with no
// timezone offset.
func (f ReservationFixture) Input() application.ReservationInput {
	return application.ReservationInput{
		RoomID:       f.RoomID,
		UserID:       f.UserID,
		Date:         f.Date,
		StartTime:    f.StartTime,
		EndTime:      f.EndTime,
		Title:        f.Title,
		Participants: strings.Join(f.Participants, ","),
	}
}
