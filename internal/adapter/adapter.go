// Package adapter converts between the persistence models stored by the
// sqlite repositories and the models owned by the application services.
package adapter

import (
	"context"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
)

// Users adapts a persistence.UserRepository to the application user,
// directory and credential interfaces.
type Users struct {
	repo persistence.UserRepository
}

func NewUsers(repo persistence.UserRepository) *Users {
	return &Users{repo: repo}
}

func (a *Users) CreateUser(ctx context.Context, user application.UserCredentials) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user.User, user.PasswordHash)); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, user.User.ID)
}

func (a *Users) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

// UpdateUser writes the user. An empty PasswordHash keeps the stored one.
func (a *Users) UpdateUser(ctx context.Context, user application.UserCredentials) (application.User, error) {
	hash := user.PasswordHash
	if hash == "" {
		current, err := a.repo.GetUser(ctx, user.User.ID)
		if err != nil {
			return application.User{}, err
		}
		hash = current.PasswordHash
	}
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user.User, hash)); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, user.User.ID)
}

func (a *Users) DeleteUser(ctx context.Context, id string) error {
	return a.repo.DeleteUser(ctx, id)
}

func (a *Users) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

func (a *Users) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

// Rooms adapts a persistence.RoomRepository to the application room interfaces.
type Rooms struct {
	repo persistence.RoomRepository
}

func NewRooms(repo persistence.RoomRepository) *Rooms {
	return &Rooms{repo: repo}
}

func (a *Rooms) CreateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.CreateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, err
	}
	return a.GetRoom(ctx, room.ID)
}

func (a *Rooms) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *Rooms) UpdateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.UpdateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, err
	}
	return a.GetRoom(ctx, room.ID)
}

func (a *Rooms) DeleteRoom(ctx context.Context, id string) error {
	return a.repo.DeleteRoom(ctx, id)
}

func (a *Rooms) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toApplicationRoom(model))
	}
	return rooms, nil
}

// Reservations adapts a persistence.ReservationRepository to the
// application reservation interfaces.
type Reservations struct {
	repo persistence.ReservationRepository
}

func NewReservations(repo persistence.ReservationRepository) *Reservations {
	return &Reservations{repo: repo}
}

func (a *Reservations) CreateReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	if err := a.repo.CreateReservation(ctx, toPersistenceReservation(reservation)); err != nil {
		return application.Reservation{}, err
	}
	return a.GetReservation(ctx, reservation.ID)
}

func (a *Reservations) UpdateReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	if err := a.repo.UpdateReservation(ctx, toPersistenceReservation(reservation)); err != nil {
		return application.Reservation{}, err
	}
	return a.GetReservation(ctx, reservation.ID)
}

func (a *Reservations) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *Reservations) ListReservations(ctx context.Context, filter application.ReservationFilter) ([]application.ReservationDetail, error) {
	models, err := a.repo.ListReservationDetails(ctx, persistence.ReservationFilter{
		RoomID:     filter.RoomID,
		UserID:     filter.UserID,
		Date:       filter.Date,
		SeriesID:   filter.SeriesID,
		ActiveOnly: filter.ActiveOnly,
		SortBy:     persistence.ReservationSort(filter.SortBy),
		Descending: filter.Descending,
	})
	if err != nil {
		return nil, err
	}
	details := make([]application.ReservationDetail, 0, len(models))
	for _, model := range models {
		details = append(details, application.ReservationDetail{
			Reservation: toApplicationReservation(model.Reservation),
			UserName:    model.UserName,
			UserEmail:   model.UserEmail,
		})
	}
	return details, nil
}

func (a *Reservations) CancelReservation(ctx context.Context, id, cancelledBy string, at time.Time) (application.Reservation, error) {
	stored, err := a.repo.CancelReservation(ctx, id, cancelledBy, at)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *Reservations) CancelSeries(ctx context.Context, seriesID, cancelledBy string, at time.Time) (int, error) {
	return a.repo.CancelSeries(ctx, seriesID, cancelledBy, at)
}

func (a *Reservations) SetCalendarEventID(ctx context.Context, id, eventID string) error {
	return a.repo.SetCalendarEventID(ctx, id, eventID)
}

// Sessions adapts a persistence.SessionRepository. Sessions are stored by
// their token id; the signed token itself is never persisted.
type Sessions struct {
	repo persistence.SessionRepository
}

func NewSessions(repo persistence.SessionRepository) *Sessions {
	return &Sessions{repo: repo}
}

func (a *Sessions) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	result := toApplicationSession(stored)
	result.Token = session.Token
	return result, nil
}

func (a *Sessions) GetSession(ctx context.Context, id string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *Sessions) RevokeSession(ctx context.Context, id string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, id, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *Sessions) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

var (
	_ application.UserRepository        = (*Users)(nil)
	_ application.CredentialStore       = (*Users)(nil)
	_ application.UserDirectory         = (*Users)(nil)
	_ application.RoomRepository        = (*Rooms)(nil)
	_ application.RoomLister            = (*Rooms)(nil)
	_ application.ReservationRepository = (*Reservations)(nil)
	_ application.ReservationLister     = (*Reservations)(nil)
	_ application.SessionRepository     = (*Sessions)(nil)
)
