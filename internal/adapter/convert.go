package adapter

import (
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
)

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		IsAdmin:     model.IsAdmin,
		Disabled:    model.Disabled,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		PasswordHash: passwordHash,
		IsAdmin:      user.IsAdmin,
		Disabled:     user.Disabled,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationRoom(model persistence.Room) application.Room {
	return application.Room{
		ID:        model.ID,
		Name:      model.Name,
		Location:  model.Location,
		Capacity:  model.Capacity,
		Amenities: append([]string(nil), model.Amenities...),
		IsActive:  model.IsActive,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceRoom(room application.Room) persistence.Room {
	return persistence.Room{
		ID:        room.ID,
		Name:      room.Name,
		Location:  room.Location,
		Capacity:  room.Capacity,
		Amenities: append([]string(nil), room.Amenities...),
		IsActive:  room.IsActive,
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
}

func toApplicationReservation(model persistence.Reservation) application.Reservation {
	reservation := application.Reservation{
		ID:                model.ID,
		RoomID:            model.RoomID,
		UserID:            model.UserID,
		RoomName:          model.RoomName,
		RoomLocation:      model.RoomLocation,
		Date:              model.Date,
		StartTime:         model.StartTime,
		EndTime:           model.EndTime,
		Title:             model.Title,
		Description:       model.Description,
		ParticipantEmails: append([]string(nil), model.ParticipantEmails...),
		Status:            application.ReservationStatus(model.Status),
		SeriesID:          cloneString(model.SeriesID),
		CalendarEventID:   cloneString(model.CalendarEventID),
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
		CancelledAt:       cloneTime(model.CancelledAt),
		CancelledBy:       cloneString(model.CancelledBy),
	}
	if model.Recurrence != nil {
		days := make([]int, 0, len(model.Recurrence.WeekDays))
		for _, day := range model.Recurrence.WeekDays {
			days = append(days, int(day))
		}
		reservation.Recurrence = &application.RecurrenceRule{
			RepeatEvery:  model.Recurrence.RepeatEvery,
			RepeatPeriod: model.Recurrence.RepeatPeriod,
			WeekDays:     days,
		}
	}
	return reservation
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	status := persistence.ReservationStatus(reservation.Status)
	if status == "" {
		status = persistence.ReservationConfirmed
	}
	model := persistence.Reservation{
		ID:                reservation.ID,
		RoomID:            reservation.RoomID,
		UserID:            reservation.UserID,
		RoomName:          reservation.RoomName,
		RoomLocation:      reservation.RoomLocation,
		Date:              reservation.Date,
		StartTime:         reservation.StartTime,
		EndTime:           reservation.EndTime,
		Title:             reservation.Title,
		Description:       reservation.Description,
		ParticipantEmails: append([]string(nil), reservation.ParticipantEmails...),
		Status:            status,
		SeriesID:          cloneString(reservation.SeriesID),
		CalendarEventID:   cloneString(reservation.CalendarEventID),
		CreatedAt:         reservation.CreatedAt,
		UpdatedAt:         reservation.UpdatedAt,
		CancelledAt:       cloneTime(reservation.CancelledAt),
		CancelledBy:       cloneString(reservation.CancelledBy),
	}
	if reservation.Recurrence != nil {
		days := make([]time.Weekday, 0, len(reservation.Recurrence.WeekDays))
		for _, day := range reservation.Recurrence.WeekDays {
			days = append(days, time.Weekday(day))
		}
		model.Recurrence = &persistence.RecurrenceRule{
			RepeatEvery:  reservation.Recurrence.RepeatEvery,
			RepeatPeriod: reservation.Recurrence.RepeatPeriod,
			WeekDays:     days,
		}
	}
	return model
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:          model.ID,
		UserID:      model.UserID,
		Fingerprint: model.Fingerprint,
		ExpiresAt:   model.ExpiresAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
		RevokedAt:   cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:          session.ID,
		UserID:      session.UserID,
		Fingerprint: session.Fingerprint,
		ExpiresAt:   session.ExpiresAt,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
		RevokedAt:   cloneTime(session.RevokedAt),
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
