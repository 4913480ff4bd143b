package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/room-booking/internal/scheduler"
)

// AvailabilityCache stores computed availability per slot. Entries are
// grouped by date so that any booking change on a date can drop them.
type AvailabilityCache interface {
	Get(ctx context.Context, key AvailabilityKey) ([]RoomAvailability, bool)
	Store(ctx context.Context, key AvailabilityKey, results []RoomAvailability)
	InvalidateDate(ctx context.Context, date string)
}

// generationalCache is implemented by caches that can refuse results computed
// before the latest invalidation of their date.
type generationalCache interface {
	Generation(date string) uint64
	StoreIfCurrent(ctx context.Context, key AvailabilityKey, generation uint64, results []RoomAvailability) bool
}

// AvailabilityKey identifies one availability query.
type AvailabilityKey struct {
	Date      string
	StartTime string
	EndTime   string
	RoomID    string
}

// Field returns the key without its date, for caches that group by date.
func (k AvailabilityKey) Field() string {
	return k.StartTime + "|" + k.EndTime + "|" + k.RoomID
}

// RoomLister exposes the room catalog to availability checks.
type RoomLister interface {
	ListRooms(ctx context.Context) ([]Room, error)
	GetRoom(ctx context.Context, id string) (Room, error)
}

// ReservationLister exposes reservation reads to availability checks.
type ReservationLister interface {
	ListReservations(ctx context.Context, filter ReservationFilter) ([]ReservationDetail, error)
}

// AvailabilityService answers whether rooms are free for a slot.
type AvailabilityService struct {
	rooms        RoomLister
	reservations ReservationLister
	cache        AvailabilityCache
	logger       *slog.Logger
}

// NewAvailabilityService wires dependencies for availability checks.
func NewAvailabilityService(rooms RoomLister, reservations ReservationLister, cache AvailabilityCache) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(rooms, reservations, cache, nil)
}

// NewAvailabilityServiceWithLogger wires dependencies with a specified logger.
func NewAvailabilityServiceWithLogger(rooms RoomLister, reservations ReservationLister, cache AvailabilityCache, logger *slog.Logger) *AvailabilityService {
	return &AvailabilityService{
		rooms:        rooms,
		reservations: reservations,
		cache:        cache,
		logger:       defaultLogger(logger),
	}
}

// CheckAvailability reports, per active room, whether the requested slot is
// free. When RoomID is set only that room is checked; an unknown room id
// yields a single available entry.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, principal Principal, params AvailabilityParams) (results []RoomAvailability, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}

	key := AvailabilityKey{
		Date:      strings.TrimSpace(params.Date),
		StartTime: strings.TrimSpace(params.StartTime),
		EndTime:   strings.TrimSpace(params.EndTime),
		RoomID:    strings.TrimSpace(params.RoomID),
	}

	logger := serviceLogger(ctx, s.logger, "AvailabilityService", "CheckAvailability",
		"principal_id", principal.UserID,
		"date", key.Date,
		"room_id", key.RoomID,
	)
	cached := false
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to check availability", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(results), "cached", cached).DebugContext(ctx, "availability checked")
	}()

	vErr := &ValidationError{}
	if _, perr := scheduler.ParseDate(key.Date); perr != nil {
		vErr.add("date", "date must be YYYY-MM-DD")
	}
	start, serr := scheduler.TimeToMinutes(key.StartTime)
	if serr != nil {
		vErr.add("start_time", "start time must be HH:mm")
	}
	end, eerr := scheduler.TimeToMinutes(key.EndTime)
	if eerr != nil {
		vErr.add("end_time", "end time must be HH:mm")
	}
	if serr == nil && eerr == nil && end <= start {
		vErr.add("end_time", "end time must be after start time")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if s.cache != nil {
		if hit, ok := s.cache.Get(ctx, key); ok {
			cached = true
			results = hit
			return
		}
	}

	guard, guarded := s.cache.(generationalCache)
	var generation uint64
	if guarded {
		generation = guard.Generation(key.Date)
	}

	var rooms []Room
	rooms, err = s.candidateRooms(ctx, key.RoomID)
	if err != nil {
		return
	}

	filter := ReservationFilter{Date: key.Date, ActiveOnly: true, RoomID: key.RoomID}
	var details []ReservationDetail
	if s.reservations != nil {
		details, err = s.reservations.ListReservations(ctx, filter)
		if err != nil {
			err = mapReservationRepoError(err)
			return
		}
	}

	bookingsByRoom := make(map[string][]scheduler.Booking, len(rooms))
	names := make(map[string]string)
	for _, detail := range details {
		if !detail.Active() {
			continue
		}
		booking, berr := scheduler.NewBooking(detail.ID, detail.UserID, detail.StartTime, detail.EndTime)
		if berr != nil {
			logger.WarnContext(ctx, "skipping reservation with malformed times",
				"reservation_id", detail.ID,
				"error", berr,
			)
			continue
		}
		bookingsByRoom[detail.RoomID] = append(bookingsByRoom[detail.RoomID], booking)
		names[detail.UserID] = detail.UserName
	}

	roomIDs := make([]string, len(rooms))
	for i, room := range rooms {
		roomIDs[i] = room.ID
	}

	checked := scheduler.CheckAllRooms(roomIDs, bookingsByRoom, start, end)
	results = make([]RoomAvailability, len(checked))
	for i, availability := range checked {
		results[i] = RoomAvailability{
			RoomID:            availability.RoomID,
			RoomName:          rooms[i].Name,
			IsAvailable:       availability.IsAvailable,
			NextAvailableTime: availability.NextAvailableTime,
			ReservedBy:        availability.ReservedBy,
			ReservedByName:    names[availability.ReservedBy],
		}
	}

	switch {
	case guarded:
		if !guard.StoreIfCurrent(ctx, key, generation, results) {
			logger.DebugContext(ctx, "availability changed during the check; result not cached")
		}
	case s.cache != nil:
		s.cache.Store(ctx, key, results)
	}
	return
}

func (s *AvailabilityService) candidateRooms(ctx context.Context, roomID string) ([]Room, error) {
	if s.rooms == nil {
		if roomID == "" {
			return nil, nil
		}
		return []Room{{ID: roomID, IsActive: true}}, nil
	}

	if roomID != "" {
		room, err := s.rooms.GetRoom(ctx, roomID)
		if err != nil {
			if isNotFoundError(err) {
				return []Room{{ID: roomID}}, nil
			}
			return nil, err
		}
		return []Room{room}, nil
	}

	all, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	rooms := make([]Room, 0, len(all))
	for _, room := range all {
		if room.IsActive {
			rooms = append(rooms, room)
		}
	}
	return rooms, nil
}
