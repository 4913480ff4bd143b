package application

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// maxRoomNameLength bounds room names as shown in booking listings.
const maxRoomNameLength = 100

// RoomRepository captures the persistence operations needed by the service.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, id string) (Room, error)
	UpdateRoom(ctx context.Context, room Room) (Room, error)
	DeleteRoom(ctx context.Context, id string) error
	ListRooms(ctx context.Context) ([]Room, error)
}

// RoomService maintains the room catalog. Writes are restricted to
// administrators; any authenticated user can read.
type RoomService struct {
	rooms       RoomRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomRepository, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, idGenerator, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{rooms: rooms, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom adds a room to the catalog. New rooms are bookable unless the
// input says otherwise. Without a repository the validated room is returned
// unsaved.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if vErr := validateRoomInput(params.Input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	room = Room{ID: s.idGenerator(), IsActive: true, CreatedAt: now, UpdatedAt: now}
	applyRoomInput(&room, params.Input)

	if s.rooms == nil {
		return
	}
	room, err = s.rooms.CreateRoom(ctx, room)
	err = mapRoomRepoError(err)
	return
}

// UpdateRoom replaces the editable attributes of a room. IsActive keeps its
// stored value when the input leaves it unset.
func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("is_active", room.IsActive).InfoContext(ctx, "room updated")
	}()

	room, err = s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}
	if vErr := validateRoomInput(params.Input); vErr.HasErrors() {
		err = vErr
		return
	}

	applyRoomInput(&room, params.Input)
	room.UpdatedAt = s.now()

	room, err = s.rooms.UpdateRoom(ctx, room)
	err = mapRoomRepoError(err)
	return
}

// GetRoom returns a single room for any authenticated user.
func (s *RoomService) GetRoom(ctx context.Context, principal Principal, roomID string) (Room, error) {
	if s == nil {
		return Room{}, fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return Room{}, fmt.Errorf("room repository not configured")
	}
	room, err := s.rooms.GetRoom(ctx, strings.TrimSpace(roomID))
	if err != nil {
		return Room{}, mapRoomRepoError(err)
	}
	return room, nil
}

// DeleteRoom removes a room that has never been booked. Rooms with
// reservation history fail with ErrInUse and should be deactivated instead.
func (s *RoomService) DeleteRoom(ctx context.Context, principal Principal, roomID string) (err error) {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteRoom", "principal_id", principal.UserID, "room_id", roomID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room deleted")
	}()

	return mapRoomRepoError(s.rooms.DeleteRoom(ctx, roomID))
}

// ListRooms returns every room, active or not, ordered by name without
// regard to case and then by id.
func (s *RoomService) ListRooms(ctx context.Context, principal Principal) (rooms []Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListRooms", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).DebugContext(ctx, "rooms listed")
	}()

	var stored []Room
	stored, err = s.rooms.ListRooms(ctx)
	if err != nil {
		return
	}

	rooms = slices.Clone(stored)
	slices.SortFunc(rooms, func(a, b Room) int {
		return cmp.Or(
			strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			strings.Compare(a.ID, b.ID),
		)
	})
	return
}

func applyRoomInput(room *Room, input RoomInput) {
	room.Name = strings.TrimSpace(input.Name)
	room.Location = strings.TrimSpace(input.Location)
	room.Capacity = input.Capacity
	room.Amenities = normalizeAmenities(input.Amenities)
	if input.IsActive != nil {
		room.IsActive = *input.IsActive
	}
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}

	switch name := strings.TrimSpace(input.Name); {
	case name == "":
		vErr.add("name", "name is required")
	case len(name) > maxRoomNameLength:
		vErr.add("name", fmt.Sprintf("name must be at most %d characters", maxRoomNameLength))
	}
	if strings.TrimSpace(input.Location) == "" {
		vErr.add("location", "location is required")
	}
	if input.Capacity <= 0 {
		vErr.add("capacity", "capacity must be positive")
	}

	return vErr
}

func mapRoomRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrInUse
	case errors.Is(err, persistence.ErrConstraintViolation):
		return newFieldError("capacity", "capacity must be positive")
	default:
		return err
	}
}

// normalizeAmenities trims entries and drops blanks and case-insensitive
// duplicates, keeping the first spelling.
func normalizeAmenities(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup || trimmed == "" {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
