package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite
type RoomRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRoomRepository creates a new SQLite room repository
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const roomColumns = `id, name, location, capacity, amenities, is_active, created_at, updated_at`

// CreateRoom inserts a new room
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if err := validateRoom(room); err != nil {
		return err
	}

	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	if room.UpdatedAt.IsZero() {
		room.UpdatedAt = room.CreatedAt
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		room.ID,
		strings.TrimSpace(room.Name),
		room.Location,
		room.Capacity,
		encodeStringList(room.Amenities),
		room.IsActive,
		formatTime(room.CreatedAt),
		formatTime(room.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateRoom replaces the mutable fields of a room
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	if err := validateRoom(room); err != nil {
		return err
	}
	if room.UpdatedAt.IsZero() {
		room.UpdatedAt = time.Now().UTC()
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE rooms
		SET name = ?, location = ?, capacity = ?, amenities = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		strings.TrimSpace(room.Name),
		room.Location,
		room.Capacity,
		encodeStringList(room.Amenities),
		room.IsActive,
		formatTime(room.UpdatedAt),
		room.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetRoom retrieves a room by ID
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}
	return room, nil
}

// ListRooms returns all rooms ordered by name then ID
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return rooms, nil
}

// DeleteRoom removes a room that has never been booked. Rooms with
// reservation history must be deactivated instead.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var bookings int
		if err := r.helper.QueryRowTx(ctx, tx, `SELECT COUNT(*) FROM reservations WHERE room_id = ?`, id).Scan(&bookings); err != nil {
			return r.mapper.MapError(err)
		}
		if bookings > 0 {
			return fmt.Errorf("%w: room %s has %d reservations", persistence.ErrForeignKeyViolation, id, bookings)
		}

		result, err := r.helper.ExecTx(ctx, tx, `DELETE FROM rooms WHERE id = ?`, id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireAffected(result)
	})
}

func validateRoom(room persistence.Room) error {
	if room.ID == "" || strings.TrimSpace(room.Name) == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}
	return nil
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var (
		room                 persistence.Room
		amenities            string
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Location,
		&room.Capacity,
		&amenities,
		&room.IsActive,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Room{}, err
	}

	var err error
	if room.Amenities, err = decodeStringList("amenities", amenities); err != nil {
		return persistence.Room{}, err
	}
	if room.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}

// requireAffected turns a zero-row update or delete into ErrNotFound.
func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
