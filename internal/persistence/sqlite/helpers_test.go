package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/sqlite/migration"
)

func newTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	path := filepath.Join(t.TempDir(), "booking.db")
	pool, err := NewConnectionPool(migration.TempFileTestSQLiteConfig(path))
	if err != nil {
		t.Fatalf("NewConnectionPool failed: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	if err := pool.Migrate(context.Background(), nil); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return pool
}

func seedUser(t *testing.T, pool *ConnectionPool, id, email string) persistence.User {
	t.Helper()

	user := persistence.User{
		ID:           id,
		Email:        email,
		DisplayName:  "User " + id,
		PasswordHash: "hash-" + id,
	}
	if err := NewUserRepository(pool).CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return user
}

func seedRoom(t *testing.T, pool *ConnectionPool, id, name string) persistence.Room {
	t.Helper()

	room := persistence.Room{
		ID:       id,
		Name:     name,
		Location: "Floor 3",
		Capacity: 8,
		IsActive: true,
	}
	if err := NewRoomRepository(pool).CreateRoom(context.Background(), room); err != nil {
		t.Fatalf("seed room %s: %v", id, err)
	}
	return room
}

func testReservation(id, roomID, userID, date, start, end string) persistence.Reservation {
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return persistence.Reservation{
		ID:        id,
		RoomID:    roomID,
		UserID:    userID,
		RoomName:  "Room " + roomID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Title:     "Sync " + id,
		CreatedAt: created,
		UpdatedAt: created,
	}
}
