package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/room-booking/internal/adapter"
	"github.com/example/room-booking/internal/persistence/sqlite"
	"github.com/example/room-booking/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides application-facing repositories backed by a
// temporary, migrated SQLite database.
type SQLiteHarness struct {
	Pool         *sqlite.ConnectionPool
	Users        *adapter.Users
	Rooms        *adapter.Rooms
	Reservations *adapter.Reservations
	Sessions     *adapter.Sessions
}

// NewSQLiteHarness opens and migrates a database under tb.TempDir. The pool is
// closed when the test finishes.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "booking.db")
	pool, err := sqlite.NewConnectionPool(migration.TempFileTestSQLiteConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = pool.Close() })

	if err := pool.Migrate(context.Background(), nil); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	return &SQLiteHarness{
		Pool:         pool,
		Users:        adapter.NewUsers(sqlite.NewUserRepository(pool)),
		Rooms:        adapter.NewRooms(sqlite.NewRoomRepository(pool)),
		Reservations: adapter.NewReservations(sqlite.NewReservationRepository(pool)),
		Sessions:     adapter.NewSessions(sqlite.NewSessionRepository(pool)),
	}
}

// SeedUsers stores the fixtures, failing the test on error.
func (h *SQLiteHarness) SeedUsers(tb testing.TB, users ...UserFixture) {
	tb.Helper()
	for _, user := range users {
		if _, err := h.Users.CreateUser(context.Background(), user.Credentials()); err != nil {
			tb.Fatalf("seed user %s: %v", user.ID, err)
		}
	}
}

// SeedRooms stores the fixtures, failing the test on error.
func (h *SQLiteHarness) SeedRooms(tb testing.TB, rooms ...RoomFixture) {
	tb.Helper()
	for _, room := range rooms {
		if _, err := h.Rooms.CreateRoom(context.Background(), room.Application()); err != nil {
			tb.Fatalf("seed room %s: %v", room.ID, err)
		}
	}
}

// SeedReservations stores the fixtures, failing the test on error.
func (h *SQLiteHarness) SeedReservations(tb testing.TB, reservations ...ReservationFixture) {
	tb.Helper()
	for _, reservation := range reservations {
		if _, err := h.Reservations.CreateReservation(context.Background(), reservation.Application()); err != nil {
			tb.Fatalf("seed reservation %s: %v", reservation.ID, err)
		}
	}
}
