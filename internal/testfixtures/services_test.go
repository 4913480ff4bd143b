package testfixtures

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/example/room-booking/internal/application"
)

type capturingUserRepo struct {
	created application.UserCredentials
}

func (c *capturingUserRepo) CreateUser(ctx context.Context, user application.UserCredentials) (application.User, error) {
	c.created = user
	return user.User, nil
}

func (c *capturingUserRepo) GetUser(ctx context.Context, id string) (application.User, error) {
	return application.User{}, application.ErrNotFound
}

func (c *capturingUserRepo) UpdateUser(ctx context.Context, user application.UserCredentials) (application.User, error) {
	return user.User, nil
}

func (c *capturingUserRepo) DeleteUser(ctx context.Context, id string) error {
	return nil
}

func (c *capturingUserRepo) ListUsers(ctx context.Context) ([]application.User, error) {
	return nil, nil
}

func TestServiceFactoryNewUserService(t *testing.T) {
	t.Parallel()

	factory := NewServiceFactory()
	repo := &capturingUserRepo{}

	svc := factory.NewUserService(repo)
	principal := application.Principal{UserID: "admin", IsAdmin: true}
	input := application.UserInput{Email: "user@example.com", DisplayName: "User", Password: "correct horse"}

	user, err := svc.CreateUser(context.Background(), application.CreateUserParams{Principal: principal, Input: input})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	if user.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", user.ID)
	}
	if !user.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), user.CreatedAt)
	}
	if err := application.VerifyPassword(repo.created.PasswordHash, "correct horse"); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestConcurrentBookingsOfOneSlotAdmitExactlyOne(t *testing.T) {
	t.Parallel()

	harness := NewSQLiteHarness(t)
	factory := NewServiceFactory()
	services := factory.NewServices(harness)

	room := NewRoomFixture()
	alice := NewUserFixture()
	bob := NewUserFixture()
	harness.SeedRooms(t, room)
	harness.SeedUsers(t, alice, bob)

	var (
		wg      sync.WaitGroup
		results = make([]error, 2)
	)
	for i, user := range []UserFixture{alice, bob} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = services.Reservations.CreateReservation(context.Background(), application.CreateReservationParams{
				Principal: user.Principal(),
				Input:     NewReservationFixture(room.ID, user.ID).Input(),
			})
		}()
	}
	wg.Wait()

	var created, conflicted int
	for _, err := range results {
		switch {
		case err == nil:
			created++
		case errors.Is(err, application.ErrReservationConflict):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 || conflicted != 1 {
		t.Fatalf("expected one booking and one conflict, got %d and %d", created, conflicted)
	}
}

func TestAvailabilityFollowsBookingsThroughCache(t *testing.T) {
	t.Parallel()

	harness := NewSQLiteHarness(t)
	services := NewServiceFactory().NewServices(harness)

	room := NewRoomFixture()
	user := NewUserFixture()
	harness.SeedRooms(t, room, NewRoomFixture(WithRoomInactive()))
	harness.SeedUsers(t, user)

	params := application.AvailabilityParams{Date: ReferenceDate(), StartTime: "10:30", EndTime: "11:30"}
	ctx := context.Background()

	before, err := services.Availability.CheckAvailability(ctx, user.Principal(), params)
	if err != nil {
		t.Fatalf("CheckAvailability returned error: %v", err)
	}
	if len(before) != 1 || !before[0].IsAvailable {
		t.Fatalf("expected the single active room to be free, got %+v", before)
	}

	if _, err := services.Reservations.CreateReservation(ctx, application.CreateReservationParams{
		Principal: user.Principal(),
		Input:     NewReservationFixture(room.ID, user.ID).Input(),
	}); err != nil {
		t.Fatalf("CreateReservation returned error: %v", err)
	}

	after, err := services.Availability.CheckAvailability(ctx, user.Principal(), params)
	if err != nil {
		t.Fatalf("CheckAvailability returned error: %v", err)
	}
	if len(after) != 1 || after[0].IsAvailable {
		t.Fatalf("expected room to be booked after create, got %+v", after)
	}
	if after[0].ReservedBy != user.ID || after[0].ReservedByName != user.DisplayName {
		t.Fatalf("unexpected holder %q (%q)", after[0].ReservedBy, after[0].ReservedByName)
	}
	if after[0].NextAvailableTime != "11:00" {
		t.Fatalf("expected next available 11:00, got %q", after[0].NextAvailableTime)
	}
}

func TestSeriesSkipsConflictingDate(t *testing.T) {
	t.Parallel()

	harness := NewSQLiteHarness(t)
	services := NewServiceFactory().NewServices(harness)

	room := NewRoomFixture()
	owner := NewUserFixture()
	other := NewUserFixture()
	harness.SeedRooms(t, room)
	harness.SeedUsers(t, owner, other)
	harness.SeedReservations(t, NewReservationFixture(room.ID, other.ID, WithReservationSlot("2024-05-08", "10:30", "11:30")))

	result, err := services.Reservations.CreateSeries(context.Background(), application.CreateSeriesParams{
		Principal: owner.Principal(),
		Input: application.SeriesInput{
			RoomID:       room.ID,
			StartDate:    "2024-05-06",
			EndDate:      "2024-05-10",
			StartTime:    "10:00",
			EndTime:      "11:00",
			RepeatEvery:  1,
			RepeatPeriod: "day",
			Title:        "Standup",
		},
	})
	if err != nil {
		t.Fatalf("CreateSeries returned error: %v", err)
	}
	if result.CreatedCount != 4 || len(result.Outcomes) != 5 {
		t.Fatalf("expected 4 of 5 dates booked, got %d of %d", result.CreatedCount, len(result.Outcomes))
	}
	for _, outcome := range result.Outcomes {
		want := application.OutcomeCreated
		if outcome.Date == "2024-05-08" {
			want = application.OutcomeConflict
		}
		if outcome.Outcome != want {
			t.Fatalf("date %s: expected %s, got %s", outcome.Date, want, outcome.Outcome)
		}
	}

	count, err := services.Reservations.CancelSeries(context.Background(), owner.Principal(), result.SeriesID)
	if err != nil {
		t.Fatalf("CancelSeries returned error: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 cancelled reservations, got %d", count)
	}
}

func TestLoginSessionLifecycleOverSQLite(t *testing.T) {
	t.Parallel()

	harness := NewSQLiteHarness(t)
	services := NewServiceFactory().NewServices(harness)

	user := NewUserFixture(WithUserPassword("s3cret-pass"))
	harness.SeedUsers(t, user)
	ctx := context.Background()

	if _, err := services.Auth.Authenticate(ctx, application.AuthenticateParams{Email: user.Email, Password: "wrong"}); !errors.Is(err, application.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	result, err := services.Auth.Authenticate(ctx, application.AuthenticateParams{Email: user.Email, Password: user.Password})
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}

	principal, err := services.Auth.ValidateSession(ctx, result.Session.Token)
	if err != nil {
		t.Fatalf("ValidateSession returned error: %v", err)
	}
	if principal.UserID != user.ID {
		t.Fatalf("expected principal %s, got %s", user.ID, principal.UserID)
	}

	if err := services.Auth.RevokeSession(ctx, result.Session.Token); err != nil {
		t.Fatalf("RevokeSession returned error: %v", err)
	}
	if _, err := services.Auth.ValidateSession(ctx, result.Session.Token); !errors.Is(err, application.ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestRescheduleKeepsReservationDetails(t *testing.T) {
	t.Parallel()

	harness := NewSQLiteHarness(t)
	services := NewServiceFactory().NewServices(harness)

	room := NewRoomFixture()
	user := NewUserFixture()
	harness.SeedRooms(t, room)
	harness.SeedUsers(t, user)
	ctx := context.Background()

	input := NewReservationFixture(room.ID, user.ID, WithReservationParticipants("a@example.com")).Input()
	input.Title = "Board review"
	input.Description = "Q2"
	created, err := services.Reservations.CreateReservation(ctx, application.CreateReservationParams{
		Principal: user.Principal(),
		Input:     input,
	})
	if err != nil {
		t.Fatalf("CreateReservation returned error: %v", err)
	}

	if _, err := services.Reservations.UpdateReservation(ctx, application.UpdateReservationParams{
		Principal:     user.Principal(),
		ReservationID: created.ID,
		Input:         application.ReservationChanges{StartTime: "13:00", EndTime: "14:00"},
	}); err != nil {
		t.Fatalf("UpdateReservation returned error: %v", err)
	}

	stored, err := services.Reservations.GetReservation(ctx, user.Principal(), created.ID)
	if err != nil {
		t.Fatalf("GetReservation returned error: %v", err)
	}
	if stored.StartTime != "13:00" || stored.EndTime != "14:00" {
		t.Fatalf("expected the new slot to be stored, got %s-%s", stored.StartTime, stored.EndTime)
	}
	if stored.Title != "Board review" || stored.Description != "Q2" {
		t.Fatalf("expected details to survive, got title=%q description=%q", stored.Title, stored.Description)
	}
	if len(stored.ParticipantEmails) != 1 || stored.ParticipantEmails[0] != "a@example.com" {
		t.Fatalf("expected participants to survive, got %v", stored.ParticipantEmails)
	}
}
