package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newAvailabilityFixture(t *testing.T) (*reservationFixture, *AvailabilityService) {
	t.Helper()
	f := newReservationFixture(t, june1At10)
	return f, NewAvailabilityService(f.rooms, f.store, nil)
}

func TestAvailabilityService_CheckAvailability(t *testing.T) {
	t.Parallel()

	t.Run("reports next available time and owner name", func(t *testing.T) {
		t.Parallel()
		f, svc := newAvailabilityFixture(t)
		for _, slot := range [][2]string{{"09:00", "10:00"}, {"10:00", "11:00"}} {
			if _, err := f.book(t, bobPrincipal, "room-a", "2024-06-03", slot[0], slot[1]); err != nil {
				t.Fatalf("booking failed: %v", err)
			}
		}

		results, err := svc.CheckAvailability(context.Background(), alicePrincipal, AvailabilityParams{Date: "2024-06-03", StartTime: "09:30", EndTime: "10:30"})
		if err != nil {
			t.Fatalf("CheckAvailability failed: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected only active rooms, got %+v", results)
		}

		byRoom := make(map[string]RoomAvailability)
		for _, result := range results {
			byRoom[result.RoomID] = result
		}
		busy := byRoom["room-a"]
		if busy.IsAvailable || busy.NextAvailableTime != "11:00" || busy.ReservedBy != bob.ID || busy.ReservedByName != "Bob" {
			t.Fatalf("unexpected availability for room-a: %+v", busy)
		}
		if free := byRoom["room-b"]; !free.IsAvailable || free.RoomName != "Summit" {
			t.Fatalf("unexpected availability for room-b: %+v", free)
		}
	})

	t.Run("batched results match single room checks", func(t *testing.T) {
		t.Parallel()
		f, svc := newAvailabilityFixture(t)
		if _, err := f.book(t, alicePrincipal, "room-a", "2024-06-03", "08:00", "09:00"); err != nil {
			t.Fatalf("booking failed: %v", err)
		}
		if _, err := f.book(t, bobPrincipal, "room-b", "2024-06-03", "08:30", "12:00"); err != nil {
			t.Fatalf("booking failed: %v", err)
		}

		params := AvailabilityParams{Date: "2024-06-03", StartTime: "08:45", EndTime: "09:15"}
		batched, err := svc.CheckAvailability(context.Background(), alicePrincipal, params)
		if err != nil {
			t.Fatalf("batched check failed: %v", err)
		}
		for _, result := range batched {
			single := params
			single.RoomID = result.RoomID
			one, err := svc.CheckAvailability(context.Background(), alicePrincipal, single)
			if err != nil {
				t.Fatalf("single check failed: %v", err)
			}
			if len(one) != 1 || one[0] != result {
				t.Fatalf("room %s: batched %+v, single %+v", result.RoomID, result, one)
			}
		}
	})

	t.Run("cancelled reservations do not block", func(t *testing.T) {
		t.Parallel()
		f, svc := newAvailabilityFixture(t)
		reservation, err := f.book(t, alicePrincipal, "room-a", "2024-06-03", "09:00", "10:00")
		if err != nil {
			t.Fatalf("booking failed: %v", err)
		}
		if _, err := f.service.CancelReservation(context.Background(), alicePrincipal, reservation.ID); err != nil {
			t.Fatalf("cancel failed: %v", err)
		}

		results, err := svc.CheckAvailability(context.Background(), alicePrincipal, AvailabilityParams{Date: "2024-06-03", StartTime: "09:00", EndTime: "10:00", RoomID: "room-a"})
		if err != nil {
			t.Fatalf("CheckAvailability failed: %v", err)
		}
		if !results[0].IsAvailable {
			t.Fatalf("expected cancelled slot to be free, got %+v", results[0])
		}
	})

	t.Run("unknown rooms are reported available", func(t *testing.T) {
		t.Parallel()
		_, svc := newAvailabilityFixture(t)

		results, err := svc.CheckAvailability(context.Background(), alicePrincipal, AvailabilityParams{Date: "2024-06-03", StartTime: "09:00", EndTime: "10:00", RoomID: "room-ghost"})
		if err != nil {
			t.Fatalf("CheckAvailability failed: %v", err)
		}
		if len(results) != 1 || !results[0].IsAvailable || results[0].RoomID != "room-ghost" {
			t.Fatalf("expected a single available entry, got %+v", results)
		}
	})

	t.Run("validates the requested slot", func(t *testing.T) {
		t.Parallel()
		_, svc := newAvailabilityFixture(t)

		_, err := svc.CheckAvailability(context.Background(), alicePrincipal, AvailabilityParams{Date: "06/03/2024", StartTime: "10:00", EndTime: "09:00"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["date"] == "" || vErr.FieldErrors["end_time"] == "" {
			t.Fatalf("expected date and end_time errors, got %v", err)
		}
	})

	t.Run("serves repeated queries from the cache until the date changes", func(t *testing.T) {
		t.Parallel()
		f := newReservationFixture(t, june1At10)
		cache := NewMemoryAvailabilityCache(time.Minute, 16, nil)
		f.service.WithAvailabilityCache(cache)
		svc := NewAvailabilityService(f.rooms, f.store, cache)
		params := AvailabilityParams{Date: "2024-06-03", StartTime: "09:00", EndTime: "10:00", RoomID: "room-a"}

		first, err := svc.CheckAvailability(context.Background(), alicePrincipal, params)
		if err != nil || !first[0].IsAvailable {
			t.Fatalf("expected room to be free, got %+v, %v", first, err)
		}

		f.store.listErr = errors.New("store offline")
		if _, err := svc.CheckAvailability(context.Background(), alicePrincipal, params); err != nil {
			t.Fatalf("expected cached answer, got %v", err)
		}
		f.store.listErr = nil

		if _, err := f.book(t, bobPrincipal, "room-a", "2024-06-03", "09:00", "10:00"); err != nil {
			t.Fatalf("booking failed: %v", err)
		}
		after, err := svc.CheckAvailability(context.Background(), alicePrincipal, params)
		if err != nil {
			t.Fatalf("CheckAvailability failed: %v", err)
		}
		if after[0].IsAvailable {
			t.Fatalf("expected booking to invalidate cached availability, got %+v", after[0])
		}
	})
}

// interleavedLister runs hook after reading, imitating a booking that commits
// while an availability check is still assembling its answer.
type interleavedLister struct {
	ReservationLister
	hook func()
}

func (l *interleavedLister) ListReservations(ctx context.Context, filter ReservationFilter) ([]ReservationDetail, error) {
	details, err := l.ReservationLister.ListReservations(ctx, filter)
	if l.hook != nil {
		hook := l.hook
		l.hook = nil
		hook()
	}
	return details, err
}

func TestAvailabilityService_DoesNotCacheResultOverlappingABooking(t *testing.T) {
	t.Parallel()

	f := newReservationFixture(t, june1At10)
	cache := NewGuardedAvailabilityCache(NewMemoryAvailabilityCache(time.Minute, 16, nil))
	f.service.WithAvailabilityCache(cache)
	lister := &interleavedLister{ReservationLister: f.store}
	lister.hook = func() {
		if _, err := f.book(t, bobPrincipal, "room-a", "2024-06-03", "09:00", "10:00"); err != nil {
			t.Errorf("booking failed: %v", err)
		}
	}
	svc := NewAvailabilityService(f.rooms, lister, cache)
	params := AvailabilityParams{Date: "2024-06-03", StartTime: "09:00", EndTime: "10:00", RoomID: "room-a"}

	stale, err := svc.CheckAvailability(context.Background(), alicePrincipal, params)
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if !stale[0].IsAvailable {
		t.Fatalf("expected the read taken before the booking to report a free room, got %+v", stale[0])
	}

	fresh, err := svc.CheckAvailability(context.Background(), alicePrincipal, params)
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if fresh[0].IsAvailable {
		t.Fatalf("expected the booking to be visible on the next check, got %+v", fresh[0])
	}
}
