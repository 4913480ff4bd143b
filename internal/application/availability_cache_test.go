package application

import (
	"context"
	"testing"
	"time"
)

func TestMemoryAvailabilityCacheStoresAndReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := NewMemoryAvailabilityCache(time.Minute, 4, func() time.Time { return current })
	key := AvailabilityKey{Date: "2024-05-02", StartTime: "09:00", EndTime: "10:00"}

	original := []RoomAvailability{{RoomID: "room-1", IsAvailable: true}}
	cache.Store(ctx, key, original)

	// Mutating the original slice should not affect the cached copy.
	original[0].RoomID = "mutated"

	cached, ok := cache.Get(ctx, key)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if cached[0].RoomID != "room-1" {
		t.Fatalf("expected cached room id to remain unchanged, got %s", cached[0].RoomID)
	}

	cached[0].RoomID = "changed"
	again, ok := cache.Get(ctx, key)
	if !ok {
		t.Fatalf("expected cache hit on second read")
	}
	if again[0].RoomID != "room-1" {
		t.Fatalf("expected cache to return independent copy, got %s", again[0].RoomID)
	}
}

func TestMemoryAvailabilityCacheExpiresEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := NewMemoryAvailabilityCache(time.Second, 4, func() time.Time { return current })
	key := AvailabilityKey{Date: "2024-05-02", StartTime: "09:00", EndTime: "10:00"}

	cache.Store(ctx, key, []RoomAvailability{{RoomID: "room-1"}})
	if _, ok := cache.Get(ctx, key); !ok {
		t.Fatalf("expected cache hit before expiry")
	}

	current = current.Add(2 * time.Second)
	if _, ok := cache.Get(ctx, key); ok {
		t.Fatalf("expected cache entry to expire")
	}
}

func TestMemoryAvailabilityCacheInvalidateDate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := NewMemoryAvailabilityCache(time.Minute, 8, time.Now)
	first := AvailabilityKey{Date: "2024-05-02", StartTime: "09:00", EndTime: "10:00"}
	second := AvailabilityKey{Date: "2024-05-02", StartTime: "11:00", EndTime: "12:00", RoomID: "room-1"}
	other := AvailabilityKey{Date: "2024-05-03", StartTime: "09:00", EndTime: "10:00"}

	for _, key := range []AvailabilityKey{first, second, other} {
		cache.Store(ctx, key, []RoomAvailability{{RoomID: "room-1"}})
	}

	cache.InvalidateDate(ctx, "2024-05-02")

	if _, ok := cache.Get(ctx, first); ok {
		t.Fatalf("expected first entry to be dropped")
	}
	if _, ok := cache.Get(ctx, second); ok {
		t.Fatalf("expected second entry to be dropped")
	}
	if _, ok := cache.Get(ctx, other); !ok {
		t.Fatalf("expected entries for other dates to survive")
	}
}

func TestMemoryAvailabilityCacheEvictsWhenFull(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := NewMemoryAvailabilityCache(time.Minute, 2, time.Now)
	for _, start := range []string{"09:00", "10:00", "11:00"} {
		cache.Store(ctx, AvailabilityKey{Date: "2024-05-02", StartTime: start, EndTime: "12:00"}, nil)
	}

	cache.mu.RLock()
	size := len(cache.entries)
	cache.mu.RUnlock()
	if size != 2 {
		t.Fatalf("expected cache to hold 2 entries, got %d", size)
	}
}

func TestMemoryAvailabilityCacheNilReceiver(t *testing.T) {
	t.Parallel()

	var cache *MemoryAvailabilityCache
	ctx := context.Background()
	cache.Store(ctx, AvailabilityKey{}, nil)
	cache.InvalidateDate(ctx, "2024-05-02")
	if _, ok := cache.Get(ctx, AvailabilityKey{}); ok {
		t.Fatalf("expected nil cache to miss")
	}
}

func TestGuardedAvailabilityCacheDropsResultsReadBeforeInvalidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := NewGuardedAvailabilityCache(NewMemoryAvailabilityCache(time.Minute, 4, func() time.Time { return current }))
	key := AvailabilityKey{Date: "2024-05-02", StartTime: "09:00", EndTime: "10:00"}
	results := []RoomAvailability{{RoomID: "room-1", IsAvailable: true}}

	before := cache.Generation(key.Date)
	cache.InvalidateDate(ctx, key.Date)
	if got := cache.Generation(key.Date); got != before+1 {
		t.Fatalf("expected generation %d after invalidation, got %d", before+1, got)
	}
	if cache.Generation("2024-05-03") != 0 {
		t.Fatalf("expected other dates to keep their generation")
	}

	if cache.StoreIfCurrent(ctx, key, before, results) {
		t.Fatalf("expected result computed before the invalidation to be rejected")
	}
	if _, ok := cache.Get(ctx, key); ok {
		t.Fatalf("expected no cached entry after a rejected store")
	}

	if !cache.StoreIfCurrent(ctx, key, cache.Generation(key.Date), results) {
		t.Fatalf("expected current generation to be stored")
	}
	if _, ok := cache.Get(ctx, key); !ok {
		t.Fatalf("expected cache hit after storing at the current generation")
	}
}

func TestGuardedAvailabilityCacheNilReceiver(t *testing.T) {
	t.Parallel()

	var cache *GuardedAvailabilityCache
	ctx := context.Background()
	key := AvailabilityKey{Date: "2024-05-02", StartTime: "09:00", EndTime: "10:00"}
	cache.InvalidateDate(ctx, key.Date)
	cache.Store(ctx, key, nil)
	if cache.StoreIfCurrent(ctx, key, 0, nil) {
		t.Fatalf("expected nil cache to refuse stores")
	}
	if _, ok := cache.Get(ctx, key); ok {
		t.Fatalf("expected nil cache to miss")
	}
}
