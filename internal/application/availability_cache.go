package application

import (
	"context"
	"sync"
	"time"
)

// MemoryAvailabilityCache keeps recently computed availability in process.
// It is used when no shared cache is configured.
type MemoryAvailabilityCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[AvailabilityKey]availabilityCacheEntry
}

type availabilityCacheEntry struct {
	results   []RoomAvailability
	expiresAt time.Time
}

// NewMemoryAvailabilityCache constructs an in-memory cache. Non-positive
// ttl and maxEntries fall back to 30 seconds and 512 entries.
func NewMemoryAvailabilityCache(ttl time.Duration, maxEntries int, now func() time.Time) *MemoryAvailabilityCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 512
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryAvailabilityCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[AvailabilityKey]availabilityCacheEntry),
	}
}

// Get returns a copy of the cached results for key.
func (c *MemoryAvailabilityCache) Get(_ context.Context, key AvailabilityKey) ([]RoomAvailability, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneAvailability(entry.results), true
}

// Store caches a copy of results for key.
func (c *MemoryAvailabilityCache) Store(_ context.Context, key AvailabilityKey, results []RoomAvailability) {
	if c == nil {
		return
	}
	cloned := cloneAvailability(results)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = availabilityCacheEntry{results: cloned, expiresAt: expiry}
}

// InvalidateDate drops every entry computed for date.
func (c *MemoryAvailabilityCache) InvalidateDate(_ context.Context, date string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key.Date == date {
			delete(c.entries, key)
		}
	}
}

func (c *MemoryAvailabilityCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *MemoryAvailabilityCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneAvailability(results []RoomAvailability) []RoomAvailability {
	if results == nil {
		return nil
	}
	out := make([]RoomAvailability, len(results))
	copy(out, results)
	return out
}

// GuardedAvailabilityCache tracks a generation per date in front of another
// cache. Results read before the latest invalidation of their date are
// discarded instead of stored, so a slow availability read cannot re-cache
// a slot that a booking has just taken.
type GuardedAvailabilityCache struct {
	inner       AvailabilityCache
	mu          sync.Mutex
	generations map[string]uint64
}

// NewGuardedAvailabilityCache wraps inner.
func NewGuardedAvailabilityCache(inner AvailabilityCache) *GuardedAvailabilityCache {
	return &GuardedAvailabilityCache{inner: inner, generations: make(map[string]uint64)}
}

func (c *GuardedAvailabilityCache) Get(ctx context.Context, key AvailabilityKey) ([]RoomAvailability, bool) {
	if c == nil || c.inner == nil {
		return nil, false
	}
	return c.inner.Get(ctx, key)
}

// Store writes unconditionally. Readers should prefer StoreIfCurrent.
func (c *GuardedAvailabilityCache) Store(ctx context.Context, key AvailabilityKey, results []RoomAvailability) {
	if c == nil || c.inner == nil {
		return
	}
	c.inner.Store(ctx, key, results)
}

// InvalidateDate bumps the date's generation before dropping its entries.
func (c *GuardedAvailabilityCache) InvalidateDate(ctx context.Context, date string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.generations[date]++
	c.mu.Unlock()
	if c.inner != nil {
		c.inner.InvalidateDate(ctx, date)
	}
}

// Generation returns the current generation of date.
func (c *GuardedAvailabilityCache) Generation(date string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[date]
}

// StoreIfCurrent stores results only when no invalidation of key.Date
// happened since generation was read. It reports whether it stored.
func (c *GuardedAvailabilityCache) StoreIfCurrent(ctx context.Context, key AvailabilityKey, generation uint64, results []RoomAvailability) bool {
	if c == nil || c.inner == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[key.Date] != generation {
		return false
	}
	c.inner.Store(ctx, key, results)
	return true
}
