package testfixtures

import (
	"sync"
	"time"
)

// Clock is a settable time source shared by services under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock set to start, or to ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

// Now returns the clock's current instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc returns Now for injection, or time.Now for a nil clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// SetWallClock moves the clock to the given "YYYY-MM-DD" date and "HH:mm"
// time in the clock's current location.
func (c *Clock) SetWallClock(date, hhmm string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+hhmm, c.now.Location())
	if err != nil {
		return err
	}
	c.now = t
	return nil
}
