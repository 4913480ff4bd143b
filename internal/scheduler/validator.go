package scheduler

import (
	"fmt"
	"time"
)

// MinimumDurationMinutes is the shortest reservation accepted.
const MinimumDurationMinutes = 15

// PastStartError is returned when a candidate reservation begins before the
// caller's current wall-clock time.
type PastStartError struct {
	Date      string
	StartTime string
	Now       time.Time
}

// Error implements the error interface.
func (e *PastStartError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("start %s %s is before the current time %s", e.Date, e.StartTime, e.Now.Format(DateLayout+" "+TimeLayout))
}

// TooShortDurationError is returned when a reservation is shorter than the
// minimum duration.
type TooShortDurationError struct {
	Minutes int
	Minimum int
}

// Error implements the error interface.
func (e *TooShortDurationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("reservation lasts %d minutes, minimum is %d", e.Minutes, e.Minimum)
}

// ClientNow shifts the server clock to the caller's wall clock.
//
// offsetMinutes follows the browser Date.getTimezoneOffset convention: the
// number of minutes to add to local time to reach UTC (UTC-3 reports 180).
// A nil offset keeps the server's own location.
func ClientNow(serverNow time.Time, offsetMinutes *int) time.Time {
	if offsetMinutes == nil {
		return serverNow
	}
	zone := time.FixedZone("client", -*offsetMinutes*60)
	return serverNow.In(zone)
}

// Validate applies the booking time rules to a single candidate reservation.
// The candidate start is compared against the wall clock of clientNow at
// minute precision; starting exactly now is allowed.
func Validate(date, startTime, endTime string, clientNow time.Time) error {
	day, err := ParseDate(date)
	if err != nil {
		return err
	}
	start, err := TimeToMinutes(startTime)
	if err != nil {
		return withField(err, "start_time")
	}
	end, err := TimeToMinutes(endTime)
	if err != nil {
		return withField(err, "end_time")
	}

	candidate := day.Add(time.Duration(start) * time.Minute)
	now := wallClock(clientNow)
	if candidate.Before(now) {
		return &PastStartError{Date: date, StartTime: startTime, Now: now}
	}

	if end-start < MinimumDurationMinutes {
		return &TooShortDurationError{Minutes: end - start, Minimum: MinimumDurationMinutes}
	}

	return nil
}

// wallClock drops the zone of t while keeping its local date and minute.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
}

func withField(err error, field string) error {
	if fe, ok := err.(*FormatError); ok {
		copied := *fe
		copied.Field = field
		return &copied
	}
	return err
}
