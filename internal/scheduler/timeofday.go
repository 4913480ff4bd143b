package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar date format used by reservations.
	DateLayout = "2006-01-02"
	// TimeLayout is the wall-clock format used by reservations.
	TimeLayout = "15:04"

	// MinutesPerDay bounds single-day minute offsets.
	MinutesPerDay = 24 * 60
	// LastQuarterHour is where next-slot suggestions past midnight are clamped.
	LastQuarterHour = 23*60 + 45
)

// FormatError reports a malformed date or time-of-day value.
type FormatError struct {
	Field  string
	Value  string
	Reason string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%q: %s", e.Value, e.Reason)
}

// TimeToMinutes converts an "HH:mm" wall-clock value into minutes after midnight.
func TimeToMinutes(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, &FormatError{Value: value, Reason: "expected HH:mm"}
	}
	hourPart, minutePart := parts[0], parts[1]
	if len(hourPart) == 0 || len(hourPart) > 2 || len(minutePart) != 2 {
		return 0, &FormatError{Value: value, Reason: "expected HH:mm"}
	}
	if !isDigits(hourPart) || !isDigits(minutePart) {
		return 0, &FormatError{Value: value, Reason: "hour and minute must be numeric"}
	}

	hours, _ := strconv.Atoi(hourPart)
	minutes, _ := strconv.Atoi(minutePart)
	if hours > 23 {
		return 0, &FormatError{Value: value, Reason: "hour out of range"}
	}
	if minutes > 59 {
		return 0, &FormatError{Value: value, Reason: "minute out of range"}
	}
	return hours*60 + minutes, nil
}

// MinutesToTime renders minutes after midnight as "HH:mm". Only single-day
// values in [0, 1439] are accepted; use ClampMinutes for rollover.
func MinutesToTime(minutes int) (string, error) {
	if minutes < 0 || minutes >= MinutesPerDay {
		return "", &FormatError{Value: strconv.Itoa(minutes), Reason: "minutes out of single-day range"}
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60), nil
}

// ClampMinutes folds a computed minute offset into a displayable single-day
// value. Anything reaching midnight or later becomes 23:45.
func ClampMinutes(minutes int) int {
	switch {
	case minutes < 0:
		return 0
	case minutes >= MinutesPerDay:
		return LastQuarterHour
	default:
		return minutes
	}
}

// ParseDate parses a "YYYY-MM-DD" calendar date as midnight UTC.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, &FormatError{Field: "date", Value: value, Reason: "expected YYYY-MM-DD"}
	}
	return parsed, nil
}

// FormatDate renders a calendar date as "YYYY-MM-DD".
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return value != ""
}
