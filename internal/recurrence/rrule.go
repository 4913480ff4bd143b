package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/room-booking/internal/scheduler"
)

var frequencyNames = map[Period]string{
	PeriodDay:   "DAILY",
	PeriodWeek:  "WEEKLY",
	PeriodMonth: "MONTHLY",
	PeriodYear:  "YEARLY",
}

var weekdayCodes = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// BuildRRule renders rule as an iCalendar RRULE value for calendar events.
func BuildRRule(rule Rule) (string, error) {
	if err := rule.Validate(); err != nil {
		return "", err
	}
	until, err := scheduler.ParseDate(rule.EndDate)
	if err != nil {
		return "", err
	}

	parts := []string{
		"FREQ=" + frequencyNames[rule.RepeatPeriod],
		fmt.Sprintf("INTERVAL=%d", rule.RepeatEvery),
		"UNTIL=" + until.Format("20060102") + "T235959Z",
	}
	if rule.RepeatPeriod == PeriodWeek {
		codes := make([]string, 0, len(rule.WeekDays))
		for _, day := range uniqueWeekdays(rule.WeekDays) {
			codes = append(codes, weekdayCodes[day])
		}
		parts = append(parts, "BYDAY="+strings.Join(codes, ","))
	}
	return strings.Join(parts, ";"), nil
}

// WeekdaysFromInts converts 0-6 indices (0 = Sunday) into weekdays.
func WeekdaysFromInts(values []int) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(values))
	for _, v := range values {
		if v < 0 || v > 6 {
			return nil, ErrInvalidWeekday
		}
		days = append(days, time.Weekday(v))
	}
	return days, nil
}

// WeekdaysToInts is the inverse of WeekdaysFromInts.
func WeekdaysToInts(days []time.Weekday) []int {
	values := make([]int, 0, len(days))
	for _, d := range days {
		values = append(values, int(d))
	}
	return values
}
