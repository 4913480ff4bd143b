package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/room-booking/internal/scheduler"
)

// Period is the unit a rule repeats in.
type Period string

const (
	// PeriodDay repeats every n days.
	PeriodDay Period = "day"
	// PeriodWeek repeats selected weekdays every n weeks.
	PeriodWeek Period = "week"
	// PeriodMonth repeats on the same day-of-month every n months.
	PeriodMonth Period = "month"
	// PeriodYear repeats on the same date every n years.
	PeriodYear Period = "year"
)

// DefaultMaxOccurrences caps a single expansion.
const DefaultMaxOccurrences = 1000

const (
	allDayStart = "00:00"
	allDayEnd   = "23:59"
)

var (
	// ErrInvalidPeriod indicates the repeat period is not supported.
	ErrInvalidPeriod = errors.New("recurrence: invalid repeat period")
	// ErrInvalidInterval indicates repeatEvery is not a positive integer.
	ErrInvalidInterval = errors.New("recurrence: repeat interval must be positive")
	// ErrNoWeekdays indicates a weekly rule without selected weekdays.
	ErrNoWeekdays = errors.New("recurrence: weekly rule requires at least one weekday")
	// ErrInvalidWeekday indicates a weekday index outside 0-6.
	ErrInvalidWeekday = errors.New("recurrence: weekday must be between 0 (Sunday) and 6 (Saturday)")
	// ErrTooManyOccurrences indicates the rule expands past the engine limit.
	ErrTooManyOccurrences = errors.New("recurrence: rule expands to too many occurrences")
)

// ParsePeriod converts a textual period into a Period.
func ParsePeriod(value string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(value))); p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, value)
	}
}

// Rule describes a recurring reservation template. Dates are inclusive
// "YYYY-MM-DD" bounds and times are "HH:mm".
type Rule struct {
	StartDate    string
	EndDate      string
	StartTime    string
	EndTime      string
	IsAllDay     bool
	RepeatEvery  int
	RepeatPeriod Period
	WeekDays     []time.Weekday
}

// Validate checks the rule configuration without expanding it.
func (r Rule) Validate() error {
	if r.RepeatEvery <= 0 {
		return ErrInvalidInterval
	}
	switch r.RepeatPeriod {
	case PeriodDay, PeriodMonth, PeriodYear:
	case PeriodWeek:
		if len(r.WeekDays) == 0 {
			return ErrNoWeekdays
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, r.RepeatPeriod)
	}
	for _, day := range r.WeekDays {
		if day < time.Sunday || day > time.Saturday {
			return ErrInvalidWeekday
		}
	}
	return nil
}

// TimeRange returns the wall-clock bounds every occurrence inherits.
func (r Rule) TimeRange() (string, string) {
	if r.IsAllDay {
		return allDayStart, allDayEnd
	}
	return r.StartTime, r.EndTime
}

// Occurrence is a single expanded date of a rule.
type Occurrence struct {
	Date      string
	StartTime string
	EndTime   string
}

// Engine expands recurrence rules into concrete dates.
type Engine struct {
	maxOccurrences int
}

// NewEngine constructs an Engine. A non-positive limit selects
// DefaultMaxOccurrences.
func NewEngine(maxOccurrences int) *Engine {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	return &Engine{maxOccurrences: maxOccurrences}
}

// Expand materializes every occurrence of rule in chronological order.
//
// An end date before the start date yields no occurrences. Expansion does not
// check availability or validate the time-of-day values.
func (e *Engine) Expand(rule Rule) ([]Occurrence, error) {
	if e == nil {
		e = NewEngine(0)
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	start, err := scheduler.ParseDate(rule.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := scheduler.ParseDate(rule.EndDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return []Occurrence{}, nil
	}

	var dates []time.Time
	switch rule.RepeatPeriod {
	case PeriodDay:
		dates, err = e.expandDaily(start, end, rule.RepeatEvery)
	case PeriodWeek:
		dates, err = e.expandWeekly(start, end, rule.RepeatEvery, rule.WeekDays)
	case PeriodMonth:
		dates, err = e.expandMonthly(start, end, rule.RepeatEvery, 1)
	case PeriodYear:
		dates, err = e.expandMonthly(start, end, rule.RepeatEvery, 12)
	}
	if err != nil {
		return nil, err
	}

	startTime, endTime := rule.TimeRange()
	occurrences := make([]Occurrence, 0, len(dates))
	for _, d := range dates {
		occurrences = append(occurrences, Occurrence{
			Date:      scheduler.FormatDate(d),
			StartTime: startTime,
			EndTime:   endTime,
		})
	}
	return occurrences, nil
}

// Dates is a convenience wrapper returning only the expanded dates.
func (e *Engine) Dates(rule Rule) ([]string, error) {
	occurrences, err := e.Expand(rule)
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(occurrences))
	for _, o := range occurrences {
		dates = append(dates, o.Date)
	}
	return dates, nil
}

func (e *Engine) expandDaily(start, end time.Time, every int) ([]time.Time, error) {
	var dates []time.Time
	for step := 0; ; step++ {
		current := start.AddDate(0, 0, step*every)
		if current.After(end) {
			return dates, nil
		}
		if len(dates) == e.maxOccurrences {
			return nil, ErrTooManyOccurrences
		}
		dates = append(dates, current)
	}
}

func (e *Engine) expandWeekly(start, end time.Time, every int, weekdays []time.Weekday) ([]time.Time, error) {
	days := uniqueWeekdays(weekdays)
	blockStart := start.AddDate(0, 0, -int(start.Weekday()))

	var dates []time.Time
	for block := blockStart; !block.After(end); block = block.AddDate(0, 0, 7*every) {
		for _, day := range days {
			current := block.AddDate(0, 0, int(day))
			if current.Before(start) || current.After(end) {
				continue
			}
			if len(dates) == e.maxOccurrences {
				return nil, ErrTooManyOccurrences
			}
			dates = append(dates, current)
		}
	}
	return dates, nil
}

// expandMonthly steps by every*monthsPerStep months, keeping the anchor day
// and clamping to the last day of shorter months.
func (e *Engine) expandMonthly(start, end time.Time, every, monthsPerStep int) ([]time.Time, error) {
	anchorDay := start.Day()

	var dates []time.Time
	for step := 0; ; step++ {
		firstOfMonth := time.Date(start.Year(), start.Month()+time.Month(step*every*monthsPerStep), 1, 0, 0, 0, 0, time.UTC)
		day := anchorDay
		if last := daysInMonth(firstOfMonth); day > last {
			day = last
		}
		current := time.Date(firstOfMonth.Year(), firstOfMonth.Month(), day, 0, 0, 0, 0, time.UTC)
		if current.After(end) {
			return dates, nil
		}
		if len(dates) == e.maxOccurrences {
			return nil, ErrTooManyOccurrences
		}
		dates = append(dates, current)
	}
}

func daysInMonth(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

func uniqueWeekdays(weekdays []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]struct{}, len(weekdays))
	days := make([]time.Weekday, 0, len(weekdays))
	for _, day := range weekdays {
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}
