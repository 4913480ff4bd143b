package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseRule(period Period, start, end string) Rule {
	return Rule{
		StartDate:    start,
		EndDate:      end,
		StartTime:    "09:00",
		EndTime:      "10:00",
		RepeatEvery:  1,
		RepeatPeriod: period,
	}
}

func TestEngineExpandWeeklyMondayWednesday(t *testing.T) {
	t.Parallel()

	rule := baseRule(PeriodWeek, "2024-06-03", "2024-06-14")
	rule.WeekDays = []time.Weekday{time.Monday, time.Wednesday}

	dates, err := NewEngine(0).Dates(rule)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-03", "2024-06-05", "2024-06-10", "2024-06-12"}, dates)
}

func TestEngineExpandWeeklyBlocksStartOnSunday(t *testing.T) {
	t.Parallel()

	// Start on Thursday: the Monday of the first block is before startDate.
	rule := baseRule(PeriodWeek, "2024-06-06", "2024-06-30")
	rule.RepeatEvery = 2
	rule.WeekDays = []time.Weekday{time.Friday, time.Monday}

	dates, err := NewEngine(0).Dates(rule)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-07", "2024-06-17", "2024-06-21"}, dates)
}

func TestEngineExpandWeeklyRequiresWeekdays(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(0).Expand(baseRule(PeriodWeek, "2024-06-03", "2024-06-14"))
	assert.ErrorIs(t, err, ErrNoWeekdays)
}

func TestEngineExpandDaily(t *testing.T) {
	t.Parallel()

	rule := baseRule(PeriodDay, "2024-02-27", "2024-03-04")
	rule.RepeatEvery = 2

	occurrences, err := NewEngine(0).Expand(rule)
	require.NoError(t, err)
	require.Len(t, occurrences, 4)
	assert.Equal(t, Occurrence{Date: "2024-02-27", StartTime: "09:00", EndTime: "10:00"}, occurrences[0])
	assert.Equal(t, "2024-02-29", occurrences[1].Date)
	assert.Equal(t, "2024-03-02", occurrences[2].Date)
	assert.Equal(t, "2024-03-04", occurrences[3].Date)
}

func TestEngineExpandMonthlyClampsToLastDay(t *testing.T) {
	t.Parallel()

	dates, err := NewEngine(0).Dates(baseRule(PeriodMonth, "2024-01-31", "2024-05-31"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30", "2024-05-31"}, dates)
}

func TestEngineExpandYearlyLeapDay(t *testing.T) {
	t.Parallel()

	dates, err := NewEngine(0).Dates(baseRule(PeriodYear, "2024-02-29", "2028-03-01"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-29", "2025-02-28", "2026-02-28", "2027-02-28", "2028-02-29"}, dates)
}

func TestEngineExpandEndBeforeStart(t *testing.T) {
	t.Parallel()

	occurrences, err := NewEngine(0).Expand(baseRule(PeriodDay, "2024-06-10", "2024-06-01"))
	require.NoError(t, err)
	assert.Empty(t, occurrences)
}

func TestEngineExpandAllDay(t *testing.T) {
	t.Parallel()

	rule := baseRule(PeriodDay, "2024-06-10", "2024-06-10")
	rule.IsAllDay = true

	occurrences, err := NewEngine(0).Expand(rule)
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	assert.Equal(t, "00:00", occurrences[0].StartTime)
	assert.Equal(t, "23:59", occurrences[0].EndTime)
}

func TestEngineExpandRejectsInvalidRules(t *testing.T) {
	t.Parallel()

	engine := NewEngine(0)

	rule := baseRule(PeriodDay, "2024-06-01", "2024-06-10")
	rule.RepeatEvery = 0
	_, err := engine.Expand(rule)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = engine.Expand(baseRule(Period("fortnight"), "2024-06-01", "2024-06-10"))
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	rule = baseRule(PeriodWeek, "2024-06-01", "2024-06-10")
	rule.WeekDays = []time.Weekday{7}
	_, err = engine.Expand(rule)
	assert.ErrorIs(t, err, ErrInvalidWeekday)

	_, err = engine.Expand(baseRule(PeriodDay, "June 1", "2024-06-10"))
	assert.Error(t, err)
}

func TestEngineExpandEnforcesLimit(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(5).Expand(baseRule(PeriodDay, "2024-06-01", "2024-06-30"))
	assert.True(t, errors.Is(err, ErrTooManyOccurrences))

	dates, err := NewEngine(5).Dates(baseRule(PeriodDay, "2024-06-01", "2024-06-05"))
	require.NoError(t, err)
	assert.Len(t, dates, 5)
}

func TestParsePeriod(t *testing.T) {
	t.Parallel()

	p, err := ParsePeriod(" Week ")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeek, p)

	_, err = ParsePeriod("hour")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}
