package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRRuleWeekly(t *testing.T) {
	t.Parallel()

	rule := baseRule(PeriodWeek, "2024-06-03", "2024-06-14")
	rule.RepeatEvery = 2
	rule.WeekDays = []time.Weekday{time.Wednesday, time.Monday, time.Monday}

	got, err := BuildRRule(rule)
	require.NoError(t, err)
	assert.Equal(t, "FREQ=WEEKLY;INTERVAL=2;UNTIL=20240614T235959Z;BYDAY=MO,WE", got)
}

func TestBuildRRuleMonthly(t *testing.T) {
	t.Parallel()

	got, err := BuildRRule(baseRule(PeriodMonth, "2024-01-31", "2024-12-31"))
	require.NoError(t, err)
	assert.Equal(t, "FREQ=MONTHLY;INTERVAL=1;UNTIL=20241231T235959Z", got)
}

func TestBuildRRuleRejectsInvalidRule(t *testing.T) {
	t.Parallel()

	_, err := BuildRRule(baseRule(PeriodWeek, "2024-06-03", "2024-06-14"))
	assert.ErrorIs(t, err, ErrNoWeekdays)
}

func TestWeekdayConversions(t *testing.T) {
	t.Parallel()

	days, err := WeekdaysFromInts([]int{0, 3, 6})
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Sunday, time.Wednesday, time.Saturday}, days)
	assert.Equal(t, []int{0, 3, 6}, WeekdaysToInts(days))

	_, err = WeekdaysFromInts([]int{8})
	assert.ErrorIs(t, err, ErrInvalidWeekday)
}
