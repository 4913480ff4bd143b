package scheduler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeToMinutes(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"00:00": 0,
		"09:30": 570,
		"9:05":  545,
		"23:59": 1439,
	}
	for input, want := range cases {
		got, err := TimeToMinutes(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestTimeToMinutesRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "9", "9:5", "ab:cd", "24:00", "12:60", "12:00:00", "-1:00"} {
		_, err := TimeToMinutes(input)
		var fe *FormatError
		require.Error(t, err, input)
		assert.True(t, errors.As(err, &fe), "expected FormatError for %q", input)
	}
}

func TestMinutesToTimeRoundTrip(t *testing.T) {
	t.Parallel()

	for _, minutes := range []int{0, 1, 59, 60, 725, 1439} {
		formatted, err := MinutesToTime(minutes)
		require.NoError(t, err)
		back, err := TimeToMinutes(formatted)
		require.NoError(t, err)
		assert.Equal(t, minutes, back)
	}
}

func TestMinutesToTimeOutOfRange(t *testing.T) {
	t.Parallel()

	_, err := MinutesToTime(1440)
	assert.Error(t, err)
	_, err = MinutesToTime(-1)
	assert.Error(t, err)
}

func TestClampMinutes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, ClampMinutes(-30))
	assert.Equal(t, 600, ClampMinutes(600))
	assert.Equal(t, 1439, ClampMinutes(1439))
	assert.Equal(t, LastQuarterHour, ClampMinutes(1440))
	assert.Equal(t, LastQuarterHour, ClampMinutes(1500))

	formatted, err := MinutesToTime(ClampMinutes(24 * 60))
	require.NoError(t, err)
	assert.Equal(t, "23:45", formatted)
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	day, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", FormatDate(day))

	_, err = ParseDate("2024-02-30")
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "date", fe.Field)
}
