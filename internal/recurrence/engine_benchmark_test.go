package recurrence

import (
	"testing"
	"time"
)

func BenchmarkEngineExpandWeekly(b *testing.B) {
	engine := NewEngine(0)
	rule := Rule{
		StartDate:    "2024-05-06",
		EndDate:      "2024-08-06",
		StartTime:    "09:00",
		EndTime:      "10:30",
		RepeatEvery:  1,
		RepeatPeriod: PeriodWeek,
		WeekDays: []time.Weekday{
			time.Monday,
			time.Tuesday,
			time.Wednesday,
			time.Thursday,
			time.Friday,
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		occurrences, err := engine.Expand(rule)
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) == 0 {
			b.Fatal("expected occurrences to be generated")
		}
	}
}
