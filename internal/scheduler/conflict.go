package scheduler

import "sort"

// Booking is a non-cancelled reservation reduced to its minute interval on a
// single room and date.
type Booking struct {
	ID     string
	UserID string
	Start  int
	End    int
}

// NewBooking converts "HH:mm" bounds into a Booking.
func NewBooking(id, userID, startTime, endTime string) (Booking, error) {
	start, err := TimeToMinutes(startTime)
	if err != nil {
		return Booking{}, withField(err, "start_time")
	}
	end, err := TimeToMinutes(endTime)
	if err != nil {
		return Booking{}, withField(err, "end_time")
	}
	return Booking{ID: id, UserID: userID, Start: start, End: end}, nil
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}

// FindConflict returns the first booking, in start order, that overlaps
// [start, end).
func FindConflict(bookings []Booking, start, end int) (Booking, bool) {
	for _, b := range sortedByStart(bookings) {
		if Overlaps(start, end, b.Start, b.End) {
			return b, true
		}
	}
	return Booking{}, false
}

func sortedByStart(bookings []Booking) []Booking {
	sorted := make([]Booking, len(bookings))
	copy(sorted, bookings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})
	return sorted
}
