package scheduler

// Availability is the result of checking one room for a requested interval.
type Availability struct {
	RoomID      string
	IsAvailable bool
	// NextAvailableTime is empty when the room is free.
	NextAvailableTime string
	// ReservedBy is the user id of the first conflicting booking.
	ReservedBy string
	// ConflictID is the id of the first conflicting booking.
	ConflictID string
}

// CheckRoom reports whether [start, end) is free among the room's bookings.
//
// On the first conflict the suggestion starts at that booking's end and is
// pushed forward by a single ordered pass over bookings that contain the
// candidate. Only the first conflict seeds the pass; a later booking that
// starts inside the requested window but after the candidate is not
// considered.
func CheckRoom(roomID string, bookings []Booking, start, end int) Availability {
	result := Availability{RoomID: roomID, IsAvailable: true}

	sorted := sortedByStart(bookings)
	for _, b := range sorted {
		if !Overlaps(start, end, b.Start, b.End) {
			continue
		}

		candidate := b.End
		for _, next := range sorted {
			if next.Start <= candidate && next.End > candidate {
				candidate = next.End
			}
		}

		// Clamped minutes are always within a single day.
		suggestion, _ := MinutesToTime(ClampMinutes(candidate))
		result.IsAvailable = false
		result.NextAvailableTime = suggestion
		result.ReservedBy = b.UserID
		result.ConflictID = b.ID
		break
	}

	return result
}

// CheckAllRooms evaluates every room in roomIDs against its bookings. A room
// without bookings is available. Results follow the order of roomIDs and each
// equals the CheckRoom result for that room.
func CheckAllRooms(roomIDs []string, bookingsByRoom map[string][]Booking, start, end int) []Availability {
	results := make([]Availability, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		results = append(results, CheckRoom(roomID, bookingsByRoom[roomID], start, end))
	}
	return results
}
