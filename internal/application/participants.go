package application

import (
	"regexp"
	"strings"
)

var participantEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ParseParticipantEmails splits a comma separated address list. Entries are
// trimmed, malformed entries are dropped and duplicates are removed
// case-insensitively, keeping the first spelling.
func ParseParticipantEmails(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var emails []string
	for _, part := range strings.Split(raw, ",") {
		email := strings.TrimSpace(part)
		if email == "" || !participantEmailPattern.MatchString(email) {
			continue
		}
		key := strings.ToLower(email)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		emails = append(emails, email)
	}
	return emails
}

// calendarAttendees returns the participants without the organizer.
func calendarAttendees(participants []string, organizerEmail string) []string {
	organizer := strings.ToLower(strings.TrimSpace(organizerEmail))
	attendees := make([]string, 0, len(participants))
	for _, email := range participants {
		if strings.ToLower(email) == organizer {
			continue
		}
		attendees = append(attendees, email)
	}
	if len(attendees) == 0 {
		return nil
	}
	return attendees
}
