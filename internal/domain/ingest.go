package domain

import (
	"errors"
	"strings"
	"time"
)

// Timestamp layouts seen in helpdesk exports, tried in order. Values without
// an offset are read as wall-clock times in the deployment time zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"2006-01-02",
	"2006/01/02",
}

var errEmptyTimestamp = errors.New("empty timestamp")

// ParseTimestamp reads an export timestamp in loc.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" || strings.EqualFold(value, "nan") || strings.EqualFold(value, "nat") {
		return time.Time{}, errEmptyTimestamp
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognised timestamp " + value)
}

// TicketFromRow validates a row and builds the ticket it describes.
// now stamps the cached age of tickets that are still open.
func TicketFromRow(index int, row IngestRow, loc *time.Location, now time.Time) (Ticket, *RowError) {
	number := strings.TrimSpace(row.TicketNumber)
	fail := func(field, msg string) (Ticket, *RowError) {
		return Ticket{}, &RowError{Row: index, TicketNumber: number, Field: field, Message: msg}
	}
	if number == "" || strings.EqualFold(number, "nan") {
		return fail("ticket_number", "ticket number is required")
	}

	created, err := ParseTimestamp(row.Created, loc)
	if err != nil {
		if errors.Is(err, errEmptyTimestamp) {
			return fail("created_date", "created date is required")
		}
		return fail("created_date", err.Error())
	}

	ticket := Ticket{
		TicketNumber: number,
		CreatedAt:    created,
		State:        NormalizeState(row.State),
		Priority:     strings.TrimSpace(row.Priority),
	}

	closed, err := ParseTimestamp(row.Closed, loc)
	switch {
	case err == nil:
		if closed.Before(created) {
			return fail("closed_date", "closed date precedes created date")
		}
		ticket.ClosedAt = &closed
	case !errors.Is(err, errEmptyTimestamp):
		return fail("closed_date", err.Error())
	}

	if owner := strings.TrimSpace(row.Owner); owner != "" && !strings.EqualFold(owner, "nan") {
		ticket.Owner = &owner
	}
	if row.FirstResponse != nil {
		value := strings.TrimSpace(*row.FirstResponse)
		ticket.FirstResponse = &value
	}
	ticket.FirstResponseEmpty = IsEmptyFirstResponse(ticket.FirstResponse)
	ticket.AgeHours = ticket.AgeAt(now)
	return ticket, nil
}
