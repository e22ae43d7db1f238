package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketsIngested EventType = "tickets_ingested"
	EventTicketsCleared  EventType = "tickets_cleared"
	EventLedgerComputed  EventType = "ledger_computed"
	EventLedgerFailed    EventType = "ledger_failed"
	EventScheduleUpdated EventType = "schedule_updated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType EventType, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: at,
		Payload:   payload,
	}
}

// TicketsIngestedPayload payload.
type TicketsIngestedPayload struct {
	BatchID              string            `json:"batch_id"`
	Filename             string            `json:"filename"`
	Mode                 domain.ImportMode `json:"import_mode"`
	Inserted             int               `json:"new_records_count"`
	DuplicatesSkipped    int               `json:"duplicates_skipped"`
	IntraBatchDuplicates int               `json:"intra_batch_duplicates"`
	Invalid              int               `json:"invalid_rows"`
	TotalRecords         int               `json:"total_records"`
}

// TicketsClearedPayload payload.
type TicketsClearedPayload struct {
	Deleted int64 `json:"deleted"`
}

// LedgerComputedPayload payload.
type LedgerComputedPayload struct {
	Date      time.Time `json:"statistic_date"`
	Opening   int       `json:"opening_balance"`
	Closing   int       `json:"closing_balance"`
	OpenTotal int       `json:"open_total"`
}

// LedgerFailedPayload payload.
type LedgerFailedPayload struct {
	Date  time.Time `json:"statistic_date"`
	Error string    `json:"error"`
}

// ScheduleUpdatedPayload payload.
type ScheduleUpdatedPayload struct {
	At      domain.ClockTime `json:"schedule_time"`
	Enabled bool             `json:"enabled"`
}
