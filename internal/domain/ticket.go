package domain

import (
	"strings"
	"time"
)

// TicketState enumerates lifecycle states reported by the helpdesk export.
// States the export uses that do not map onto a known value are kept verbatim.
type TicketState string

const (
	TicketStateNew       TicketState = "New"
	TicketStateOpen      TicketState = "Open"
	TicketStatePending   TicketState = "Pending"
	TicketStateResolved  TicketState = "Resolved"
	TicketStateClosed    TicketState = "Closed"
	TicketStateCancelled TicketState = "Cancelled"
)

// TerminalStates is the closed-set used for open-ness and the ledger bootstrap.
var TerminalStates = []TicketState{TicketStateClosed, TicketStateResolved, TicketStateCancelled}

// InactionableStates excludes tickets from the empty first response view.
var InactionableStates = []TicketState{TicketStateClosed, TicketStateResolved}

var stateAliases = map[string]TicketState{
	"new":       TicketStateNew,
	"open":      TicketStateOpen,
	"pending":   TicketStatePending,
	"resolved":  TicketStateResolved,
	"closed":    TicketStateClosed,
	"cancelled": TicketStateCancelled,
	"canceled":  TicketStateCancelled,
}

// NormalizeState maps export values such as "closed successful" or
// "pending reminder" onto the canonical state.
func NormalizeState(raw string) TicketState {
	value := strings.TrimSpace(raw)
	if value == "" {
		return TicketStateNew
	}
	lower := strings.ToLower(value)
	if state, ok := stateAliases[lower]; ok {
		return state
	}
	if first, _, found := strings.Cut(lower, " "); found {
		if state, ok := stateAliases[first]; ok {
			return state
		}
	}
	return TicketState(value)
}

// IsTerminal reports whether the state belongs to TerminalStates.
func (s TicketState) IsTerminal() bool {
	return stateIn(s, TerminalStates)
}

func stateIn(s TicketState, set []TicketState) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

// Ticket is one helpdesk record imported from an export.
type Ticket struct {
	TicketNumber       string
	CreatedAt          time.Time
	ClosedAt           *time.Time
	State              TicketState
	Priority           string
	Owner              *string
	FirstResponse      *string
	FirstResponseEmpty bool
	AgeHours           float64
	SourceBatch        string
	DataSource         string
	ImportedAt         time.Time
}

// IsOpen reports whether the ticket still counts as open: it has no closed
// timestamp and its state is not terminal.
func (t Ticket) IsOpen() bool {
	return t.ClosedAt == nil && !t.State.IsTerminal()
}

// AgeAt returns the ticket age in hours. Closed tickets are frozen at the
// closed-created delta.
func (t Ticket) AgeAt(now time.Time) float64 {
	end := now
	if t.ClosedAt != nil {
		end = *t.ClosedAt
	}
	return end.Sub(t.CreatedAt).Hours()
}

// OwnerName returns the owner or an empty string.
func (t Ticket) OwnerName() string {
	if t.Owner == nil {
		return ""
	}
	return *t.Owner
}

// IsEmptyFirstResponse treats nil, blank and the literal "nan"/"NaN" values
// left behind by spreadsheet exports as "no first response yet".
func IsEmptyFirstResponse(value *string) bool {
	if value == nil {
		return true
	}
	switch strings.TrimSpace(*value) {
	case "", "nan", "NaN":
		return true
	}
	return false
}

// NeedsFirstResponse reports whether the ticket belongs in the empty first
// response view.
func (t Ticket) NeedsFirstResponse() bool {
	return t.FirstResponseEmpty && !stateIn(t.State, InactionableStates)
}

// TicketView is the projection used by drill-down lists.
type TicketView struct {
	TicketNumber string      `json:"ticket_number"`
	Age          string      `json:"age"`
	AgeHours     float64     `json:"age_hours"`
	CreatedAt    time.Time   `json:"created"`
	ClosedAt     *time.Time  `json:"closed,omitempty"`
	Priority     string      `json:"priority"`
	State        TicketState `json:"state"`
	Owner        string      `json:"owner,omitempty"`
}

// View projects the ticket for display at the given instant.
func (t Ticket) View(now time.Time) TicketView {
	age := t.AgeAt(now)
	return TicketView{
		TicketNumber: t.TicketNumber,
		Age:          FormatAge(age),
		AgeHours:     age,
		CreatedAt:    t.CreatedAt,
		ClosedAt:     t.ClosedAt,
		Priority:     t.Priority,
		State:        t.State,
		Owner:        t.OwnerName(),
	}
}
