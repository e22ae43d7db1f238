package domain

import "time"

// DailyLedgerEntry is the per-day balance sheet of open tickets.
type DailyLedgerEntry struct {
	Date      time.Time    `json:"date"`
	Opening   int          `json:"opening_balance"`
	New       int          `json:"new_tickets"`
	Resolved  int          `json:"resolved_tickets"`
	Closing   int          `json:"closing_balance"`
	Ages      AgeHistogram `json:"age_distribution"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// RunStatus is the outcome of one ledger computation attempt.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailure RunStatus = "failure"
)

// ExecutionLogEntry records one ledger run attempt. ExecutedAt holds the
// deployment's local wall clock time.
type ExecutionLogEntry struct {
	ID         int64        `json:"id"`
	ExecutedAt time.Time    `json:"execution_time"`
	Date       time.Time    `json:"statistic_date"`
	Opening    int          `json:"opening_balance"`
	New        int          `json:"new_tickets"`
	Resolved   int          `json:"resolved_tickets"`
	Closing    int          `json:"closing_balance"`
	Ages       AgeHistogram `json:"age_distribution"`
	OpenTotal  int          `json:"open_total"`
	Status     RunStatus    `json:"status"`
	Error      *string      `json:"error,omitempty"`
}

// LogFromEntry builds a success log row for a computed entry.
func LogFromEntry(entry DailyLedgerEntry, executedAt time.Time) ExecutionLogEntry {
	return ExecutionLogEntry{
		ExecutedAt: executedAt,
		Date:       entry.Date,
		Opening:    entry.Opening,
		New:        entry.New,
		Resolved:   entry.Resolved,
		Closing:    entry.Closing,
		Ages:       entry.Ages,
		OpenTotal:  entry.Ages.Total(),
		Status:     RunStatusSuccess,
	}
}

// ScheduleConfig controls when the ledger job fires.
type ScheduleConfig struct {
	At        ClockTime `json:"schedule_time"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}
