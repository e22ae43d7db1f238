package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
)

// LedgerEntryResponse renders a ledger row with a calendar date.
type LedgerEntryResponse struct {
	Date      string              `json:"date"`
	Opening   int                 `json:"opening_balance"`
	New       int                 `json:"new_tickets"`
	Resolved  int                 `json:"resolved_tickets"`
	Closing   int                 `json:"closing_balance"`
	Ages      domain.AgeHistogram `json:"age_distribution"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// ExecutionLogResponse renders one ledger run attempt.
type ExecutionLogResponse struct {
	ID         int64               `json:"id"`
	ExecutedAt string              `json:"execution_time"`
	Date       string              `json:"statistic_date"`
	Opening    int                 `json:"opening_balance"`
	New        int                 `json:"new_tickets"`
	Resolved   int                 `json:"resolved_tickets"`
	Closing    int                 `json:"closing_balance"`
	Ages       domain.AgeHistogram `json:"age_distribution"`
	OpenTotal  int                 `json:"open_total"`
	Status     domain.RunStatus    `json:"status"`
	Error      *string             `json:"error,omitempty"`
}

// ScheduleRequest updates the daily run time.
type ScheduleRequest struct {
	ScheduleTime string `json:"schedule_time"`
	Enabled      *bool  `json:"enabled"`
}

// executionTimeLayout keeps the local wall clock without an offset.
const executionTimeLayout = "2006-01-02 15:04:05"

// NewLedgerEntryResponse converts a ledger entry.
func NewLedgerEntryResponse(entry domain.DailyLedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		Date:      domain.FormatDay(entry.Date),
		Opening:   entry.Opening,
		New:       entry.New,
		Resolved:  entry.Resolved,
		Closing:   entry.Closing,
		Ages:      entry.Ages,
		UpdatedAt: entry.UpdatedAt,
	}
}

// NewExecutionLogResponse converts a log row.
func NewExecutionLogResponse(entry domain.ExecutionLogEntry) ExecutionLogResponse {
	return ExecutionLogResponse{
		ID:         entry.ID,
		ExecutedAt: entry.ExecutedAt.Format(executionTimeLayout),
		Date:       domain.FormatDay(entry.Date),
		Opening:    entry.Opening,
		New:        entry.New,
		Resolved:   entry.Resolved,
		Closing:    entry.Closing,
		Ages:       entry.Ages,
		OpenTotal:  entry.OpenTotal,
		Status:     entry.Status,
		Error:      entry.Error,
	}
}
