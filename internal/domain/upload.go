package domain

import (
	"fmt"
	"time"
)

// ImportMode selects how an ingestion batch treats existing tickets.
type ImportMode string

const (
	ImportModeFull        ImportMode = "full"
	ImportModeIncremental ImportMode = "incremental"
)

// ParseImportMode validates a mode; empty means incremental.
func ParseImportMode(raw string) (ImportMode, bool) {
	switch ImportMode(raw) {
	case "", ImportModeIncremental:
		return ImportModeIncremental, true
	case ImportModeFull:
		return ImportModeFull, true
	}
	return "", false
}

// UploadBatch is the immutable audit record of one ingestion.
type UploadBatch struct {
	ID           string     `json:"id"`
	Filename     string     `json:"filename"`
	UploadedAt   time.Time  `json:"upload_time"`
	TotalRecords int        `json:"record_count"`
	NewRecords   int        `json:"new_records_count"`
	Skipped      int        `json:"duplicates_skipped"`
	Invalid      int        `json:"invalid_rows"`
	Mode         ImportMode `json:"import_mode"`
}

// IngestRow is one parsed spreadsheet row with raw cell values.
type IngestRow struct {
	TicketNumber  string  `json:"ticket_number"`
	Created       string  `json:"created_date"`
	Closed        string  `json:"closed_date,omitempty"`
	State         string  `json:"state"`
	Priority      string  `json:"priority,omitempty"`
	Owner         string  `json:"owner,omitempty"`
	FirstResponse *string `json:"first_response,omitempty"`
}

// RowError reports one rejected row. Row is the zero-based position in the batch.
type RowError struct {
	Row          int    `json:"row"`
	TicketNumber string `json:"ticket_number,omitempty"`
	Field        string `json:"field"`
	Message      string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
}
