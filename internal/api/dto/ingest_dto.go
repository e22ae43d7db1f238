package dto

import (
	"github.com/spec-kit/helpdesk-stats/internal/domain"
)

// IngestRequest is a batch of already parsed export rows.
type IngestRequest struct {
	Filename string             `json:"filename"`
	Mode     string             `json:"mode"`
	Rows     []domain.IngestRow `json:"rows"`
}

// ClearResponse reports a bulk delete.
type ClearResponse struct {
	Deleted int64 `json:"deleted"`
}
