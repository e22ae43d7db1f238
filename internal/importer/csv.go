package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-stats/pkg/util"
)

// ReadCSV parses an export with a header row. Blank lines are skipped; a
// maxRows of zero disables the row limit.
func ReadCSV(r io.Reader, maxRows int) ([]domain.IngestRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.NewValidationError("export is empty", nil)
	}
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unable to read header: %v", err), nil)
	}
	columns, err := MapColumns(headers)
	if err != nil {
		return nil, err
	}

	var rows []domain.IngestRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("malformed csv: %v", err), nil)
		}
		if blank(record) {
			continue
		}
		if maxRows > 0 && len(rows) >= maxRows {
			return nil, apperrors.NewValidationError("export exceeds the row limit", map[string]any{"max_rows": maxRows})
		}
		rows = append(rows, columns.Row(record))
	}
	return rows, nil
}

// Row builds an ingestion row from one record. A missing first response
// column leaves FirstResponse nil.
func (m ColumnMap) Row(record []string) domain.IngestRow {
	row := domain.IngestRow{}
	row.TicketNumber, _ = m.cell(record, FieldTicketNumber)
	row.Created, _ = m.cell(record, FieldCreated)
	row.Closed, _ = m.cell(record, FieldClosed)
	row.State, _ = m.cell(record, FieldState)
	row.Priority, _ = m.cell(record, FieldPriority)
	row.Owner, _ = m.cell(record, FieldOwner)
	if value, ok := m.cell(record, FieldFirstResponse); ok {
		row.FirstResponse = &value
	}
	return row
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
