// Package importer turns helpdesk spreadsheet exports into ingestion rows.
package importer

import (
	"strings"

	apperrors "github.com/spec-kit/helpdesk-stats/pkg/util"
)

// Field is a canonical ingestion column.
type Field string

const (
	FieldTicketNumber  Field = "ticket_number"
	FieldCreated       Field = "created_date"
	FieldClosed        Field = "closed_date"
	FieldState         Field = "state"
	FieldPriority      Field = "priority"
	FieldOwner         Field = "owner"
	FieldFirstResponse Field = "first_response"
)

// ColumnSynonyms lists, per canonical field, the header names exports use for
// it. Earlier names win when a sheet carries several of them.
var ColumnSynonyms = []struct {
	Field    Field
	Names    []string
	Required bool
}{
	{Field: FieldTicketNumber, Names: []string{"Ticket Number", "TicketNumber", "Ticket ID", "Number", "Ticket", "ticket_number", "id"}, Required: true},
	{Field: FieldCreated, Names: []string{"Created", "CreateTime", "Create Time", "Date Created", "Create Date", "creation_date", "created_date"}, Required: true},
	{Field: FieldClosed, Names: []string{"Closed", "CloseTime", "Close Time", "Date Closed", "Close Date", "close_date", "closed_date"}},
	{Field: FieldState, Names: []string{"State", "Status", "Ticket State", "Ticket Status"}},
	{Field: FieldPriority, Names: []string{"Priority", "Ticket Priority"}},
	{Field: FieldOwner, Names: []string{"Responsible", "Assignee", "处理人", "负责人", "Owner", "Ticket Owner", "Assigned To"}},
	{Field: FieldFirstResponse, Names: []string{"FirstResponse", "First Response", "First Reply", "First Reply Time", "first_response"}},
}

// minFuzzyLen keeps short names such as "id" out of substring matching.
const minFuzzyLen = 4

// ColumnMap maps canonical fields to header positions.
type ColumnMap map[Field]int

// MapColumns resolves the header row. Exact (case-insensitive) matches are
// tried first for every field, then substring matches for fields still
// unresolved. A header column is claimed by at most one field.
func MapColumns(headers []string) (ColumnMap, error) {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	columns := make(ColumnMap)
	claimed := make(map[int]bool)
	match := func(fuzzy bool) {
		for _, entry := range ColumnSynonyms {
			if _, done := columns[entry.Field]; done {
				continue
			}
		names:
			for _, name := range entry.Names {
				name = strings.ToLower(name)
				if fuzzy && len(name) < minFuzzyLen {
					continue
				}
				for i, header := range normalized {
					if claimed[i] || header == "" {
						continue
					}
					if header == name || (fuzzy && strings.Contains(header, name)) {
						columns[entry.Field] = i
						claimed[i] = true
						break names
					}
				}
			}
		}
	}
	match(false)
	match(true)

	var missing []string
	for _, entry := range ColumnSynonyms {
		if _, ok := columns[entry.Field]; entry.Required && !ok {
			missing = append(missing, string(entry.Field))
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("required columns are missing", map[string]any{
			"missing": missing,
			"headers": headers,
		})
	}
	return columns, nil
}

// cell returns the trimmed value of a field, reporting whether the column exists.
func (m ColumnMap) cell(record []string, field Field) (string, bool) {
	idx, ok := m[field]
	if !ok {
		return "", false
	}
	if idx >= len(record) {
		return "", true
	}
	return strings.TrimSpace(record[idx]), true
}
