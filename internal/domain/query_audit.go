package domain

import "time"

// QueryType names the statistics view an audited request asked for.
type QueryType string

const (
	QueryOverview           QueryType = "overview"
	QueryOwnerBreakdown     QueryType = "owner_breakdown"
	QueryAgeDetails         QueryType = "age_details"
	QueryEmptyFirstResponse QueryType = "empty_firstresponse"
	QueryExportOverview     QueryType = "export_txt"
	QueryExportBreakdown    QueryType = "export_owner_breakdown"
	QueryExportLogs         QueryType = "export_execution_logs"
)

// StatisticQuery records one statistics request together with the store
// totals at the time it was answered.
type StatisticQuery struct {
	ID                      int64     `json:"id"`
	QueriedAt               time.Time `json:"query_time"`
	Type                    QueryType `json:"query_type"`
	UserID                  string    `json:"user_id,omitempty"`
	Period                  string    `json:"period,omitempty"`
	Owners                  []string  `json:"owners,omitempty"`
	AgeSegment              string    `json:"age_segment,omitempty"`
	RecordCount             int       `json:"record_count"`
	TotalRecords            int       `json:"total_records"`
	OpenCount               int       `json:"current_open_count"`
	EmptyFirstResponseCount int       `json:"empty_firstresponse_count"`
}
