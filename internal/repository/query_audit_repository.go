package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
)

// QueryAuditRepository is the append-only record of statistics requests.
type QueryAuditRepository interface {
	Append(ctx context.Context, query *domain.StatisticQuery) error
	ListRecent(ctx context.Context, limit int) ([]domain.StatisticQuery, error)
}

type queryAuditRepository struct {
	db DBTX
}

// NewQueryAuditRepository instantiates repository.
func NewQueryAuditRepository(db DBTX) QueryAuditRepository {
	return &queryAuditRepository{db: db}
}

func (r *queryAuditRepository) Append(ctx context.Context, query *domain.StatisticQuery) error {
	const stmt = `
        INSERT INTO statistic_queries (query_time, query_type, user_id, period, owners, age_segment,
            record_count, total_records, current_open_count, empty_firstresponse_count)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id`
	owners := query.Owners
	if owners == nil {
		owners = []string{}
	}
	return r.db.QueryRow(ctx, stmt,
		query.QueriedAt,
		string(query.Type),
		query.UserID,
		query.Period,
		owners,
		query.AgeSegment,
		query.RecordCount,
		query.TotalRecords,
		query.OpenCount,
		query.EmptyFirstResponseCount,
	).Scan(&query.ID)
}

func (r *queryAuditRepository) ListRecent(ctx context.Context, limit int) ([]domain.StatisticQuery, error) {
	if limit <= 0 {
		limit = 50
	}
	const stmt = `
        SELECT id, query_time, query_type, user_id, period, owners, age_segment,
               record_count, total_records, current_open_count, empty_firstresponse_count
        FROM statistic_queries ORDER BY id DESC LIMIT $1`
	rows, err := r.db.Query(ctx, stmt, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	queries := []domain.StatisticQuery{}
	for rows.Next() {
		var (
			query     domain.StatisticQuery
			queryType string
		)
		if err := rows.Scan(
			&query.ID,
			&query.QueriedAt,
			&queryType,
			&query.UserID,
			&query.Period,
			&query.Owners,
			&query.AgeSegment,
			&query.RecordCount,
			&query.TotalRecords,
			&query.OpenCount,
			&query.EmptyFirstResponseCount,
		); err != nil {
			return nil, err
		}
		query.Type = domain.QueryType(queryType)
		queries = append(queries, query)
	}
	return queries, rows.Err()
}
