package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
)

// ExecutionLogRepository is the append-only audit trail of ledger runs.
type ExecutionLogRepository interface {
	Append(ctx context.Context, entry *domain.ExecutionLogEntry) error
	ListRecent(ctx context.Context, limit int) ([]domain.ExecutionLogEntry, error)
}

type executionLogRepository struct {
	db DBTX
}

// NewExecutionLogRepository instantiates repository.
func NewExecutionLogRepository(db DBTX) ExecutionLogRepository {
	return &executionLogRepository{db: db}
}

func (r *executionLogRepository) Append(ctx context.Context, entry *domain.ExecutionLogEntry) error {
	const query = `
        INSERT INTO ledger_execution_log (execution_time, statistic_date, opening_balance, new_tickets,
            resolved_tickets, closing_balance, age_lt_24h, age_24_48h, age_48_72h, age_72_96h, age_gt_96h,
            open_total, status, error_message)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		entry.ExecutedAt,
		entry.Date,
		entry.Opening,
		entry.New,
		entry.Resolved,
		entry.Closing,
		entry.Ages.Under24h,
		entry.Ages.H24to48,
		entry.Ages.H48to72,
		entry.Ages.H72to96,
		entry.Ages.Over96h,
		entry.OpenTotal,
		string(entry.Status),
		entry.Error,
	).Scan(&entry.ID)
}

func (r *executionLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.ExecutionLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, execution_time, statistic_date, opening_balance, new_tickets, resolved_tickets, closing_balance,
               age_lt_24h, age_24_48h, age_48_72h, age_72_96h, age_gt_96h, open_total, status, error_message
        FROM ledger_execution_log ORDER BY id DESC LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.ExecutionLogEntry{}
	for rows.Next() {
		var (
			entry  domain.ExecutionLogEntry
			status string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.ExecutedAt,
			&entry.Date,
			&entry.Opening,
			&entry.New,
			&entry.Resolved,
			&entry.Closing,
			&entry.Ages.Under24h,
			&entry.Ages.H24to48,
			&entry.Ages.H48to72,
			&entry.Ages.H72to96,
			&entry.Ages.Over96h,
			&entry.OpenTotal,
			&status,
			&entry.Error,
		); err != nil {
			return nil, err
		}
		entry.Status = domain.RunStatus(status)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
