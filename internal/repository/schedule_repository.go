package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
)

// ScheduleRepository stores the single ledger schedule row.
type ScheduleRepository interface {
	// Get returns ErrNotFound until a schedule has been saved.
	Get(ctx context.Context) (*domain.ScheduleConfig, error)
	Save(ctx context.Context, cfg *domain.ScheduleConfig) error
}

type scheduleRepository struct {
	db DBTX
}

// NewScheduleRepository instantiates repository.
func NewScheduleRepository(db DBTX) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Get(ctx context.Context) (*domain.ScheduleConfig, error) {
	var (
		cfg domain.ScheduleConfig
		at  string
	)
	err := r.db.QueryRow(ctx, `SELECT schedule_time, enabled, updated_at FROM ledger_schedule WHERE id = 1`).
		Scan(&at, &cfg.Enabled, &cfg.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if cfg.At, err = domain.ParseClockTime(at); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *scheduleRepository) Save(ctx context.Context, cfg *domain.ScheduleConfig) error {
	const query = `
        INSERT INTO ledger_schedule (id, schedule_time, enabled, updated_at)
        VALUES (1, $1, $2, NOW())
        ON CONFLICT (id) DO UPDATE SET schedule_time = EXCLUDED.schedule_time, enabled = EXCLUDED.enabled, updated_at = NOW()
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query, cfg.At.String(), cfg.Enabled).Scan(&cfg.UpdatedAt)
}
