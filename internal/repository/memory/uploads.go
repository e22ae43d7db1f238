package memory

import (
	"context"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/repository"
)

type uploadRepository struct {
	v view
}

func (r *uploadRepository) Create(_ context.Context, batch *domain.UploadBatch) error {
	return r.v.write(func(d *dataset) error {
		d.uploads = append(d.uploads, *batch)
		return nil
	})
}

func (r *uploadRepository) ListRecent(_ context.Context, limit int) ([]domain.UploadBatch, error) {
	if limit <= 0 {
		limit = 20
	}
	batches := []domain.UploadBatch{}
	_ = r.v.read(func(d *dataset) error {
		for i := len(d.uploads) - 1; i >= 0 && len(batches) < limit; i-- {
			batches = append(batches, d.uploads[i])
		}
		return nil
	})
	return batches, nil
}

type selectionRepository struct {
	v view
}

func (r *selectionRepository) Get(_ context.Context, userID string) (*domain.ResponsibleSelection, error) {
	var selection *domain.ResponsibleSelection
	_ = r.v.read(func(d *dataset) error {
		if stored, ok := d.selections[userID]; ok {
			stored.Owners = append([]string(nil), stored.Owners...)
			selection = &stored
		}
		return nil
	})
	if selection == nil {
		return nil, repository.ErrNotFound
	}
	return selection, nil
}

func (r *selectionRepository) Upsert(_ context.Context, selection *domain.ResponsibleSelection) error {
	selection.UpdatedAt = r.v.now()
	stored := *selection
	stored.Owners = append([]string(nil), selection.Owners...)
	return r.v.write(func(d *dataset) error {
		d.selections[selection.UserID] = stored
		return nil
	})
}

type scheduleRepository struct {
	v view
}

func (r *scheduleRepository) Get(_ context.Context) (*domain.ScheduleConfig, error) {
	var cfg *domain.ScheduleConfig
	_ = r.v.read(func(d *dataset) error {
		if d.schedule != nil {
			stored := *d.schedule
			cfg = &stored
		}
		return nil
	})
	if cfg == nil {
		return nil, repository.ErrNotFound
	}
	return cfg, nil
}

func (r *scheduleRepository) Save(_ context.Context, cfg *domain.ScheduleConfig) error {
	cfg.UpdatedAt = r.v.now()
	stored := *cfg
	return r.v.write(func(d *dataset) error {
		d.schedule = &stored
		return nil
	})
}

type queryAuditRepository struct {
	v view
}

func (r *queryAuditRepository) Append(_ context.Context, query *domain.StatisticQuery) error {
	return r.v.write(func(d *dataset) error {
		d.nextQuery++
		query.ID = d.nextQuery
		stored := *query
		stored.Owners = append([]string(nil), query.Owners...)
		d.queries = append(d.queries, stored)
		return nil
	})
}

func (r *queryAuditRepository) ListRecent(_ context.Context, limit int) ([]domain.StatisticQuery, error) {
	if limit <= 0 {
		limit = 50
	}
	queries := []domain.StatisticQuery{}
	_ = r.v.read(func(d *dataset) error {
		for i := len(d.queries) - 1; i >= 0 && len(queries) < limit; i-- {
			queries = append(queries, d.queries[i])
		}
		return nil
	})
	return queries, nil
}
