package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
)

// UploadRepository records ingestion batches.
type UploadRepository interface {
	Create(ctx context.Context, batch *domain.UploadBatch) error
	ListRecent(ctx context.Context, limit int) ([]domain.UploadBatch, error)
}

type uploadRepository struct {
	db DBTX
}

// NewUploadRepository instantiates repository.
func NewUploadRepository(db DBTX) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, batch *domain.UploadBatch) error {
	const query = `
        INSERT INTO upload_batches (id, filename, upload_time, record_count, new_records_count,
            duplicates_skipped, invalid_rows, import_mode)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.db.Exec(ctx, query,
		batch.ID,
		batch.Filename,
		batch.UploadedAt,
		batch.TotalRecords,
		batch.NewRecords,
		batch.Skipped,
		batch.Invalid,
		string(batch.Mode),
	)
	return err
}

func (r *uploadRepository) ListRecent(ctx context.Context, limit int) ([]domain.UploadBatch, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
        SELECT id, filename, upload_time, record_count, new_records_count, duplicates_skipped, invalid_rows, import_mode
        FROM upload_batches ORDER BY upload_time DESC LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := []domain.UploadBatch{}
	for rows.Next() {
		var (
			batch domain.UploadBatch
			mode  string
		)
		if err := rows.Scan(
			&batch.ID,
			&batch.Filename,
			&batch.UploadedAt,
			&batch.TotalRecords,
			&batch.NewRecords,
			&batch.Skipped,
			&batch.Invalid,
			&mode,
		); err != nil {
			return nil, err
		}
		batch.Mode = domain.ImportMode(mode)
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}
