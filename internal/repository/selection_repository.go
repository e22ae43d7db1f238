package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
)

// SelectionRepository keeps the last owner selection per user.
type SelectionRepository interface {
	Get(ctx context.Context, userID string) (*domain.ResponsibleSelection, error)
	Upsert(ctx context.Context, selection *domain.ResponsibleSelection) error
}

type selectionRepository struct {
	db DBTX
}

// NewSelectionRepository instantiates repository.
func NewSelectionRepository(db DBTX) SelectionRepository {
	return &selectionRepository{db: db}
}

func (r *selectionRepository) Get(ctx context.Context, userID string) (*domain.ResponsibleSelection, error) {
	var selection domain.ResponsibleSelection
	err := r.db.QueryRow(ctx,
		`SELECT user_id, owners, updated_at FROM responsible_selections WHERE user_id = $1`, userID,
	).Scan(&selection.UserID, &selection.Owners, &selection.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &selection, nil
}

func (r *selectionRepository) Upsert(ctx context.Context, selection *domain.ResponsibleSelection) error {
	const query = `
        INSERT INTO responsible_selections (user_id, owners, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (user_id) DO UPDATE SET owners = EXCLUDED.owners, updated_at = NOW()
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query, selection.UserID, selection.Owners).Scan(&selection.UpdatedAt)
}
