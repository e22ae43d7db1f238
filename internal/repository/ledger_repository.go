package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
)

// LedgerRepository persists one balance row per calendar day.
type LedgerRepository interface {
	Get(ctx context.Context, day time.Time) (*domain.DailyLedgerEntry, error)
	// Upsert inserts the entry or overwrites the existing row for its date.
	Upsert(ctx context.Context, entry *domain.DailyLedgerEntry) error
	// ListRange returns entries ordered by date; nil bounds are open.
	ListRange(ctx context.Context, from, to *time.Time) ([]domain.DailyLedgerEntry, error)
}

type ledgerRepository struct {
	db DBTX
}

// NewLedgerRepository instantiates repository.
func NewLedgerRepository(db DBTX) LedgerRepository {
	return &ledgerRepository{db: db}
}

const ledgerColumns = `statistic_date, opening_balance, new_tickets, resolved_tickets, closing_balance,
               age_lt_24h, age_24_48h, age_48_72h, age_72_96h, age_gt_96h, created_at, updated_at`

func (r *ledgerRepository) Get(ctx context.Context, day time.Time) (*domain.DailyLedgerEntry, error) {
	row := r.db.QueryRow(ctx, `SELECT `+ledgerColumns+` FROM daily_ledger WHERE statistic_date = $1`, day)
	entry, err := scanLedger(row)
	if err != nil {
		return nil, notFound(err)
	}
	return entry, nil
}

func (r *ledgerRepository) Upsert(ctx context.Context, entry *domain.DailyLedgerEntry) error {
	const query = `
        INSERT INTO daily_ledger (statistic_date, opening_balance, new_tickets, resolved_tickets, closing_balance,
            age_lt_24h, age_24_48h, age_48_72h, age_72_96h, age_gt_96h)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (statistic_date) DO UPDATE SET
            opening_balance = EXCLUDED.opening_balance,
            new_tickets = EXCLUDED.new_tickets,
            resolved_tickets = EXCLUDED.resolved_tickets,
            closing_balance = EXCLUDED.closing_balance,
            age_lt_24h = EXCLUDED.age_lt_24h,
            age_24_48h = EXCLUDED.age_24_48h,
            age_48_72h = EXCLUDED.age_48_72h,
            age_72_96h = EXCLUDED.age_72_96h,
            age_gt_96h = EXCLUDED.age_gt_96h,
            updated_at = NOW()
        RETURNING created_at, updated_at`
	return r.db.QueryRow(ctx, query,
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
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
}

func (r *ledgerRepository) ListRange(ctx context.Context, from, to *time.Time) ([]domain.DailyLedgerEntry, error) {
	w := &whereBuilder{}
	if from != nil {
		w.add(fmt.Sprintf("statistic_date >= %s", w.arg(*from)))
	}
	if to != nil {
		w.add(fmt.Sprintf("statistic_date <= %s", w.arg(*to)))
	}
	rows, err := r.db.Query(ctx, `SELECT `+ledgerColumns+` FROM daily_ledger`+w.String()+` ORDER BY statistic_date`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.DailyLedgerEntry{}
	for rows.Next() {
		entry, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func scanLedger(row pgx.Row) (*domain.DailyLedgerEntry, error) {
	var entry domain.DailyLedgerEntry
	if err := row.Scan(
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
		&entry.CreatedAt,
		&entry.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &entry, nil
}
