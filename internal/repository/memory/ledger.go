package memory

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/repository"
)

type ledgerRepository struct {
	v view
}

func (r *ledgerRepository) Get(_ context.Context, day time.Time) (*domain.DailyLedgerEntry, error) {
	var entry *domain.DailyLedgerEntry
	_ = r.v.read(func(d *dataset) error {
		if stored, ok := d.ledger[day]; ok {
			entry = &stored
		}
		return nil
	})
	if entry == nil {
		return nil, repository.ErrNotFound
	}
	return entry, nil
}

func (r *ledgerRepository) Upsert(_ context.Context, entry *domain.DailyLedgerEntry) error {
	now := r.v.now()
	return r.v.write(func(d *dataset) error {
		if existing, ok := d.ledger[entry.Date]; ok {
			entry.CreatedAt = existing.CreatedAt
		} else {
			entry.CreatedAt = now
		}
		entry.UpdatedAt = now
		d.ledger[entry.Date] = *entry
		return nil
	})
}

func (r *ledgerRepository) ListRange(_ context.Context, from, to *time.Time) ([]domain.DailyLedgerEntry, error) {
	entries := []domain.DailyLedgerEntry{}
	_ = r.v.read(func(d *dataset) error {
		for day, entry := range d.ledger {
			if from != nil && day.Before(*from) {
				continue
			}
			if to != nil && day.After(*to) {
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
	return entries, nil
}

type executionLogRepository struct {
	v view
}

func (r *executionLogRepository) Append(_ context.Context, entry *domain.ExecutionLogEntry) error {
	return r.v.write(func(d *dataset) error {
		d.nextLogID++
		entry.ID = d.nextLogID
		d.logs = append(d.logs, *entry)
		return nil
	})
}

func (r *executionLogRepository) ListRecent(_ context.Context, limit int) ([]domain.ExecutionLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	entries := []domain.ExecutionLogEntry{}
	_ = r.v.read(func(d *dataset) error {
		for i := len(d.logs) - 1; i >= 0 && len(entries) < limit; i-- {
			entries = append(entries, d.logs[i])
		}
		return nil
	})
	return entries, nil
}
