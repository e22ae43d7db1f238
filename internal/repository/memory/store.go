// Package memory implements the repository interfaces on process memory.
// It backs development runs without POSTGRES_DSN and the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/repository"
)

type dataset struct {
	tickets    map[string]domain.Ticket
	ledger     map[time.Time]domain.DailyLedgerEntry
	logs       []domain.ExecutionLogEntry
	nextLogID  int64
	uploads    []domain.UploadBatch
	selections map[string]domain.ResponsibleSelection
	schedule   *domain.ScheduleConfig
	queries    []domain.StatisticQuery
	nextQuery  int64
}

func newDataset() *dataset {
	return &dataset{
		tickets:    make(map[string]domain.Ticket),
		ledger:     make(map[time.Time]domain.DailyLedgerEntry),
		selections: make(map[string]domain.ResponsibleSelection),
	}
}

// clone copies the containers. Stored values are replaced wholesale, never
// mutated in place, so sharing their pointer fields is safe.
func (d *dataset) clone() *dataset {
	c := &dataset{
		tickets:    make(map[string]domain.Ticket, len(d.tickets)),
		ledger:     make(map[time.Time]domain.DailyLedgerEntry, len(d.ledger)),
		logs:       append([]domain.ExecutionLogEntry(nil), d.logs...),
		nextLogID:  d.nextLogID,
		uploads:    append([]domain.UploadBatch(nil), d.uploads...),
		selections: make(map[string]domain.ResponsibleSelection, len(d.selections)),
		queries:    append([]domain.StatisticQuery(nil), d.queries...),
		nextQuery:  d.nextQuery,
	}
	for k, v := range d.tickets {
		c.tickets[k] = v
	}
	for k, v := range d.ledger {
		c.ledger[k] = v
	}
	for k, v := range d.selections {
		c.selections[k] = v
	}
	if d.schedule != nil {
		schedule := *d.schedule
		c.schedule = &schedule
	}
	return c
}

// Store owns the data and serialises transactions.
type Store struct {
	mu   sync.RWMutex
	data *dataset
	now  func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: newDataset(), now: time.Now}
}

// view gives repositories access to a dataset. Outside a transaction it
// locks the store; inside one it owns a private copy.
type view struct {
	store *Store
	data  *dataset
	now   func() time.Time
}

func (v view) read(fn func(d *dataset) error) error {
	if v.store == nil {
		return fn(v.data)
	}
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	return fn(v.store.data)
}

func (v view) write(fn func(d *dataset) error) error {
	if v.store == nil {
		return fn(v.data)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data)
}

func (v view) stores() repository.Stores {
	return repository.Stores{
		Tickets:       &ticketRepository{v: v},
		Ledger:        &ledgerRepository{v: v},
		ExecutionLogs: &executionLogRepository{v: v},
		Uploads:       &uploadRepository{v: v},
		Selections:    &selectionRepository{v: v},
		Schedule:      &scheduleRepository{v: v},
		QueryAudits:   &queryAuditRepository{v: v},
	}
}

// Stores returns repositories operating directly on the store.
func (s *Store) Stores() repository.Stores {
	return view{store: s, now: s.now}.stores()
}

// WithinTx runs fn on a copy of the data and publishes the copy only when fn
// succeeds. Transactions are serialised; fn must only use the stores it is
// given.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, stores repository.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	working := s.data.clone()
	if err := fn(ctx, view{data: working, now: s.now}.stores()); err != nil {
		return err
	}
	s.data = working
	return nil
}
