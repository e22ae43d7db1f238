package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/events"
	"github.com/spec-kit/helpdesk-stats/internal/repository"
	"github.com/spec-kit/helpdesk-stats/internal/repository/memory"
)

var testLoc = time.FixedZone("UTC+8", 8*3600)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handler(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	store     *memory.Store
	stores    repository.Stores
	clock     *fakeClock
	events    *recordedEvents
	ingest    *IngestService
	ledger    *LedgerService
	breakdown *BreakdownService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

// newFixtureWith lets a test decorate the transactional stores.
func newFixtureWith(t *testing.T, wrap func(repository.Stores) repository.Stores) *fixture {
	t.Helper()

	store := memory.NewStore()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, testLoc)}
	recorded := &recordedEvents{}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{events.EventTicketsIngested, events.EventTicketsCleared, events.EventLedgerComputed, events.EventLedgerFailed} {
		dispatcher.Subscribe(et, recorded.handler)
	}

	var tx repository.Transactor = store
	if wrap != nil {
		tx = wrappingTransactor{inner: store, wrap: wrap}
	}
	logger := zap.NewNop()

	return &fixture{
		store:  store,
		stores: store.Stores(),
		clock:  clock,
		events: recorded,
		ingest: NewIngestService(IngestDependencies{
			Stores: store.Stores(), Transactor: tx, Dispatcher: dispatcher, Logger: logger,
			Location: testLoc, Clock: clock.Now,
		}),
		ledger: NewLedgerService(LedgerDependencies{
			Stores: store.Stores(), Transactor: tx, Dispatcher: dispatcher, Logger: logger,
			Location: testLoc, Clock: clock.Now,
		}),
		breakdown: NewBreakdownService(BreakdownDependencies{
			Stores: store.Stores(), Logger: logger, Location: testLoc, Clock: clock.Now,
		}),
	}
}

type wrappingTransactor struct {
	inner repository.Transactor
	wrap  func(repository.Stores) repository.Stores
}

func (w wrappingTransactor) WithinTx(ctx context.Context, fn func(context.Context, repository.Stores) error) error {
	return w.inner.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		return fn(ctx, w.wrap(stores))
	})
}

func row(number, created, closed, state string) domain.IngestRow {
	return domain.IngestRow{TicketNumber: number, Created: created, Closed: closed, State: state}
}

func ownedRow(number, created, owner string) domain.IngestRow {
	return domain.IngestRow{TicketNumber: number, Created: created, State: "open", Owner: owner}
}

func (f *fixture) mustIngest(t *testing.T, mode domain.ImportMode, rows ...domain.IngestRow) *IngestResult {
	t.Helper()
	result, err := f.ingest.Ingest(context.Background(), IngestInput{Filename: "export.xlsx", Mode: mode, Rows: rows})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	return result
}

func (f *fixture) ticket(t *testing.T, number string) domain.Ticket {
	t.Helper()
	all, err := f.stores.Tickets.List(context.Background(), repository.TicketFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, tk := range all {
		if tk.TicketNumber == number {
			return tk
		}
	}
	t.Fatalf("ticket %s not stored", number)
	return domain.Ticket{}
}
