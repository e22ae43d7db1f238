package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// DBTX is the query surface shared by pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is a DBTX that can open transactions.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Stores groups every repository bound to the same connection or transaction.
type Stores struct {
	Tickets       TicketRepository
	Ledger        LedgerRepository
	ExecutionLogs ExecutionLogRepository
	Uploads       UploadRepository
	Selections    SelectionRepository
	Schedule      ScheduleRepository
	QueryAudits   QueryAuditRepository
}

// Transactor runs fn against stores bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

// NewPostgresStores binds every repository to db.
func NewPostgresStores(db DBTX) Stores {
	return Stores{
		Tickets:       NewTicketRepository(db),
		Ledger:        NewLedgerRepository(db),
		ExecutionLogs: NewExecutionLogRepository(db),
		Uploads:       NewUploadRepository(db),
		Selections:    NewSelectionRepository(db),
		Schedule:      NewScheduleRepository(db),
		QueryAudits:   NewQueryAuditRepository(db),
	}
}

type pgTransactor struct {
	db TxBeginner
}

// NewTransactor returns a Transactor backed by db.
func NewTransactor(db TxBeginner) Transactor {
	return &pgTransactor{db: db}
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) (err error) {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(ctx, NewPostgresStores(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
