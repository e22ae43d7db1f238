package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/events"
	"github.com/spec-kit/helpdesk-stats/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-stats/pkg/util"
)

// LedgerService computes and stores the daily balance of open tickets.
type LedgerService struct {
	stores     repository.Stores
	tx         repository.Transactor
	dispatcher events.Dispatcher
	logger     *zap.Logger
	loc        *time.Location
	now        func() time.Time
}

// LedgerDependencies bundles collaborators for the ledger service.
type LedgerDependencies struct {
	Stores     repository.Stores
	Transactor repository.Transactor
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// Location defines the calendar day boundaries.
	Location *time.Location
	Clock    func() time.Time
}

// NewLedgerService constructs the service.
func NewLedgerService(deps LedgerDependencies) *LedgerService {
	svc := &LedgerService{
		stores:     deps.Stores,
		tx:         deps.Transactor,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		loc:        deps.Location,
		now:        deps.Clock,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.loc == nil {
		svc.loc = time.Local
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Today returns the current calendar day in the configured time zone.
func (s *LedgerService) Today() time.Time {
	return domain.CalendarDay(s.now(), s.loc)
}

// Compute recalculates the entry for day and overwrites any previous one.
// The entry, its execution log row and the refreshed ticket ages commit
// together. On failure nothing is written except a failure log row.
func (s *LedgerService) Compute(ctx context.Context, day time.Time) (*domain.DailyLedgerEntry, error) {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	now := s.now()

	var entry *domain.DailyLedgerEntry
	err := guard(func() error {
		return s.tx.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
			computed, err := s.compute(ctx, stores, day, now)
			if err != nil {
				return err
			}
			if err := stores.Ledger.Upsert(ctx, computed); err != nil {
				return fmt.Errorf("store ledger entry: %w", err)
			}
			logEntry := domain.LogFromEntry(*computed, now.In(s.loc))
			if err := stores.ExecutionLogs.Append(ctx, &logEntry); err != nil {
				return fmt.Errorf("append execution log: %w", err)
			}
			if _, err := stores.Tickets.RefreshOpenAges(ctx, now); err != nil {
				return fmt.Errorf("refresh ticket ages: %w", err)
			}
			entry = computed
			return nil
		})
	})
	if err != nil {
		s.recordFailure(ctx, day, now, err)
		return nil, apperrors.NewComputationFailed(domain.FormatDay(day), err)
	}

	s.logger.Info("daily ledger computed",
		zap.String("date", domain.FormatDay(day)),
		zap.Int("opening", entry.Opening),
		zap.Int("new", entry.New),
		zap.Int("resolved", entry.Resolved),
		zap.Int("closing", entry.Closing))
	s.publish(ctx, events.NewEvent(events.EventLedgerComputed, now, events.LedgerComputedPayload{
		Date:      day,
		Opening:   entry.Opening,
		Closing:   entry.Closing,
		OpenTotal: entry.Ages.Total(),
	}))
	return entry, nil
}

func (s *LedgerService) compute(ctx context.Context, stores repository.Stores, day, now time.Time) (*domain.DailyLedgerEntry, error) {
	opening, err := s.openingBalance(ctx, stores, day)
	if err != nil {
		return nil, err
	}

	start, end := domain.DayBounds(day, s.loc)
	created, err := stores.Tickets.Count(ctx, repository.TicketFilter{CreatedFrom: &start, CreatedTo: &end})
	if err != nil {
		return nil, fmt.Errorf("count new tickets: %w", err)
	}
	resolved, err := stores.Tickets.Count(ctx, repository.TicketFilter{ClosedFrom: &start, ClosedTo: &end})
	if err != nil {
		return nil, fmt.Errorf("count resolved tickets: %w", err)
	}
	unclosed := repository.TicketFilter{Openness: repository.OpennessUnclosed, Now: now}
	closing, err := stores.Tickets.Count(ctx, unclosed)
	if err != nil {
		return nil, fmt.Errorf("count open tickets: %w", err)
	}
	ages, err := stores.Tickets.AgeHistogram(ctx, unclosed)
	if err != nil {
		return nil, fmt.Errorf("age histogram: %w", err)
	}

	return &domain.DailyLedgerEntry{
		Date:     day,
		Opening:  opening,
		New:      created,
		Resolved: resolved,
		Closing:  closing,
		Ages:     ages,
	}, nil
}

// openingBalance carries yesterday's closing balance forward. Without a
// previous entry it falls back to every ticket outside the terminal states.
func (s *LedgerService) openingBalance(ctx context.Context, stores repository.Stores, day time.Time) (int, error) {
	previous, err := stores.Ledger.Get(ctx, day.AddDate(0, 0, -1))
	if err == nil {
		return previous.Closing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return 0, fmt.Errorf("load previous entry: %w", err)
	}

	total, err := stores.Tickets.Count(ctx, repository.TicketFilter{})
	if err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	terminal, err := stores.Tickets.Count(ctx, repository.TicketFilter{States: domain.TerminalStates})
	if err != nil {
		return 0, fmt.Errorf("count terminal tickets: %w", err)
	}
	return total - terminal, nil
}

func (s *LedgerService) recordFailure(ctx context.Context, day, now time.Time, cause error) {
	msg := cause.Error()
	s.logger.Error("daily ledger failed", zap.String("date", domain.FormatDay(day)), zap.Error(cause))

	failure := domain.ExecutionLogEntry{
		ExecutedAt: now.In(s.loc),
		Date:       day,
		Status:     domain.RunStatusFailure,
		Error:      &msg,
	}
	if err := s.stores.ExecutionLogs.Append(ctx, &failure); err != nil {
		s.logger.Error("unable to record ledger failure", zap.Error(err))
	}
	s.publish(ctx, events.NewEvent(events.EventLedgerFailed, now, events.LedgerFailedPayload{Date: day, Error: msg}))
}

// ListLedger returns entries between from and to inclusive, oldest first.
func (s *LedgerService) ListLedger(ctx context.Context, from, to *time.Time) ([]domain.DailyLedgerEntry, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, apperrors.NewValidationError("date range is inverted", map[string]any{
			"from": domain.FormatDay(*from),
			"to":   domain.FormatDay(*to),
		})
	}
	entries, err := s.stores.Ledger.ListRange(ctx, from, to)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return entries, nil
}

// ListExecutionLogs returns the most recent runs first.
func (s *LedgerService) ListExecutionLogs(ctx context.Context, limit int) ([]domain.ExecutionLogEntry, error) {
	logs, err := s.stores.ExecutionLogs.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return logs, nil
}

func (s *LedgerService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}

// guard converts a panic in fn into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}
