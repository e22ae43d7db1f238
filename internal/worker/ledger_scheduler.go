package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/events"
	"github.com/spec-kit/helpdesk-stats/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-stats/pkg/util"
)

// LedgerRunner computes ledger entries.
type LedgerRunner interface {
	Compute(ctx context.Context, day time.Time) (*domain.DailyLedgerEntry, error)
	Today() time.Time
}

// SchedulerStatus describes the scheduler for the API.
type SchedulerStatus struct {
	Schedule domain.ScheduleConfig `json:"schedule"`
	Timezone string                `json:"timezone"`
	NextRun  *time.Time            `json:"next_run,omitempty"`
	Running  bool                  `json:"running"`
}

// LedgerScheduler fires the daily ledger run at a configured local time and
// serialises it with manual triggers.
type LedgerScheduler struct {
	runner     LedgerRunner
	schedules  repository.ScheduleRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	loc        *time.Location
	now        func() time.Time
	cron       *cron.Cron

	// runMu is held for the whole of every ledger run.
	runMu   sync.Mutex
	running atomic.Bool

	mu       sync.Mutex
	ctx      context.Context
	current  domain.ScheduleConfig
	entry    cron.EntryID
	schedule cron.Schedule
}

// SchedulerDependencies bundles collaborators for the scheduler.
type SchedulerDependencies struct {
	Runner     LedgerRunner
	Schedules  repository.ScheduleRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Location   *time.Location
	Clock      func() time.Time
	// Default applies until a schedule has been saved.
	Default domain.ScheduleConfig
}

// NewLedgerScheduler constructs the scheduler. Call Start to arm the job.
func NewLedgerScheduler(deps SchedulerDependencies) *LedgerScheduler {
	s := &LedgerScheduler{
		runner:     deps.Runner,
		schedules:  deps.Schedules,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		loc:        deps.Location,
		now:        deps.Clock,
		current:    deps.Default,
		ctx:        context.Background(),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.cron = cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cronLogger{logger: s.logger.Sugar()}),
	)
	return s
}

// Start loads the persisted schedule, arms the daily job and stops the cron
// runner once ctx is cancelled.
func (s *LedgerScheduler) Start(ctx context.Context) {
	if s.schedules != nil {
		saved, err := s.schedules.Get(ctx)
		switch {
		case err == nil:
			s.mu.Lock()
			s.current = *saved
			s.mu.Unlock()
		case !errors.Is(err, repository.ErrNotFound):
			s.logger.Warn("unable to load ledger schedule; using defaults", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	if err := s.arm(); err != nil {
		s.logger.Error("unable to arm ledger schedule", zap.Error(err))
	}
	s.cron.Start()

	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
}

// arm replaces the cron entry with one matching the current schedule. A
// disabled schedule leaves no entry.
func (s *LedgerScheduler) arm() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
		s.schedule = nil
	}
	if !s.current.Enabled {
		s.logger.Info("ledger schedule disabled")
		return nil
	}

	spec := s.current.At.CronSpec()
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	ctx := s.ctx
	s.entry = s.cron.Schedule(schedule, cron.FuncJob(func() { s.runScheduled(ctx) }))
	s.schedule = schedule
	s.logger.Info("ledger run scheduled",
		zap.String("schedule_time", s.current.At.String()),
		zap.String("timezone", s.loc.String()),
	)
	return nil
}

// runScheduled waits for any manual run to finish. Failures are already in
// the execution log; they are only logged here so later runs still fire.
func (s *LedgerScheduler) runScheduled(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("scheduled ledger run panicked", zap.Any("panic", p))
		}
	}()

	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.running.Store(true)
	defer s.running.Store(false)

	day := s.runner.Today()
	if _, err := s.runner.Compute(ctx, day); err != nil {
		s.logger.Error("scheduled ledger run failed", zap.String("date", domain.FormatDay(day)), zap.Error(err))
	}
}

// Trigger runs the ledger for day, or for today when day is nil. It fails
// with CONCURRENT_RUN instead of waiting when a run is in progress.
func (s *LedgerScheduler) Trigger(ctx context.Context, day *time.Time) (*domain.DailyLedgerEntry, error) {
	if !s.runMu.TryLock() {
		return nil, apperrors.NewConcurrentRun("a ledger run is already in progress")
	}
	defer s.runMu.Unlock()
	s.running.Store(true)
	defer s.running.Store(false)

	target := s.runner.Today()
	if day != nil {
		target = *day
	}
	s.logger.Info("manual ledger run", zap.String("date", domain.FormatDay(target)))
	return s.runner.Compute(ctx, target)
}

// UpdateSchedule persists a new run time and re-arms the timer.
func (s *LedgerScheduler) UpdateSchedule(ctx context.Context, at string, enabled bool) (*domain.ScheduleConfig, error) {
	clock, err := domain.ParseClockTime(at)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"schedule_time": at})
	}
	cfg := &domain.ScheduleConfig{At: clock, Enabled: enabled}
	if s.schedules != nil {
		if err := s.schedules.Save(ctx, cfg); err != nil {
			return nil, apperrors.NewStoreUnavailable(err)
		}
	}

	s.mu.Lock()
	s.current = *cfg
	s.mu.Unlock()
	if err := s.arm(); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("ledger schedule updated", zap.String("schedule_time", clock.String()), zap.Bool("enabled", enabled))
	if s.dispatcher != nil {
		event := events.NewEvent(events.EventScheduleUpdated, s.now(), events.ScheduleUpdatedPayload{At: clock, Enabled: enabled})
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
		}
	}
	return cfg, nil
}

// Status reports the active schedule and the next planned run.
func (s *LedgerScheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := SchedulerStatus{
		Schedule: s.current,
		Timezone: s.loc.String(),
		Running:  s.running.Load(),
	}
	if s.schedule != nil {
		// Schedules parsed without CRON_TZ follow the zone of the instant passed in.
		next := s.schedule.Next(s.now().In(s.loc))
		status.NextRun = &next
	}
	return status
}

// cronLogger routes cron's own messages to zap.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
