package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-stats/internal/cache"
	"github.com/spec-kit/helpdesk-stats/internal/events"
	"github.com/spec-kit/helpdesk-stats/internal/observability"
)

// ActivityService reacts to domain events: it logs them, updates the
// counters and drops cached statistics after the ticket set changes.
type ActivityService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cache      *cache.StatsCache
}

// NewActivityService creates the service.
func NewActivityService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics, statsCache *cache.StatsCache) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		cache:      statsCache,
	}
}

// RegisterHandlers subscribes to events.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketsIngested, a.handleTicketsIngested)
	a.dispatcher.Subscribe(events.EventTicketsCleared, a.handleTicketsCleared)
	a.dispatcher.Subscribe(events.EventLedgerComputed, a.handleLedgerComputed)
	a.dispatcher.Subscribe(events.EventLedgerFailed, a.handleLedgerFailed)
	a.dispatcher.Subscribe(events.EventScheduleUpdated, a.handleScheduleUpdated)
}

func (a *ActivityService) handleTicketsIngested(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketsIngestedPayload)
	a.logger.Info("TicketsIngested", zap.String("event_id", event.ID), zap.Any("payload", payload))
	a.metrics.RecordIngest(payload.Inserted, payload.DuplicatesSkipped, payload.IntraBatchDuplicates, payload.Invalid)
	return a.cache.Invalidate(ctx)
}

func (a *ActivityService) handleTicketsCleared(ctx context.Context, event events.Event) error {
	a.logger.Info("TicketsCleared", zap.String("event_id", event.ID), zap.Any("payload", event.Payload))
	a.metrics.RecordClear()
	return a.cache.Invalidate(ctx)
}

// A ledger run refreshes the stored open ages, so cached reports are stale.
func (a *ActivityService) handleLedgerComputed(ctx context.Context, event events.Event) error {
	a.logger.Info("LedgerComputed", zap.String("event_id", event.ID), zap.Any("payload", event.Payload))
	a.metrics.RecordLedgerRun(event.Timestamp, false)
	return a.cache.Invalidate(ctx)
}

func (a *ActivityService) handleLedgerFailed(_ context.Context, event events.Event) error {
	a.logger.Warn("LedgerFailed", zap.String("event_id", event.ID), zap.Any("payload", event.Payload))
	a.metrics.RecordLedgerRun(event.Timestamp, true)
	return nil
}

func (a *ActivityService) handleScheduleUpdated(_ context.Context, event events.Event) error {
	a.logger.Info("ScheduleUpdated", zap.String("event_id", event.ID), zap.Any("payload", event.Payload))
	return nil
}
