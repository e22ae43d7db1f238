package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-stats/pkg/util"
)

// AuditService keeps the statistic query log.
type AuditService struct {
	stores repository.Stores
	logger *zap.Logger
	now    func() time.Time
}

// AuditDependencies bundles collaborators for the audit service.
type AuditDependencies struct {
	Stores repository.Stores
	Logger *zap.Logger
	Clock  func() time.Time
}

// NewAuditService constructs the service.
func NewAuditService(deps AuditDependencies) *AuditService {
	svc := &AuditService{stores: deps.Stores, logger: deps.Logger, now: deps.Clock}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Record stamps query with the current store totals and appends it. An
// audit failure never fails the request it describes, so errors are only
// logged.
func (a *AuditService) Record(ctx context.Context, query domain.StatisticQuery) {
	if a == nil || a.stores.QueryAudits == nil {
		return
	}
	query.QueriedAt = a.now()
	if err := a.snapshot(ctx, &query); err != nil {
		a.logger.Warn("unable to snapshot totals for query audit", zap.String("query_type", string(query.Type)), zap.Error(err))
	}
	if err := a.stores.QueryAudits.Append(ctx, &query); err != nil {
		a.logger.Warn("unable to record statistic query", zap.String("query_type", string(query.Type)), zap.Error(err))
	}
}

func (a *AuditService) snapshot(ctx context.Context, query *domain.StatisticQuery) error {
	tickets := a.stores.Tickets
	var err error
	if query.TotalRecords, err = tickets.Count(ctx, repository.TicketFilter{}); err != nil {
		return err
	}
	if query.OpenCount, err = tickets.Count(ctx, repository.TicketFilter{Openness: repository.OpennessOpen}); err != nil {
		return err
	}
	empty := true
	query.EmptyFirstResponseCount, err = tickets.Count(ctx, repository.TicketFilter{
		FirstResponseEmpty: &empty,
		NotStates:          domain.InactionableStates,
	})
	return err
}

// Recent lists the newest audited queries first.
func (a *AuditService) Recent(ctx context.Context, limit int) ([]domain.StatisticQuery, error) {
	queries, err := a.stores.QueryAudits.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return queries, nil
}
