package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-stats/internal/cache"
	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-stats/pkg/util"
)

// Scope narrows a query to a set of owners. An empty scope covers everyone.
type Scope struct {
	Owners []string
}

func (sc Scope) apply(filter repository.TicketFilter) repository.TicketFilter {
	filter.Owners = sc.Owners
	return filter
}

// OwnerBreakdownQuery selects owners and the grouping granularity.
type OwnerBreakdownQuery struct {
	Owners    []string
	Period    domain.Period
	Ascending bool
}

// PeriodGroup is one bucket of a day/week/month distribution.
type PeriodGroup struct {
	Key    string         `json:"key"`
	Start  time.Time      `json:"start"`
	End    time.Time      `json:"end"`
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// OwnerBreakdown is the per-owner workload report.
type OwnerBreakdown struct {
	Period          domain.Period                  `json:"period"`
	Owners          []string                       `json:"owners"`
	Totals          map[string]int                 `json:"totals"`
	Open            map[string]int                 `json:"open"`
	AgeDistribution map[string]domain.AgeHistogram `json:"age_distribution"`
	Groups          []PeriodGroup                  `json:"groups"`
}

// BreakdownService answers grouped counts and drill-down lists.
type BreakdownService struct {
	stores repository.Stores
	cache  *cache.StatsCache
	logger *zap.Logger
	loc    *time.Location
	now    func() time.Time
}

// BreakdownDependencies bundles collaborators for the breakdown service.
type BreakdownDependencies struct {
	Stores   repository.Stores
	Cache    *cache.StatsCache
	Logger   *zap.Logger
	Location *time.Location
	Clock    func() time.Time
}

// NewBreakdownService constructs the service.
func NewBreakdownService(deps BreakdownDependencies) *BreakdownService {
	svc := &BreakdownService{
		stores: deps.Stores,
		cache:  deps.Cache,
		logger: deps.Logger,
		loc:    deps.Location,
		now:    deps.Clock,
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

// AgeBucketCounts counts open tickets per age bucket.
func (s *BreakdownService) AgeBucketCounts(ctx context.Context, scope Scope) (domain.AgeHistogram, error) {
	hist, err := s.stores.Tickets.AgeHistogram(ctx, scope.apply(repository.TicketFilter{
		Openness: repository.OpennessOpen,
		Now:      s.now(),
	}))
	if err != nil {
		return hist, apperrors.NewStoreUnavailable(err)
	}
	return hist, nil
}

// AgeBucketDetails lists the open tickets of one bucket, newest first.
func (s *BreakdownService) AgeBucketDetails(ctx context.Context, bucket string, scope Scope) ([]domain.TicketView, error) {
	parsed, ok := domain.ParseAgeBucket(bucket)
	if !ok {
		return nil, apperrors.NewValidationError("unknown age bucket", map[string]any{"bucket": bucket})
	}
	now := s.now()
	return s.views(ctx, scope.apply(repository.TicketFilter{
		Openness:  repository.OpennessOpen,
		AgeBucket: parsed,
		Now:       now,
	}), now)
}

// EmptyFirstResponse lists actionable tickets that have not been answered.
func (s *BreakdownService) EmptyFirstResponse(ctx context.Context, scope Scope) ([]domain.TicketView, error) {
	empty := true
	return s.views(ctx, scope.apply(repository.TicketFilter{
		FirstResponseEmpty: &empty,
		NotStates:          domain.InactionableStates,
	}), s.now())
}

// OwnerBreakdown reports the workload of the selected owners. With an empty
// selection every known owner is reported. For day, week and month the
// complete history is grouped by period key.
func (s *BreakdownService) OwnerBreakdown(ctx context.Context, query OwnerBreakdownQuery) (*OwnerBreakdown, error) {
	period, ok := domain.ParsePeriod(string(query.Period))
	if !ok {
		return nil, apperrors.NewValidationError("unknown period", map[string]any{"period": query.Period})
	}
	owners := normalizeOwners(query.Owners)
	if len(owners) == 0 {
		all, err := s.Owners(ctx)
		if err != nil {
			return nil, err
		}
		owners = all
	}

	order := "desc"
	if query.Ascending {
		order = "asc"
	}
	name := "breakdown:" + string(period) + ":" + order + ":" + strings.Join(owners, "\x1f")
	report, err := cache.Remember(ctx, s.cache, name, func(ctx context.Context) (*OwnerBreakdown, error) {
		return s.ownerBreakdown(ctx, owners, period, query.Ascending)
	})
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	// Ages move with the clock, so they are never served from the cache.
	if err := s.fillOpenAges(ctx, report); err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return report, nil
}

func (s *BreakdownService) fillOpenAges(ctx context.Context, report *OwnerBreakdown) error {
	report.Open = make(map[string]int, len(report.Owners))
	report.AgeDistribution = make(map[string]domain.AgeHistogram, len(report.Owners))
	now := s.now()
	for _, owner := range report.Owners {
		hist, err := s.stores.Tickets.AgeHistogram(ctx, repository.TicketFilter{
			Openness: repository.OpennessOpen,
			Owners:   []string{owner},
			Now:      now,
		})
		if err != nil {
			return err
		}
		report.AgeDistribution[owner] = hist
		report.Open[owner] = hist.Total()
	}
	return nil
}

func (s *BreakdownService) ownerBreakdown(ctx context.Context, owners []string, period domain.Period, ascending bool) (*OwnerBreakdown, error) {
	report := &OwnerBreakdown{
		Period: period,
		Owners: owners,
		Totals: make(map[string]int, len(owners)),
		Groups: []PeriodGroup{},
	}
	if len(owners) == 0 {
		return report, nil
	}

	totals, err := s.stores.Tickets.CountByOwner(ctx, repository.TicketFilter{Owners: owners})
	if err != nil {
		return nil, err
	}
	for _, owner := range owners {
		report.Totals[owner] = totals[owner]
	}

	if period == domain.PeriodTotal {
		return report, nil
	}

	grouped, err := s.stores.Tickets.CountByOwnerPeriod(ctx, repository.TicketFilter{Owners: owners}, period, s.loc)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]*PeriodGroup)
	for owner, counts := range grouped {
		for key, count := range counts {
			group, ok := byKey[key]
			if !ok {
				group = &PeriodGroup{Key: key, Counts: make(map[string]int, len(owners))}
				if parsed, err := domain.ParsePeriodKey(period, key); err == nil {
					group.Start, group.End = parsed.Bounds(s.loc)
				}
				byKey[key] = group
			}
			group.Counts[owner] += count
			group.Total += count
		}
	}
	for _, group := range byKey {
		for _, owner := range owners {
			if _, ok := group.Counts[owner]; !ok {
				group.Counts[owner] = 0
			}
		}
		report.Groups = append(report.Groups, *group)
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		if ascending {
			return report.Groups[i].Key < report.Groups[j].Key
		}
		return report.Groups[i].Key > report.Groups[j].Key
	})
	return report, nil
}

// OwnerPeriodDetails lists one owner's tickets created inside a period
// bucket. The total period lists every ticket of the owner.
func (s *BreakdownService) OwnerPeriodDetails(ctx context.Context, owner string, period domain.Period, key string) ([]domain.TicketView, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, apperrors.NewValidationError("owner is required", nil)
	}
	parsedPeriod, ok := domain.ParsePeriod(string(period))
	if !ok {
		return nil, apperrors.NewValidationError("unknown period", map[string]any{"period": period})
	}

	filter := repository.TicketFilter{Owners: []string{owner}}
	if parsedPeriod != domain.PeriodTotal {
		parsedKey, err := domain.ParsePeriodKey(parsedPeriod, key)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error(), map[string]any{"period": parsedPeriod, "key": key})
		}
		start, end := parsedKey.Bounds(s.loc)
		filter.CreatedFrom = &start
		filter.CreatedTo = &end
	}
	return s.views(ctx, filter, s.now())
}

// Owners lists every distinct owner.
func (s *BreakdownService) Owners(ctx context.Context) ([]string, error) {
	owners, err := cache.Remember(ctx, s.cache, "owners", s.stores.Tickets.Owners)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return owners, nil
}

// Overview summarises the whole store.
func (s *BreakdownService) Overview(ctx context.Context) (*domain.Overview, error) {
	overview, err := cache.Remember(ctx, s.cache, "overview", s.overview)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return overview, nil
}

func (s *BreakdownService) overview(ctx context.Context) (*domain.Overview, error) {
	tickets := s.stores.Tickets
	overview := &domain.Overview{}
	var err error

	if overview.TotalRecords, err = tickets.Count(ctx, repository.TicketFilter{}); err != nil {
		return nil, err
	}
	if overview.OpenCount, err = tickets.Count(ctx, repository.TicketFilter{Openness: repository.OpennessOpen}); err != nil {
		return nil, err
	}
	empty := true
	if overview.EmptyFirstResponseCount, err = tickets.Count(ctx, repository.TicketFilter{
		FirstResponseEmpty: &empty,
		NotStates:          domain.InactionableStates,
	}); err != nil {
		return nil, err
	}
	if overview.PriorityDistribution, err = tickets.CountBy(ctx, repository.DimensionPriority, repository.TicketFilter{}, s.loc); err != nil {
		return nil, err
	}
	if overview.StateDistribution, err = tickets.CountBy(ctx, repository.DimensionState, repository.TicketFilter{}, s.loc); err != nil {
		return nil, err
	}
	if overview.DailyNew, err = tickets.CountBy(ctx, repository.DimensionCreatedDay, repository.TicketFilter{}, s.loc); err != nil {
		return nil, err
	}
	if overview.DailyClosed, err = tickets.CountBy(ctx, repository.DimensionClosedDay, repository.TicketFilter{}, s.loc); err != nil {
		return nil, err
	}
	overview.DailyOpen = domain.CumulativeOpen(overview.DailyNew, overview.DailyClosed)
	return overview, nil
}

// SaveSelection stores the owners a user picked, in order and without
// repeats.
func (s *BreakdownService) SaveSelection(ctx context.Context, userID string, owners []string) (*domain.ResponsibleSelection, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewValidationError("user id is required", nil)
	}
	selection := &domain.ResponsibleSelection{UserID: userID, Owners: normalizeOwners(owners)}
	if err := s.stores.Selections.Upsert(ctx, selection); err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return selection, nil
}

// Selection returns the saved selection; users without one get an empty list.
func (s *BreakdownService) Selection(ctx context.Context, userID string) (*domain.ResponsibleSelection, error) {
	selection, err := s.stores.Selections.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &domain.ResponsibleSelection{UserID: userID, Owners: []string{}}, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return selection, nil
}

func (s *BreakdownService) views(ctx context.Context, filter repository.TicketFilter, now time.Time) ([]domain.TicketView, error) {
	tickets, err := s.stores.Tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	views := make([]domain.TicketView, len(tickets))
	for i, ticket := range tickets {
		views[i] = ticket.View(now)
	}
	return views, nil
}

func normalizeOwners(owners []string) []string {
	seen := make(map[string]struct{}, len(owners))
	result := make([]string, 0, len(owners))
	for _, owner := range owners {
		owner = strings.TrimSpace(owner)
		if owner == "" {
			continue
		}
		if _, dup := seen[owner]; dup {
			continue
		}
		seen[owner] = struct{}{}
		result = append(result, owner)
	}
	return result
}
