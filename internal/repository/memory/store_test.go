package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/repository"
)

func ticket(number string, created time.Time, state domain.TicketState) domain.Ticket {
	return domain.Ticket{TicketNumber: number, CreatedAt: created, State: state}
}

func TestWithinTxDiscardsFailedWork(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.Stores().Tickets.Insert(ctx, []domain.Ticket{ticket("A", created, domain.TicketStateOpen)})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		if _, err := stores.Tickets.DeleteAll(ctx); err != nil {
			return err
		}
		if _, err := stores.Tickets.Insert(ctx, []domain.Ticket{ticket("B", created, domain.TicketStateOpen)}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	existing, err := store.Stores().Tickets.ExistingNumbers(ctx, []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"A": {}}, existing)
}

func TestWithinTxPublishesOnSuccess(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := store.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		inserted, err := stores.Tickets.Insert(ctx, []domain.Ticket{
			ticket("A", created, domain.TicketStateOpen),
			ticket("A", created, domain.TicketStateClosed),
		})
		assert.Equal(t, 1, inserted)
		return err
	})
	require.NoError(t, err)

	count, err := store.Stores().Tickets.Count(ctx, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestListOrdersByCreatedDescending(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := store.Stores().Tickets.Insert(ctx, []domain.Ticket{
		ticket("old", base, domain.TicketStateOpen),
		ticket("new", base.Add(48*time.Hour), domain.TicketStateOpen),
		ticket("mid", base.Add(24*time.Hour), domain.TicketStateOpen),
	})
	require.NoError(t, err)

	list, err := store.Stores().Tickets.List(ctx, repository.TicketFilter{})
	require.NoError(t, err)
	numbers := make([]string, len(list))
	for i, tk := range list {
		numbers[i] = tk.TicketNumber
	}
	assert.Equal(t, []string{"new", "mid", "old"}, numbers)

	limited, err := store.Stores().Tickets.List(ctx, repository.TicketFilter{Ascending: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "old", limited[0].TicketNumber)
}

func TestCountByOwnerPeriodUsesCreatedDate(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	alice := "alice"
	first := ticket("A", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), domain.TicketStateOpen)
	first.Owner = &alice
	second := ticket("B", time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC), domain.TicketStateClosed)
	second.Owner = &alice
	orphan := ticket("C", time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC), domain.TicketStateOpen)
	_, err := store.Stores().Tickets.Insert(ctx, []domain.Ticket{first, second, orphan})
	require.NoError(t, err)

	grouped, err := store.Stores().Tickets.CountByOwnerPeriod(ctx, repository.TicketFilter{}, domain.PeriodWeek, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]int{"alice": {"2024-W01": 1, "2024-W02": 1}}, grouped)

	_, err = store.Stores().Tickets.CountByOwnerPeriod(ctx, repository.TicketFilter{}, domain.PeriodTotal, time.UTC)
	assert.Error(t, err)
}

func TestExecutionLogIsAppendOnlyNewestFirst(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	logs := store.Stores().ExecutionLogs
	for i := 0; i < 3; i++ {
		require.NoError(t, logs.Append(ctx, &domain.ExecutionLogEntry{Status: domain.RunStatusSuccess, New: i}))
	}

	recent, err := logs.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(3), recent[0].ID)
	assert.Equal(t, 2, recent[0].New)
	assert.Equal(t, int64(2), recent[1].ID)
}

func TestScheduleAndSelectionNotFound(t *testing.T) {
	t.Parallel()

	stores := NewStore().Stores()
	ctx := context.Background()

	_, err := stores.Schedule.Get(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = stores.Selections.Get(ctx, "u1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, stores.Selections.Upsert(ctx, &domain.ResponsibleSelection{UserID: "u1", Owners: []string{"b", "a"}}))
	selection, err := stores.Selections.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, selection.Owners)
}

func TestQueryAuditNewestFirstWithLimit(t *testing.T) {
	t.Parallel()

	audits := NewStore().Stores().QueryAudits
	ctx := context.Background()
	for _, qt := range []domain.QueryType{domain.QueryOverview, domain.QueryAgeDetails, domain.QueryOwnerBreakdown} {
		require.NoError(t, audits.Append(ctx, &domain.StatisticQuery{Type: qt, Owners: []string{"alice"}}))
	}

	recent, err := audits.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, domain.QueryOwnerBreakdown, recent[0].Type)
	assert.Equal(t, int64(3), recent[0].ID)
	assert.Equal(t, domain.QueryAgeDetails, recent[1].Type)
}
