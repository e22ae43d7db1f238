package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-stats/pkg/util"
)

func strPtr(s string) *string { return &s }

func TestOwnerBreakdownMonthScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustIngest(t, domain.ImportModeIncremental,
		ownedRow("A1", "2024-01-05 10:00", "alice"),
		ownedRow("A2", "2024-01-20 10:00", "alice"),
		ownedRow("A3", "2024-02-02 10:00", "alice"),
		ownedRow("B1", "2024-02-02 10:00", "bob"),
	)

	monthly, err := f.breakdown.OwnerBreakdown(ctx, OwnerBreakdownQuery{Owners: []string{"alice"}, Period: domain.PeriodMonth})
	require.NoError(t, err)
	total, err := f.breakdown.OwnerBreakdown(ctx, OwnerBreakdownQuery{Owners: []string{"alice"}, Period: domain.PeriodTotal})
	require.NoError(t, err)

	require.Len(t, monthly.Groups, 2)
	assert.Equal(t, "2024-02", monthly.Groups[0].Key)
	assert.Equal(t, "2024-01", monthly.Groups[1].Key)
	n1, n2 := monthly.Groups[1].Counts["alice"], monthly.Groups[0].Counts["alice"]
	assert.Equal(t, 2, n1)
	assert.Equal(t, 1, n2)
	assert.Equal(t, total.Totals["alice"], n1+n2)
	assert.Empty(t, total.Groups)

	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, testLoc), monthly.Groups[0].Start)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, testLoc), monthly.Groups[0].End)
}

func TestOwnerBreakdownGroupsFullHistoryByDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustIngest(t, domain.ImportModeIncremental,
		ownedRow("A1", "2023-11-05 10:00", "alice"),
		ownedRow("A2", "2024-02-29 10:00", "alice"),
		ownedRow("B1", "2024-02-29 11:00", "bob"),
	)

	desc, err := f.breakdown.OwnerBreakdown(ctx, OwnerBreakdownQuery{Period: domain.PeriodDay})
	require.NoError(t, err)
	keys := func(groups []PeriodGroup) []string {
		out := make([]string, len(groups))
		for i, g := range groups {
			out[i] = g.Key
		}
		return out
	}
	assert.Equal(t, []string{"alice", "bob"}, desc.Owners)
	assert.Equal(t, []string{"2024-02-29", "2023-11-05"}, keys(desc.Groups))
	assert.Equal(t, map[string]int{"alice": 1, "bob": 1}, desc.Groups[0].Counts)
	assert.Equal(t, map[string]int{"alice": 1, "bob": 0}, desc.Groups[1].Counts)
	assert.Equal(t, 2, desc.Groups[0].Total)

	asc, err := f.breakdown.OwnerBreakdown(ctx, OwnerBreakdownQuery{Period: domain.PeriodDay, Ascending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-11-05", "2024-02-29"}, keys(asc.Groups))
}

func TestOwnerBreakdownOpenCountsAndAges(t *testing.T) {
	f := newFixture(t)
	f.mustIngest(t, domain.ImportModeIncremental,
		ownedRow("A1", "2024-03-01 10:00", "alice"),
		ownedRow("A2", "2024-02-25 10:00", "alice"),
		domain.IngestRow{TicketNumber: "A3", Created: "2024-02-25 10:00", Closed: "2024-02-26 10:00", State: "closed", Owner: "alice"},
	)

	report, err := f.breakdown.OwnerBreakdown(context.Background(), OwnerBreakdownQuery{Owners: []string{"alice"}, Period: domain.PeriodWeek})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Totals["alice"])
	assert.Equal(t, 2, report.Open["alice"])
	assert.Equal(t, domain.AgeHistogram{Under24h: 1, Over96h: 1}, report.AgeDistribution["alice"])
}

func TestUnknownOwnerYieldsEmptyResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustIngest(t, domain.ImportModeIncremental, ownedRow("A1", "2024-01-05 10:00", "alice"))

	report, err := f.breakdown.OwnerBreakdown(ctx, OwnerBreakdownQuery{Owners: []string{"nobody"}, Period: domain.PeriodMonth})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Totals["nobody"])
	assert.Empty(t, report.Groups)

	details, err := f.breakdown.OwnerPeriodDetails(ctx, "nobody", domain.PeriodMonth, "2024-01")
	require.NoError(t, err)
	assert.Empty(t, details)

	counts, err := f.breakdown.AgeBucketCounts(ctx, Scope{Owners: []string{"nobody"}})
	require.NoError(t, err)
	assert.Zero(t, counts.Total())
}

func TestOwnerPeriodDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustIngest(t, domain.ImportModeIncremental,
		ownedRow("W1", "2024-01-15 10:00", "alice"),
		ownedRow("W2", "2024-01-21 23:00", "alice"),
		ownedRow("W3", "2024-01-22 00:30", "alice"),
	)

	details, err := f.breakdown.OwnerPeriodDetails(ctx, "alice", domain.PeriodWeek, "2024-W03")
	require.NoError(t, err)
	got := make([]string, len(details))
	for i, v := range details {
		got[i] = v.TicketNumber
	}
	if diff := cmp.Diff([]string{"W2", "W1"}, got); diff != "" {
		t.Fatalf("week details mismatch (-want +got):\n%s", diff)
	}

	_, err = f.breakdown.OwnerPeriodDetails(ctx, "alice", domain.PeriodWeek, "2024-01")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	_, err = f.breakdown.OwnerPeriodDetails(ctx, "alice", "quarter", "2024-Q1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestAgeBucketsAreExhaustive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustIngest(t, domain.ImportModeIncremental,
		ownedRow("h1", "2024-03-01 11:00", "alice"),
		ownedRow("h24", "2024-02-29 12:00", "alice"),
		ownedRow("h48", "2024-02-28 12:00", "bob"),
		ownedRow("h72", "2024-02-27 12:00", "bob"),
		ownedRow("h96", "2024-02-26 12:00", "bob"),
		ownedRow("h95", "2024-02-26 13:00", "bob"),
		row("resolved", "2024-02-26 12:00", "", "resolved"),
	)

	for _, scope := range []Scope{{}, {Owners: []string{"alice"}}, {Owners: []string{"bob"}}} {
		counts, err := f.breakdown.AgeBucketCounts(ctx, scope)
		require.NoError(t, err)
		open, err := f.stores.Tickets.Count(ctx, scope.apply(repository.TicketFilter{Openness: repository.OpennessOpen}))
		require.NoError(t, err)
		assert.Equal(t, open, counts.Total(), "scope %v", scope.Owners)
	}

	counts, err := f.breakdown.AgeBucketCounts(ctx, Scope{})
	require.NoError(t, err)
	assert.Equal(t, domain.AgeHistogram{Under24h: 1, H24to48: 1, H48to72: 1, H72to96: 2, Over96h: 1}, counts)

	details, err := f.breakdown.AgeBucketDetails(ctx, "72_96h", Scope{})
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, "h72", details[0].TicketNumber)
	assert.Equal(t, "3d 0h 0m", details[0].Age)
	assert.Equal(t, "h95", details[1].TicketNumber)
	assert.Equal(t, "3d 23h 0m", details[1].Age)

	_, err = f.breakdown.AgeBucketDetails(ctx, "over_9000", Scope{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestEmptyFirstResponseView(t *testing.T) {
	f := newFixture(t)
	withResponse := func(number, state string, response *string) domain.IngestRow {
		r := row(number, "2024-02-20 10:00", "", state)
		r.FirstResponse = response
		return r
	}
	f.mustIngest(t, domain.ImportModeIncremental,
		withResponse("nil", "open", nil),
		withResponse("blank", "open", strPtr("")),
		withResponse("resp-nan", "pending", strPtr("nan")),
		withResponse("resp-NaN", "cancelled", strPtr("NaN")),
		withResponse("answered", "open", strPtr("2024-02-20 11:00")),
		withResponse("closed", "closed", nil),
		withResponse("resolved", "resolved", strPtr("nan")),
	)

	views, err := f.breakdown.EmptyFirstResponse(context.Background(), Scope{})
	require.NoError(t, err)
	got := map[string]bool{}
	for _, v := range views {
		got[v.TicketNumber] = true
	}
	assert.Equal(t, map[string]bool{"nil": true, "blank": true, "resp-nan": true, "resp-NaN": true}, got)

	overview, err := f.breakdown.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, overview.EmptyFirstResponseCount)
}

func TestOverview(t *testing.T) {
	f := newFixture(t)
	f.mustIngest(t, domain.ImportModeIncremental,
		domain.IngestRow{TicketNumber: "A", Created: "2024-02-01 10:00", State: "open", Priority: "3 normal"},
		domain.IngestRow{TicketNumber: "B", Created: "2024-02-01 11:00", Closed: "2024-02-02 09:00", State: "closed", Priority: "3 normal"},
		domain.IngestRow{TicketNumber: "C", Created: "2024-02-02 10:00", State: "pending", Priority: "1 high"},
	)

	overview, err := f.breakdown.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, overview.TotalRecords)
	assert.Equal(t, 2, overview.OpenCount)
	assert.Equal(t, map[string]int{"3 normal": 2, "1 high": 1}, overview.PriorityDistribution)
	assert.Equal(t, map[string]int{"Open": 1, "Closed": 1, "Pending": 1}, overview.StateDistribution)
	assert.Equal(t, map[string]int{"2024-02-01": 2, "2024-02-02": 1}, overview.DailyNew)
	assert.Equal(t, map[string]int{"2024-02-02": 1}, overview.DailyClosed)
	assert.Equal(t, map[string]int{"2024-02-01": 2, "2024-02-02": 2}, overview.DailyOpen)
}

func TestSelectionRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.breakdown.Selection(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Empty(t, empty.Owners)

	saved, err := f.breakdown.SaveSelection(ctx, "10.0.0.1", []string{" bob ", "alice", "bob", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "alice"}, saved.Owners)

	loaded, err := f.breakdown.Selection(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "alice"}, loaded.Owners)

	_, err = f.breakdown.SaveSelection(ctx, " ", nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}
