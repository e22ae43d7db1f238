package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
)

// Dimension names a single-column grouping of tickets.
type Dimension string

const (
	DimensionPriority   Dimension = "priority"
	DimensionState      Dimension = "state"
	DimensionCreatedDay Dimension = "created_day"
	DimensionClosedDay  Dimension = "closed_day"
)

// TicketRepository encapsulates ticket persistence and the aggregate queries
// the statistics are built from.
type TicketRepository interface {
	ExistingNumbers(ctx context.Context, numbers []string) (map[string]struct{}, error)
	Insert(ctx context.Context, tickets []domain.Ticket) (int, error)
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context, filter TicketFilter) (int, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	AgeHistogram(ctx context.Context, filter TicketFilter) (domain.AgeHistogram, error)
	CountByOwner(ctx context.Context, filter TicketFilter) (map[string]int, error)
	// CountByOwnerPeriod groups by owner and by the period key of the created
	// date in loc.
	CountByOwnerPeriod(ctx context.Context, filter TicketFilter, period domain.Period, loc *time.Location) (map[string]map[string]int, error)
	CountBy(ctx context.Context, dim Dimension, filter TicketFilter, loc *time.Location) (map[string]int, error)
	Owners(ctx context.Context) ([]string, error)
	RefreshOpenAges(ctx context.Context, now time.Time) (int64, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `ticket_number, created_at, closed_at, state, priority, owner,
               first_response, first_response_empty, age_hours, source_batch, data_source, imported_at`

const ticketColumnCount = 12

func (r *ticketRepository) ExistingNumbers(ctx context.Context, numbers []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(numbers) == 0 {
		return existing, nil
	}
	rows, err := r.db.Query(ctx, `SELECT ticket_number FROM tickets WHERE ticket_number = ANY($1)`, numbers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return nil, err
		}
		existing[number] = struct{}{}
	}
	return existing, rows.Err()
}

// insertChunk keeps a single statement well below the 65535 bind parameter limit.
const insertChunk = 500

func (r *ticketRepository) Insert(ctx context.Context, tickets []domain.Ticket) (int, error) {
	inserted := 0
	for start := 0; start < len(tickets); start += insertChunk {
		chunk := tickets[start:min(start+insertChunk, len(tickets))]
		query, args := insertTicketsQuery(chunk)
		cmd, err := r.db.Exec(ctx, query, args...)
		if err != nil {
			return inserted, fmt.Errorf("insert tickets from %s: %w", chunk[0].TicketNumber, err)
		}
		inserted += int(cmd.RowsAffected())
	}
	return inserted, nil
}

// insertTicketsQuery builds one multi-row INSERT for the chunk. Rows whose
// ticket number already exists are skipped and not counted.
func insertTicketsQuery(chunk []domain.Ticket) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO tickets (" + ticketColumns + ") VALUES ")
	args := make([]any, 0, len(chunk)*ticketColumnCount)
	for i, ticket := range chunk {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j := 1; j <= ticketColumnCount; j++ {
			if j > 1 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "$%d", len(args)+j)
		}
		sb.WriteByte(')')
		args = append(args,
			ticket.TicketNumber,
			ticket.CreatedAt,
			ticket.ClosedAt,
			string(ticket.State),
			ticket.Priority,
			ticket.Owner,
			ticket.FirstResponse,
			ticket.FirstResponseEmpty,
			ticket.AgeHours,
			ticket.SourceBatch,
			ticket.DataSource,
			ticket.ImportedAt,
		)
	}
	sb.WriteString(" ON CONFLICT (ticket_number) DO NOTHING")
	return sb.String(), args
}

func (r *ticketRepository) DeleteAll(ctx context.Context) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM tickets`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) Count(ctx context.Context, filter TicketFilter) (int, error) {
	w := &whereBuilder{}
	filter.apply(w)
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`+w.String(), w.args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	w := &whereBuilder{}
	filter.apply(w)
	order := "DESC"
	if filter.Ascending {
		order = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets%s ORDER BY created_at %s, ticket_number %s`,
		ticketColumns, w.String(), order, order)
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) AgeHistogram(ctx context.Context, filter TicketFilter) (domain.AgeHistogram, error) {
	w := &whereBuilder{}
	age := ageExpr(w.arg(filter.Now))
	filter.apply(w)

	columns := make([]string, len(domain.AgeBuckets))
	for i, bucket := range domain.AgeBuckets {
		columns[i] = fmt.Sprintf("COUNT(*) FILTER (WHERE %s)", bucketPredicate(age, bucket))
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets%s`, strings.Join(columns, ", "), w.String())

	counts := make([]int, len(domain.AgeBuckets))
	dest := make([]any, len(counts))
	for i := range counts {
		dest[i] = &counts[i]
	}
	var hist domain.AgeHistogram
	if err := r.db.QueryRow(ctx, query, w.args...).Scan(dest...); err != nil {
		return hist, err
	}
	for i, bucket := range domain.AgeBuckets {
		hist.AddBucket(bucket.Bucket, counts[i])
	}
	return hist, nil
}

func (r *ticketRepository) CountByOwner(ctx context.Context, filter TicketFilter) (map[string]int, error) {
	w := &whereBuilder{}
	filter.apply(w)
	w.add("owner IS NOT NULL AND owner <> ''")
	rows, err := r.db.Query(ctx, `SELECT owner, COUNT(*) FROM tickets`+w.String()+` GROUP BY owner`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var (
			owner string
			count int
		)
		if err := rows.Scan(&owner, &count); err != nil {
			return nil, err
		}
		result[owner] = count
	}
	return result, rows.Err()
}

// periodFormats are to_char patterns producing domain.PeriodKey strings.
var periodFormats = map[domain.Period]string{
	domain.PeriodDay:   `YYYY-MM-DD`,
	domain.PeriodWeek:  `IYYY-"W"IW`,
	domain.PeriodMonth: `YYYY-MM`,
}

func (r *ticketRepository) CountByOwnerPeriod(ctx context.Context, filter TicketFilter, period domain.Period, loc *time.Location) (map[string]map[string]int, error) {
	format, ok := periodFormats[period]
	if !ok {
		return nil, fmt.Errorf("period %q cannot be grouped", period)
	}
	w := &whereBuilder{}
	key := fmt.Sprintf("to_char(created_at AT TIME ZONE %s, '%s')", w.arg(loc.String()), format)
	filter.apply(w)
	w.add("owner IS NOT NULL AND owner <> ''")

	query := fmt.Sprintf(`SELECT owner, %s AS period_key, COUNT(*) FROM tickets%s GROUP BY owner, period_key`, key, w.String())
	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]map[string]int)
	for rows.Next() {
		var (
			owner, periodKey string
			count            int
		)
		if err := rows.Scan(&owner, &periodKey, &count); err != nil {
			return nil, err
		}
		if result[owner] == nil {
			result[owner] = make(map[string]int)
		}
		result[owner][periodKey] = count
	}
	return result, rows.Err()
}

func (r *ticketRepository) CountBy(ctx context.Context, dim Dimension, filter TicketFilter, loc *time.Location) (map[string]int, error) {
	w := &whereBuilder{}
	var expr string
	switch dim {
	case DimensionPriority:
		expr = "COALESCE(priority, '')"
	case DimensionState:
		expr = "state"
	case DimensionCreatedDay:
		expr = fmt.Sprintf("to_char(created_at AT TIME ZONE %s, 'YYYY-MM-DD')", w.arg(loc.String()))
	case DimensionClosedDay:
		expr = fmt.Sprintf("to_char(closed_at AT TIME ZONE %s, 'YYYY-MM-DD')", w.arg(loc.String()))
		w.add("closed_at IS NOT NULL")
	default:
		return nil, fmt.Errorf("unknown dimension %q", dim)
	}
	filter.apply(w)

	query := fmt.Sprintf(`SELECT %s AS bucket, COUNT(*) FROM tickets%s GROUP BY bucket`, expr, w.String())
	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var (
			bucket string
			count  int
		)
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, err
		}
		result[bucket] = count
	}
	return result, rows.Err()
}

func (r *ticketRepository) Owners(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT owner FROM tickets WHERE owner IS NOT NULL AND owner <> '' ORDER BY owner`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owners := []string{}
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

func (r *ticketRepository) RefreshOpenAges(ctx context.Context, now time.Time) (int64, error) {
	const query = `
        UPDATE tickets SET age_hours = EXTRACT(EPOCH FROM ($1::timestamptz - created_at)) / 3600
        WHERE closed_at IS NULL`
	cmd, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		var (
			ticket domain.Ticket
			state  string
		)
		if err := rows.Scan(
			&ticket.TicketNumber,
			&ticket.CreatedAt,
			&ticket.ClosedAt,
			&state,
			&ticket.Priority,
			&ticket.Owner,
			&ticket.FirstResponse,
			&ticket.FirstResponseEmpty,
			&ticket.AgeHours,
			&ticket.SourceBatch,
			&ticket.DataSource,
			&ticket.ImportedAt,
		); err != nil {
			return nil, err
		}
		ticket.State = domain.TicketState(state)
		result = append(result, ticket)
	}
	return result, rows.Err()
}
