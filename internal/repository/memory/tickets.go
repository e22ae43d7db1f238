package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/repository"
)

type ticketRepository struct {
	v view
}

func (r *ticketRepository) ExistingNumbers(_ context.Context, numbers []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	err := r.v.read(func(d *dataset) error {
		for _, number := range numbers {
			if _, ok := d.tickets[number]; ok {
				existing[number] = struct{}{}
			}
		}
		return nil
	})
	return existing, err
}

func (r *ticketRepository) Insert(_ context.Context, tickets []domain.Ticket) (int, error) {
	inserted := 0
	err := r.v.write(func(d *dataset) error {
		for _, ticket := range tickets {
			if _, ok := d.tickets[ticket.TicketNumber]; ok {
				continue
			}
			d.tickets[ticket.TicketNumber] = ticket
			inserted++
		}
		return nil
	})
	return inserted, err
}

func (r *ticketRepository) DeleteAll(_ context.Context) (int64, error) {
	var deleted int64
	err := r.v.write(func(d *dataset) error {
		deleted = int64(len(d.tickets))
		d.tickets = make(map[string]domain.Ticket)
		return nil
	})
	return deleted, err
}

func (r *ticketRepository) matching(filter repository.TicketFilter) []domain.Ticket {
	var result []domain.Ticket
	_ = r.v.read(func(d *dataset) error {
		for _, ticket := range d.tickets {
			if filter.Matches(ticket) {
				result = append(result, ticket)
			}
		}
		return nil
	})
	return result
}

func (r *ticketRepository) Count(_ context.Context, filter repository.TicketFilter) (int, error) {
	return len(r.matching(filter)), nil
}

func (r *ticketRepository) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	result := r.matching(filter)
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if filter.Ascending {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if filter.Ascending {
			return a.TicketNumber < b.TicketNumber
		}
		return a.TicketNumber > b.TicketNumber
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	if result == nil {
		result = []domain.Ticket{}
	}
	return result, nil
}

func (r *ticketRepository) AgeHistogram(_ context.Context, filter repository.TicketFilter) (domain.AgeHistogram, error) {
	var hist domain.AgeHistogram
	for _, ticket := range r.matching(filter) {
		hist.Add(ticket.AgeAt(filter.Now))
	}
	return hist, nil
}

func (r *ticketRepository) CountByOwner(_ context.Context, filter repository.TicketFilter) (map[string]int, error) {
	result := make(map[string]int)
	for _, ticket := range r.matching(filter) {
		if owner := ticket.OwnerName(); owner != "" {
			result[owner]++
		}
	}
	return result, nil
}

func (r *ticketRepository) CountByOwnerPeriod(_ context.Context, filter repository.TicketFilter, period domain.Period, loc *time.Location) (map[string]map[string]int, error) {
	if period == domain.PeriodTotal {
		return nil, fmt.Errorf("period %q cannot be grouped", period)
	}
	result := make(map[string]map[string]int)
	for _, ticket := range r.matching(filter) {
		owner := ticket.OwnerName()
		if owner == "" {
			continue
		}
		if result[owner] == nil {
			result[owner] = make(map[string]int)
		}
		result[owner][domain.PeriodKeyOf(ticket.CreatedAt, period, loc).String()]++
	}
	return result, nil
}

func (r *ticketRepository) CountBy(_ context.Context, dim repository.Dimension, filter repository.TicketFilter, loc *time.Location) (map[string]int, error) {
	result := make(map[string]int)
	for _, ticket := range r.matching(filter) {
		switch dim {
		case repository.DimensionPriority:
			result[ticket.Priority]++
		case repository.DimensionState:
			result[string(ticket.State)]++
		case repository.DimensionCreatedDay:
			result[domain.FormatDay(domain.CalendarDay(ticket.CreatedAt, loc))]++
		case repository.DimensionClosedDay:
			if ticket.ClosedAt != nil {
				result[domain.FormatDay(domain.CalendarDay(*ticket.ClosedAt, loc))]++
			}
		default:
			return nil, fmt.Errorf("unknown dimension %q", dim)
		}
	}
	return result, nil
}

func (r *ticketRepository) Owners(_ context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	_ = r.v.read(func(d *dataset) error {
		for _, ticket := range d.tickets {
			if owner := ticket.OwnerName(); owner != "" {
				seen[owner] = struct{}{}
			}
		}
		return nil
	})
	owners := make([]string, 0, len(seen))
	for owner := range seen {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners, nil
}

func (r *ticketRepository) RefreshOpenAges(_ context.Context, now time.Time) (int64, error) {
	var updated int64
	err := r.v.write(func(d *dataset) error {
		for number, ticket := range d.tickets {
			if ticket.ClosedAt != nil {
				continue
			}
			ticket.AgeHours = ticket.AgeAt(now)
			d.tickets[number] = ticket
			updated++
		}
		return nil
	})
	return updated, err
}
