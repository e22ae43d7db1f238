package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
)

// Openness restricts a filter by lifecycle.
type Openness int

const (
	OpennessAny Openness = iota
	// OpennessOpen matches tickets without a closed timestamp whose state is
	// not terminal.
	OpennessOpen
	// OpennessClosed matches tickets with a closed timestamp.
	OpennessClosed
	// OpennessUnclosed matches tickets without a closed timestamp, whatever
	// their state.
	OpennessUnclosed
)

// TicketFilter is a conjunction of ticket predicates. Zero values disable a
// predicate; time ranges are half-open [from, to).
type TicketFilter struct {
	Openness           Openness
	States             []domain.TicketState
	NotStates          []domain.TicketState
	CreatedFrom        *time.Time
	CreatedTo          *time.Time
	ClosedFrom         *time.Time
	ClosedTo           *time.Time
	Owners             []string
	AgeBucket          domain.AgeBucket
	FirstResponseEmpty *bool
	// Now is the instant ages are evaluated at.
	Now       time.Time
	Limit     int
	Ascending bool
}

// Matches evaluates the filter against a ticket in memory.
func (f TicketFilter) Matches(t domain.Ticket) bool {
	switch f.Openness {
	case OpennessOpen:
		if !t.IsOpen() {
			return false
		}
	case OpennessClosed:
		if t.ClosedAt == nil {
			return false
		}
	case OpennessUnclosed:
		if t.ClosedAt != nil {
			return false
		}
	}
	if len(f.States) > 0 && !containsState(f.States, t.State) {
		return false
	}
	if len(f.NotStates) > 0 && containsState(f.NotStates, t.State) {
		return false
	}
	if !inRange(&t.CreatedAt, f.CreatedFrom, f.CreatedTo) {
		return false
	}
	if (f.ClosedFrom != nil || f.ClosedTo != nil) && !inRange(t.ClosedAt, f.ClosedFrom, f.ClosedTo) {
		return false
	}
	if len(f.Owners) > 0 {
		if t.Owner == nil || !containsString(f.Owners, *t.Owner) {
			return false
		}
	}
	if f.AgeBucket != "" && domain.BucketForAge(t.AgeAt(f.Now)) != f.AgeBucket {
		return false
	}
	if f.FirstResponseEmpty != nil && t.FirstResponseEmpty != *f.FirstResponseEmpty {
		return false
	}
	return true
}

func inRange(t *time.Time, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	if t == nil {
		return false
	}
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && !t.Before(*to) {
		return false
	}
	return true
}

func containsState(set []domain.TicketState, s domain.TicketState) bool {
	for _, candidate := range set {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsString(set []string, s string) bool {
	for _, candidate := range set {
		if candidate == s {
			return true
		}
	}
	return false
}

// whereBuilder accumulates positional arguments and predicates.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) arg(value any) string {
	w.args = append(w.args, value)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) add(clause string) {
	w.clauses = append(w.clauses, clause)
}

func (w *whereBuilder) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// ageExpr is the SQL age in hours at the instant bound to nowParam.
func ageExpr(nowParam string) string {
	return fmt.Sprintf("(EXTRACT(EPOCH FROM (COALESCE(closed_at, %s::timestamptz) - created_at)) / 3600)", nowParam)
}

// bucketPredicate renders the SQL predicate of an age bucket. The first
// bucket has no lower bound so negative ages land there.
func bucketPredicate(age string, r domain.AgeBucketRange) string {
	var parts []string
	if r.Bucket != domain.AgeBuckets[0].Bucket {
		parts = append(parts, fmt.Sprintf("%s >= %g", age, r.Lower))
	}
	if r.Bucket != domain.AgeBuckets[len(domain.AgeBuckets)-1].Bucket {
		parts = append(parts, fmt.Sprintf("%s < %g", age, r.Upper))
	}
	return strings.Join(parts, " AND ")
}

func stateStrings(states []domain.TicketState) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

func (f TicketFilter) apply(w *whereBuilder) {
	switch f.Openness {
	case OpennessOpen:
		w.add(fmt.Sprintf("closed_at IS NULL AND state <> ALL(%s)", w.arg(stateStrings(domain.TerminalStates))))
	case OpennessClosed:
		w.add("closed_at IS NOT NULL")
	case OpennessUnclosed:
		w.add("closed_at IS NULL")
	}
	if len(f.States) > 0 {
		w.add(fmt.Sprintf("state = ANY(%s)", w.arg(stateStrings(f.States))))
	}
	if len(f.NotStates) > 0 {
		w.add(fmt.Sprintf("state <> ALL(%s)", w.arg(stateStrings(f.NotStates))))
	}
	if f.CreatedFrom != nil {
		w.add(fmt.Sprintf("created_at >= %s", w.arg(*f.CreatedFrom)))
	}
	if f.CreatedTo != nil {
		w.add(fmt.Sprintf("created_at < %s", w.arg(*f.CreatedTo)))
	}
	if f.ClosedFrom != nil {
		w.add(fmt.Sprintf("closed_at >= %s", w.arg(*f.ClosedFrom)))
	}
	if f.ClosedTo != nil {
		w.add(fmt.Sprintf("closed_at < %s", w.arg(*f.ClosedTo)))
	}
	if len(f.Owners) > 0 {
		w.add(fmt.Sprintf("owner = ANY(%s)", w.arg(f.Owners)))
	}
	if f.AgeBucket != "" {
		if r, ok := f.AgeBucket.Range(); ok {
			w.add(bucketPredicate(ageExpr(w.arg(f.Now)), r))
		}
	}
	if f.FirstResponseEmpty != nil {
		w.add(fmt.Sprintf("first_response_empty = %s", w.arg(*f.FirstResponseEmpty)))
	}
}
