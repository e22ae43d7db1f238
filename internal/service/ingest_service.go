package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/events"
	"github.com/spec-kit/helpdesk-stats/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-stats/pkg/util"
)

// IngestService merges parsed export rows into the ticket store.
type IngestService struct {
	stores     repository.Stores
	tx         repository.Transactor
	dispatcher events.Dispatcher
	logger     *zap.Logger
	loc        *time.Location
	maxRows    int
	now        func() time.Time
}

// IngestDependencies bundles collaborators for the ingest service.
type IngestDependencies struct {
	Stores     repository.Stores
	Transactor repository.Transactor
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// Location interprets timestamps that carry no offset.
	Location *time.Location
	// MaxRows caps a batch; zero disables the cap.
	MaxRows int
	Clock   func() time.Time
}

// IngestInput is one batch of rows.
type IngestInput struct {
	Filename string
	Mode     domain.ImportMode
	Rows     []domain.IngestRow
}

// IngestResult reports the outcome of a batch.
type IngestResult struct {
	BatchID              string            `json:"batch_id"`
	Mode                 domain.ImportMode `json:"import_mode"`
	NewRecordsCount      int               `json:"new_records_count"`
	TotalRecords         int               `json:"total_records"`
	DuplicatesSkipped    int               `json:"duplicates_skipped"`
	IntraBatchDuplicates int               `json:"intra_batch_duplicates"`
	Invalid              []domain.RowError `json:"invalid_rows"`
}

// NewIngestService constructs the service.
func NewIngestService(deps IngestDependencies) *IngestService {
	svc := &IngestService{
		stores:     deps.Stores,
		tx:         deps.Transactor,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		loc:        deps.Location,
		maxRows:    deps.MaxRows,
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

// Ingest validates the rows, drops duplicates and inserts the new tickets in
// a single transaction. Rejected rows are reported in the result. Within one
// batch the last occurrence of a ticket number wins.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	mode, ok := domain.ParseImportMode(string(input.Mode))
	if !ok {
		return nil, apperrors.NewValidationError("invalid import mode", map[string]any{"mode": input.Mode})
	}
	if s.maxRows > 0 && len(input.Rows) > s.maxRows {
		return nil, apperrors.NewValidationError("batch too large", map[string]any{"rows": len(input.Rows), "max_rows": s.maxRows})
	}

	now := s.now()
	batchID := uuid.NewString()
	tickets, invalid, intraDuplicates := s.prepare(input, batchID, now)
	if mode == domain.ImportModeFull && len(tickets) == 0 {
		return nil, apperrors.NewValidationError("full import requires at least one valid row", map[string]any{
			"invalid_rows": len(invalid),
		})
	}

	result := &IngestResult{
		BatchID:              batchID,
		Mode:                 mode,
		IntraBatchDuplicates: intraDuplicates,
		Invalid:              invalid,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		if mode == domain.ImportModeFull {
			if _, err := stores.Tickets.DeleteAll(ctx); err != nil {
				return fmt.Errorf("clear tickets: %w", err)
			}
		}

		numbers := make([]string, len(tickets))
		for i, ticket := range tickets {
			numbers[i] = ticket.TicketNumber
		}
		existing, err := stores.Tickets.ExistingNumbers(ctx, numbers)
		if err != nil {
			return fmt.Errorf("lookup existing tickets: %w", err)
		}
		fresh := make([]domain.Ticket, 0, len(tickets))
		for _, ticket := range tickets {
			if _, ok := existing[ticket.TicketNumber]; !ok {
				fresh = append(fresh, ticket)
			}
		}

		inserted, err := stores.Tickets.Insert(ctx, fresh)
		if err != nil {
			return err
		}
		total, err := stores.Tickets.Count(ctx, repository.TicketFilter{})
		if err != nil {
			return fmt.Errorf("count tickets: %w", err)
		}

		result.NewRecordsCount = inserted
		result.DuplicatesSkipped = len(tickets) - inserted
		result.TotalRecords = total

		return stores.Uploads.Create(ctx, &domain.UploadBatch{
			ID:           batchID,
			Filename:     input.Filename,
			UploadedAt:   now,
			TotalRecords: total,
			NewRecords:   inserted,
			Skipped:      result.DuplicatesSkipped,
			Invalid:      len(invalid),
			Mode:         mode,
		})
	})
	if err != nil {
		s.logger.Error("ingest batch rolled back",
			zap.String("batch_id", batchID),
			zap.String("filename", input.Filename),
			zap.Error(err))
		return nil, apperrors.NewStoreUnavailable(err)
	}

	s.logger.Info("ingest batch committed",
		zap.String("batch_id", batchID),
		zap.String("filename", input.Filename),
		zap.String("mode", string(mode)),
		zap.Int("new_records", result.NewRecordsCount),
		zap.Int("duplicates_skipped", result.DuplicatesSkipped),
		zap.Int("intra_batch_duplicates", intraDuplicates),
		zap.Int("invalid_rows", len(invalid)),
		zap.Int("total_records", result.TotalRecords))

	s.publish(ctx, events.NewEvent(events.EventTicketsIngested, now, events.TicketsIngestedPayload{
		BatchID:              batchID,
		Filename:             input.Filename,
		Mode:                 mode,
		Inserted:             result.NewRecordsCount,
		DuplicatesSkipped:    result.DuplicatesSkipped,
		IntraBatchDuplicates: intraDuplicates,
		Invalid:              len(invalid),
		TotalRecords:         result.TotalRecords,
	}))
	return result, nil
}

// prepare validates rows and collapses repeated ticket numbers. A repeated
// number keeps the slot of its first occurrence and the values of its last.
func (s *IngestService) prepare(input IngestInput, batchID string, now time.Time) ([]domain.Ticket, []domain.RowError, int) {
	invalid := []domain.RowError{}
	tickets := make([]domain.Ticket, 0, len(input.Rows))
	position := make(map[string]int, len(input.Rows))
	duplicates := 0

	for i, row := range input.Rows {
		ticket, rowErr := domain.TicketFromRow(i, row, s.loc, now)
		if rowErr != nil {
			invalid = append(invalid, *rowErr)
			continue
		}
		ticket.SourceBatch = batchID
		ticket.DataSource = input.Filename
		ticket.ImportedAt = now

		if idx, seen := position[ticket.TicketNumber]; seen {
			tickets[idx] = ticket
			duplicates++
			continue
		}
		position[ticket.TicketNumber] = len(tickets)
		tickets = append(tickets, ticket)
	}
	return tickets, invalid, duplicates
}

// ClearAll deletes every ticket. Ledger history and upload records stay.
func (s *IngestService) ClearAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		var err error
		deleted, err = stores.Tickets.DeleteAll(ctx)
		return err
	})
	if err != nil {
		return 0, apperrors.NewStoreUnavailable(err)
	}
	s.logger.Warn("ticket store cleared", zap.Int64("deleted", deleted))
	s.publish(ctx, events.NewEvent(events.EventTicketsCleared, s.now(), events.TicketsClearedPayload{Deleted: deleted}))
	return deleted, nil
}

// ListUploads returns the most recent batches first.
func (s *IngestService) ListUploads(ctx context.Context, limit int) ([]domain.UploadBatch, error) {
	batches, err := s.stores.Uploads.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return batches, nil
}

func (s *IngestService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
