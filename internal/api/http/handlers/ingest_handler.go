package handlers

import (
	"bytes"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-stats/internal/api/dto"
	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/importer"
	"github.com/spec-kit/helpdesk-stats/internal/service"
	apperrors "github.com/spec-kit/helpdesk-stats/pkg/util"
)

// IngestHandler accepts export batches and exposes their history.
type IngestHandler struct {
	service *service.IngestService
	maxRows int
}

// NewIngestHandler constructs handler.
func NewIngestHandler(ingestService *service.IngestService, maxRows int) *IngestHandler {
	return &IngestHandler{service: ingestService, maxRows: maxRows}
}

// Ingest POST /api/v1/ingest.
func (h *IngestHandler) Ingest(c *fiber.Ctx) error {
	var req dto.IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	mode, ok := domain.ParseImportMode(req.Mode)
	if !ok {
		return apperrors.NewValidationError("mode must be full or incremental", map[string]any{"mode": req.Mode})
	}
	return h.ingest(c, req.Filename, mode, req.Rows)
}

// IngestCSV POST /api/v1/ingest/csv?mode=&filename=.
func (h *IngestHandler) IngestCSV(c *fiber.Ctx) error {
	mode, ok := domain.ParseImportMode(c.Query("mode"))
	if !ok {
		return apperrors.NewValidationError("mode must be full or incremental", map[string]any{"mode": c.Query("mode")})
	}
	rows, err := importer.ReadCSV(bytes.NewReader(c.Body()), h.maxRows)
	if err != nil {
		return err
	}
	return h.ingest(c, c.Query("filename", "upload.csv"), mode, rows)
}

func (h *IngestHandler) ingest(c *fiber.Ctx, filename string, mode domain.ImportMode, rows []domain.IngestRow) error {
	result, err := h.service.Ingest(c.UserContext(), service.IngestInput{
		Filename: filename,
		Mode:     mode,
		Rows:     rows,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": result})
}

// Clear DELETE /api/v1/tickets?confirm=true.
func (h *IngestHandler) Clear(c *fiber.Ctx) error {
	if c.Query("confirm") != "true" {
		return apperrors.NewValidationError("confirm=true is required to delete every ticket", nil)
	}
	deleted, err := h.service.ClearAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ClearResponse{Deleted: deleted}})
}

// ListUploads GET /api/v1/uploads.
func (h *IngestHandler) ListUploads(c *fiber.Ctx) error {
	batches, err := h.service.ListUploads(c.UserContext(), queryInt(c, "limit", 20))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewListResponse(batches)})
}
