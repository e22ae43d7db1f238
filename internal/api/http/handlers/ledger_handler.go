package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-stats/internal/api/dto"
	"github.com/spec-kit/helpdesk-stats/internal/service"
	"github.com/spec-kit/helpdesk-stats/internal/worker"
	apperrors "github.com/spec-kit/helpdesk-stats/pkg/util"
)

// LedgerHandler exposes the daily ledger, its run history and the schedule.
type LedgerHandler struct {
	ledger    *service.LedgerService
	scheduler *worker.LedgerScheduler
}

// NewLedgerHandler constructs handler.
func NewLedgerHandler(ledger *service.LedgerService, scheduler *worker.LedgerScheduler) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, scheduler: scheduler}
}

// Run POST /api/v1/ledger/run[?date=YYYY-MM-DD].
func (h *LedgerHandler) Run(c *fiber.Ctx) error {
	day, err := queryDay(c, "date")
	if err != nil {
		return err
	}
	entry, err := h.scheduler.Trigger(c.UserContext(), day)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLedgerEntryResponse(*entry)})
}

// List GET /api/v1/ledger?from=&to=.
func (h *LedgerHandler) List(c *fiber.Ctx) error {
	from, err := queryDay(c, "from")
	if err != nil {
		return err
	}
	to, err := queryDay(c, "to")
	if err != nil {
		return err
	}
	entries, err := h.ledger.ListLedger(c.UserContext(), from, to)
	if err != nil {
		return err
	}
	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewLedgerEntryResponse(entry))
	}
	return c.JSON(fiber.Map{"data": dto.NewListResponse(items)})
}

// Logs GET /api/v1/ledger/logs.
func (h *LedgerHandler) Logs(c *fiber.Ctx) error {
	logs, err := h.ledger.ListExecutionLogs(c.UserContext(), queryInt(c, "limit", 50))
	if err != nil {
		return err
	}
	items := make([]dto.ExecutionLogResponse, 0, len(logs))
	for _, entry := range logs {
		items = append(items, dto.NewExecutionLogResponse(entry))
	}
	return c.JSON(fiber.Map{"data": dto.NewListResponse(items)})
}

// Schedule GET /api/v1/ledger/schedule.
func (h *LedgerHandler) Schedule(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.scheduler.Status()})
}

// UpdateSchedule PUT /api/v1/ledger/schedule.
func (h *LedgerHandler) UpdateSchedule(c *fiber.Ctx) error {
	var req dto.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ScheduleTime == "" {
		req.ScheduleTime = h.scheduler.Status().Schedule.At.String()
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	if _, err := h.scheduler.UpdateSchedule(c.UserContext(), req.ScheduleTime, enabled); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.scheduler.Status()})
}
