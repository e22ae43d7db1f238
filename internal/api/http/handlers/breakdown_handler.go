package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-stats/internal/api/dto"
	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/service"
	apperrors "github.com/spec-kit/helpdesk-stats/pkg/util"
)

// BreakdownHandler serves grouped counts and drill-down lists. Answered
// queries are written to the statistic query log.
type BreakdownHandler struct {
	service *service.BreakdownService
	audit   *service.AuditService
}

// NewBreakdownHandler constructs handler.
func NewBreakdownHandler(breakdownService *service.BreakdownService, audit *service.AuditService) *BreakdownHandler {
	return &BreakdownHandler{service: breakdownService, audit: audit}
}

// Owners GET /api/v1/breakdown/owners.
func (h *BreakdownHandler) Owners(c *fiber.Ctx) error {
	owners, err := h.service.Owners(c.UserContext())
	if err != nil {
		return err
	}
	selection, err := h.service.Selection(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.OwnersResponse{Owners: owners, Selected: selection.Owners}})
}

// OwnerBreakdown POST /api/v1/breakdown/owners.
func (h *BreakdownHandler) OwnerBreakdown(c *fiber.Ctx) error {
	var req dto.OwnerBreakdownRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	period, ok := domain.ParsePeriod(req.Period)
	if !ok {
		return apperrors.NewValidationError("period must be total, day, week or month", map[string]any{"period": req.Period})
	}
	ascending, err := parseOrder(req.Order)
	if err != nil {
		return err
	}

	selection, err := h.service.SaveSelection(c.UserContext(), userID(c), req.Owners)
	if err != nil {
		return err
	}
	report, err := h.service.OwnerBreakdown(c.UserContext(), service.OwnerBreakdownQuery{
		Owners:    selection.Owners,
		Period:    period,
		Ascending: ascending,
	})
	if err != nil {
		return err
	}
	h.audit.Record(c.UserContext(), domain.StatisticQuery{
		Type:        domain.QueryOwnerBreakdown,
		UserID:      userID(c),
		Period:      string(period),
		Owners:      report.Owners,
		RecordCount: len(report.Owners),
	})
	return c.JSON(fiber.Map{"data": report})
}

// OwnerDetails GET /api/v1/breakdown/owners/:owner/details?period=&key=.
func (h *BreakdownHandler) OwnerDetails(c *fiber.Ctx) error {
	views, err := h.service.OwnerPeriodDetails(c.UserContext(), pathParam(c, "owner"), domain.Period(c.Query("period")), c.Query("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewListResponse(views)})
}

// AgeBuckets GET /api/v1/age-buckets?owner=.
func (h *BreakdownHandler) AgeBuckets(c *fiber.Ctx) error {
	counts, err := h.service.AgeBucketCounts(c.UserContext(), service.Scope{Owners: queryOwners(c)})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"counts": counts, "total": counts.Total()}})
}

// AgeBucketDetails GET /api/v1/age-buckets/:bucket?owner=.
func (h *BreakdownHandler) AgeBucketDetails(c *fiber.Ctx) error {
	owners := queryOwners(c)
	views, err := h.service.AgeBucketDetails(c.UserContext(), c.Params("bucket"), service.Scope{Owners: owners})
	if err != nil {
		return err
	}
	h.audit.Record(c.UserContext(), domain.StatisticQuery{
		Type:        domain.QueryAgeDetails,
		UserID:      userID(c),
		Owners:      owners,
		AgeSegment:  c.Params("bucket"),
		RecordCount: len(views),
	})
	return c.JSON(fiber.Map{"data": dto.NewListResponse(views)})
}

// EmptyFirstResponse GET /api/v1/empty-first-response?owner=.
func (h *BreakdownHandler) EmptyFirstResponse(c *fiber.Ctx) error {
	owners := queryOwners(c)
	views, err := h.service.EmptyFirstResponse(c.UserContext(), service.Scope{Owners: owners})
	if err != nil {
		return err
	}
	h.audit.Record(c.UserContext(), domain.StatisticQuery{
		Type:        domain.QueryEmptyFirstResponse,
		UserID:      userID(c),
		Owners:      owners,
		RecordCount: len(views),
	})
	return c.JSON(fiber.Map{"data": dto.NewListResponse(views)})
}

// Overview GET /api/v1/overview.
func (h *BreakdownHandler) Overview(c *fiber.Ctx) error {
	overview, err := h.service.Overview(c.UserContext())
	if err != nil {
		return err
	}
	h.audit.Record(c.UserContext(), domain.StatisticQuery{
		Type:        domain.QueryOverview,
		UserID:      userID(c),
		RecordCount: overview.TotalRecords,
	})
	return c.JSON(fiber.Map{"data": overview})
}

func parseOrder(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "desc":
		return false, nil
	case "asc":
		return true, nil
	}
	return false, apperrors.NewValidationError("order must be asc or desc", map[string]any{"order": raw})
}
