package handlers

import (
	"bytes"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-stats/internal/api/dto"
	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/exporter"
	"github.com/spec-kit/helpdesk-stats/internal/service"
	apperrors "github.com/spec-kit/helpdesk-stats/pkg/util"
)

// ExportHandler serves file downloads and the statistic query log.
type ExportHandler struct {
	ledger    *service.LedgerService
	breakdown *service.BreakdownService
	audit     *service.AuditService
	loc       *time.Location
	now       func() time.Time
}

// ExportDependencies bundles collaborators for the export handler.
type ExportDependencies struct {
	Ledger    *service.LedgerService
	Breakdown *service.BreakdownService
	Audit     *service.AuditService
	Location  *time.Location
	Clock     func() time.Time
}

// NewExportHandler constructs handler.
func NewExportHandler(deps ExportDependencies) *ExportHandler {
	h := &ExportHandler{
		ledger:    deps.Ledger,
		breakdown: deps.Breakdown,
		audit:     deps.Audit,
		loc:       deps.Location,
		now:       deps.Clock,
	}
	if h.loc == nil {
		h.loc = time.Local
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

func (h *ExportHandler) attachment(c *fiber.Ctx, contentType, base, ext string, body []byte) error {
	c.Attachment(exporter.Filename(base, ext, h.now().In(h.loc)))
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(body)
}

// ExecutionLogs GET /api/v1/ledger/logs/export?limit=.
func (h *ExportHandler) ExecutionLogs(c *fiber.Ctx) error {
	logs, err := h.ledger.ListExecutionLogs(c.UserContext(), queryInt(c, "limit", 1000))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := exporter.WriteExecutionLogs(&buf, logs, h.loc); err != nil {
		return apperrors.NewInternalError(err)
	}
	h.audit.Record(c.UserContext(), domain.StatisticQuery{
		Type:        domain.QueryExportLogs,
		UserID:      userID(c),
		RecordCount: len(logs),
	})
	return h.attachment(c, "text/csv; charset=utf-8", "execution_logs", "csv", buf.Bytes())
}

// OwnerBreakdown GET /api/v1/breakdown/owners/export?period=&order=&owner=.
// Without owner parameters the caller's saved selection is exported.
func (h *ExportHandler) OwnerBreakdown(c *fiber.Ctx) error {
	period, ok := domain.ParsePeriod(c.Query("period"))
	if !ok {
		return apperrors.NewValidationError("period must be total, day, week or month", map[string]any{"period": c.Query("period")})
	}
	ascending, err := parseOrder(c.Query("order"))
	if err != nil {
		return err
	}
	owners := queryOwners(c)
	if len(owners) == 0 {
		selection, err := h.breakdown.Selection(c.UserContext(), userID(c))
		if err != nil {
			return err
		}
		owners = selection.Owners
	}

	report, err := h.breakdown.OwnerBreakdown(c.UserContext(), service.OwnerBreakdownQuery{
		Owners:    owners,
		Period:    period,
		Ascending: ascending,
	})
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := exporter.WriteOwnerBreakdown(&buf, report); err != nil {
		return apperrors.NewInternalError(err)
	}
	h.audit.Record(c.UserContext(), domain.StatisticQuery{
		Type:        domain.QueryExportBreakdown,
		UserID:      userID(c),
		Period:      string(period),
		Owners:      report.Owners,
		RecordCount: len(report.Owners),
	})
	return h.attachment(c, "text/csv; charset=utf-8", "owner_breakdown_"+string(period), "csv", buf.Bytes())
}

// Overview GET /api/v1/overview/export.
func (h *ExportHandler) Overview(c *fiber.Ctx) error {
	overview, err := h.breakdown.Overview(c.UserContext())
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := exporter.WriteOverviewText(&buf, overview, h.now().In(h.loc)); err != nil {
		return apperrors.NewInternalError(err)
	}
	h.audit.Record(c.UserContext(), domain.StatisticQuery{
		Type:        domain.QueryExportOverview,
		UserID:      userID(c),
		RecordCount: 1,
	})
	return h.attachment(c, "text/plain; charset=utf-8", "helpdesk_overview", "txt", buf.Bytes())
}

// Queries GET /api/v1/audit/queries?limit=.
func (h *ExportHandler) Queries(c *fiber.Ctx) error {
	queries, err := h.audit.Recent(c.UserContext(), queryInt(c, "limit", 50))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewListResponse(queries)})
}
