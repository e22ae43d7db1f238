package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-stats/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Ingest    *handlers.IngestHandler
	Ledger    *handlers.LedgerHandler
	Breakdown *handlers.BreakdownHandler
	Export    *handlers.ExportHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api/v1")

	api.Post("/ingest", cfg.Ingest.Ingest)
	api.Post("/ingest/csv", cfg.Ingest.IngestCSV)
	api.Delete("/tickets", cfg.Ingest.Clear)
	api.Get("/uploads", cfg.Ingest.ListUploads)

	ledger := api.Group("/ledger")
	ledger.Get("", cfg.Ledger.List)
	ledger.Post("/run", cfg.Ledger.Run)
	ledger.Get("/logs", cfg.Ledger.Logs)
	ledger.Get("/logs/export", cfg.Export.ExecutionLogs)
	ledger.Get("/schedule", cfg.Ledger.Schedule)
	ledger.Put("/schedule", cfg.Ledger.UpdateSchedule)

	breakdown := api.Group("/breakdown")
	breakdown.Get("/owners", cfg.Breakdown.Owners)
	breakdown.Post("/owners", cfg.Breakdown.OwnerBreakdown)
	breakdown.Get("/owners/export", cfg.Export.OwnerBreakdown)
	breakdown.Get("/owners/:owner/details", cfg.Breakdown.OwnerDetails)

	api.Get("/age-buckets", cfg.Breakdown.AgeBuckets)
	api.Get("/age-buckets/:bucket", cfg.Breakdown.AgeBucketDetails)
	api.Get("/empty-first-response", cfg.Breakdown.EmptyFirstResponse)
	api.Get("/overview", cfg.Breakdown.Overview)
	api.Get("/overview/export", cfg.Export.Overview)
	api.Get("/audit/queries", cfg.Export.Queries)
}
