package http

import (
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-stats/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/events"
	"github.com/spec-kit/helpdesk-stats/internal/observability"
	"github.com/spec-kit/helpdesk-stats/internal/persistence"
	"github.com/spec-kit/helpdesk-stats/internal/repository/memory"
	"github.com/spec-kit/helpdesk-stats/internal/service"
	"github.com/spec-kit/helpdesk-stats/internal/worker"
)

var testLoc = time.FixedZone("UTC+8", 8*3600)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := zap.NewNop()
	now := func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, testLoc) }
	store := memory.NewStore()
	stores := store.Stores()
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	worker.StartActivityWorker(service.NewActivityService(dispatcher, logger, metrics, nil))

	ingestService := service.NewIngestService(service.IngestDependencies{
		Stores: stores, Transactor: store, Dispatcher: dispatcher, Logger: logger,
		Location: testLoc, MaxRows: 100, Clock: now,
	})
	ledgerService := service.NewLedgerService(service.LedgerDependencies{
		Stores: stores, Transactor: store, Dispatcher: dispatcher, Logger: logger,
		Location: testLoc, Clock: now,
	})
	breakdownService := service.NewBreakdownService(service.BreakdownDependencies{
		Stores: stores, Logger: logger, Location: testLoc, Clock: now,
	})
	auditService := service.NewAuditService(service.AuditDependencies{Stores: stores, Logger: logger, Clock: now})
	scheduler := worker.NewLedgerScheduler(worker.SchedulerDependencies{
		Runner: ledgerService, Schedules: stores.Schedule, Dispatcher: dispatcher, Logger: logger,
		Location: testLoc, Clock: now,
		Default: domain.ScheduleConfig{At: domain.DefaultScheduleTime, Enabled: true},
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:    handlers.NewHealthHandler("helpdesk-stats", "test", &persistence.Postgres{}, nil, metrics),
		Ingest:    handlers.NewIngestHandler(ingestService, 100),
		Ledger:    handlers.NewLedgerHandler(ledgerService, scheduler),
		Breakdown: handlers.NewBreakdownHandler(breakdownService, auditService),
		Export: handlers.NewExportHandler(handlers.ExportDependencies{
			Ledger: ledgerService, Breakdown: breakdownService, Audit: auditService,
			Location: testLoc, Clock: now,
		}),
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string, headers ...string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

const sampleBatch = `{
  "filename": "export.xlsx",
  "mode": "incremental",
  "rows": [
    {"ticket_number": "T-1", "created_date": "2024-01-05 10:00", "state": "open", "owner": "alice"},
    {"ticket_number": "T-2", "created_date": "2024-02-02 10:00", "state": "open", "owner": "alice", "first_response": "done"},
    {"ticket_number": "T-3", "created_date": "2024-02-29 10:00", "closed_date": "2024-03-01 09:00", "state": "closed", "owner": "Li Wei"},
    {"ticket_number": "", "created_date": "2024-02-29 10:00"}
  ]
}`

func TestIngestAndQuery(t *testing.T) {
	app := newTestApp(t)

	status, env := do(t, app, "POST", "/api/v1/ingest", sampleBatch)
	require.Equal(t, fiber.StatusCreated, status)
	var result service.IngestResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 3, result.NewRecordsCount)
	assert.Equal(t, 3, result.TotalRecords)
	require.Len(t, result.Invalid, 1)
	assert.Equal(t, "ticket_number", result.Invalid[0].Field)

	status, env = do(t, app, "POST", "/api/v1/ingest", sampleBatch)
	require.Equal(t, fiber.StatusCreated, status)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Zero(t, result.NewRecordsCount)
	assert.Equal(t, 3, result.DuplicatesSkipped)

	status, env = do(t, app, "GET", "/api/v1/age-buckets?owner=alice", "")
	require.Equal(t, fiber.StatusOK, status)
	var buckets struct {
		Counts domain.AgeHistogram `json:"counts"`
		Total  int                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &buckets))
	assert.Equal(t, 2, buckets.Total)
	assert.Equal(t, 2, buckets.Counts.Over96h)

	status, env = do(t, app, "GET", "/api/v1/empty-first-response", "")
	require.Equal(t, fiber.StatusOK, status)
	var list struct {
		Count int                 `json:"count"`
		Items []domain.TicketView `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "T-1", list.Items[0].TicketNumber)

	status, env = do(t, app, "GET", "/api/v1/overview", "")
	require.Equal(t, fiber.StatusOK, status)
	var overview domain.Overview
	require.NoError(t, json.Unmarshal(env.Data, &overview))
	assert.Equal(t, 3, overview.TotalRecords)
	assert.Equal(t, 2, overview.OpenCount)

	status, env = do(t, app, "GET", "/api/v1/uploads", "")
	require.Equal(t, fiber.StatusOK, status)
	var uploads struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &uploads))
	assert.Equal(t, 2, uploads.Count)
}

func TestIngestCSV(t *testing.T) {
	app := newTestApp(t)
	body := "Ticket Number,Created,State,Responsible\nC-1,2024-02-01 08:00,open,bob\nC-2,2024-02-02 08:00,pending reminder,bob\n"

	req := httptest.NewRequest("POST", "/api/v1/ingest/csv?mode=full&filename=export.csv", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, "text/csv")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	var result service.IngestResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, domain.ImportModeFull, result.Mode)
	assert.Equal(t, 2, result.NewRecordsCount)
}

func TestValidationErrorsUseEnvelope(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name, method, target, body string
		status                     int
		code                       string
	}{
		{"bad mode", "POST", "/api/v1/ingest", `{"mode":"append","rows":[]}`, fiber.StatusBadRequest, "VALIDATION_FAILED"},
		{"bad json", "POST", "/api/v1/ingest", `{`, fiber.StatusBadRequest, "VALIDATION_FAILED"},
		{"bad date", "POST", "/api/v1/ledger/run?date=01-03-2024", "", fiber.StatusBadRequest, "VALIDATION_FAILED"},
		{"inverted range", "GET", "/api/v1/ledger?from=2024-03-02&to=2024-03-01", "", fiber.StatusBadRequest, "VALIDATION_FAILED"},
		{"bad bucket", "GET", "/api/v1/age-buckets/5d", "", fiber.StatusBadRequest, "VALIDATION_FAILED"},
		{"bad period", "POST", "/api/v1/breakdown/owners", `{"period":"year"}`, fiber.StatusBadRequest, "VALIDATION_FAILED"},
		{"bad schedule", "PUT", "/api/v1/ledger/schedule", `{"schedule_time":"25:00"}`, fiber.StatusBadRequest, "VALIDATION_FAILED"},
		{"clear unconfirmed", "DELETE", "/api/v1/tickets", "", fiber.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown route", "GET", "/api/v1/nothing", "", fiber.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, app, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestLedgerEndpoints(t *testing.T) {
	app := newTestApp(t)
	status, _ := do(t, app, "POST", "/api/v1/ingest", sampleBatch)
	require.Equal(t, fiber.StatusCreated, status)

	status, env := do(t, app, "POST", "/api/v1/ledger/run?date=2024-02-29", "")
	require.Equal(t, fiber.StatusOK, status)
	var entry struct {
		Date    string `json:"date"`
		Opening int    `json:"opening_balance"`
		New     int    `json:"new_tickets"`
		Closing int    `json:"closing_balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.Equal(t, "2024-02-29", entry.Date)
	assert.Equal(t, 1, entry.New)

	status, _ = do(t, app, "POST", "/api/v1/ledger/run", "")
	require.Equal(t, fiber.StatusOK, status)

	status, env = do(t, app, "GET", "/api/v1/ledger?from=2024-02-01&to=2024-03-31", "")
	require.Equal(t, fiber.StatusOK, status)
	var entries struct {
		Count int `json:"count"`
		Items []struct {
			Date    string `json:"date"`
			Opening int    `json:"opening_balance"`
			Closing int    `json:"closing_balance"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Equal(t, 2, entries.Count)
	assert.Equal(t, "2024-02-29", entries.Items[0].Date)
	assert.Equal(t, "2024-03-01", entries.Items[1].Date)
	assert.Equal(t, entries.Items[0].Closing, entries.Items[1].Opening)

	status, env = do(t, app, "GET", "/api/v1/ledger/logs?limit=10", "")
	require.Equal(t, fiber.StatusOK, status)
	var logs struct {
		Count int `json:"count"`
		Items []struct {
			Status        string `json:"status"`
			ExecutionTime string `json:"execution_time"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &logs))
	require.Equal(t, 2, logs.Count)
	assert.Equal(t, "success", logs.Items[0].Status)
	assert.Equal(t, "2024-03-01 12:00:00", logs.Items[0].ExecutionTime)
}

func TestScheduleEndpoints(t *testing.T) {
	app := newTestApp(t)

	status, env := do(t, app, "GET", "/api/v1/ledger/schedule", "")
	require.Equal(t, fiber.StatusOK, status)
	var current worker.SchedulerStatus
	require.NoError(t, json.Unmarshal(env.Data, &current))
	assert.Equal(t, "23:59", current.Schedule.At.String())
	assert.Equal(t, "UTC+8", current.Timezone)

	status, env = do(t, app, "PUT", "/api/v1/ledger/schedule", `{"schedule_time":"06:30","enabled":false}`)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &current))
	assert.Equal(t, "06:30", current.Schedule.At.String())
	assert.False(t, current.Schedule.Enabled)
}

func TestBreakdownSavesSelection(t *testing.T) {
	app := newTestApp(t)
	status, _ := do(t, app, "POST", "/api/v1/ingest", sampleBatch)
	require.Equal(t, fiber.StatusCreated, status)

	status, env := do(t, app, "POST", "/api/v1/breakdown/owners", `{"owners":["alice"],"period":"month"}`, handlers.UserIDHeader, "u-1")
	require.Equal(t, fiber.StatusOK, status)
	var report service.OwnerBreakdown
	require.NoError(t, json.Unmarshal(env.Data, &report))
	require.Len(t, report.Groups, 2)
	assert.Equal(t, "2024-02", report.Groups[0].Key)
	assert.Equal(t, "2024-01", report.Groups[1].Key)
	assert.Equal(t, 2, report.Totals["alice"])

	status, env = do(t, app, "GET", "/api/v1/breakdown/owners", "", handlers.UserIDHeader, "u-1")
	require.Equal(t, fiber.StatusOK, status)
	var owners struct {
		Owners   []string `json:"owners"`
		Selected []string `json:"selected_owners"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &owners))
	assert.Equal(t, []string{"Li Wei", "alice"}, owners.Owners)
	assert.Equal(t, []string{"alice"}, owners.Selected)

	status, env = do(t, app, "GET", "/api/v1/breakdown/owners", "", handlers.UserIDHeader, "u-2")
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &owners))
	assert.Empty(t, owners.Selected)

	status, env = do(t, app, "GET", "/api/v1/breakdown/owners/Li%20Wei/details?period=day&key=2024-02-29", "")
	require.Equal(t, fiber.StatusOK, status)
	var details struct {
		Count int                 `json:"count"`
		Items []domain.TicketView `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &details))
	require.Equal(t, 1, details.Count)
	assert.Equal(t, "T-3", details.Items[0].TicketNumber)
}

func TestClearAndHealth(t *testing.T) {
	app := newTestApp(t)
	status, _ := do(t, app, "POST", "/api/v1/ingest", sampleBatch)
	require.Equal(t, fiber.StatusCreated, status)

	status, env := do(t, app, "DELETE", "/api/v1/tickets?confirm=true", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"deleted":3}`, string(env.Data))

	req := httptest.NewRequest("GET", "/health/ready", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("GET", "/metrics", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var snapshot observability.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snapshot))
	assert.Equal(t, int64(3), snapshot.Ingest.RowsInserted)
	assert.Equal(t, int64(1), snapshot.Ingest.Clears)
}

func download(t *testing.T, app *fiber.App, target string, headers ...string) (*nethttp.Response, string) {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func TestExportsAndQueryAudit(t *testing.T) {
	app := newTestApp(t)
	status, _ := do(t, app, "POST", "/api/v1/ingest", sampleBatch)
	require.Equal(t, fiber.StatusCreated, status)
	status, _ = do(t, app, "POST", "/api/v1/ledger/run?date=2024-02-29", "")
	require.Equal(t, fiber.StatusOK, status)

	resp, body := download(t, app, "/api/v1/ledger/logs/export")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, `attachment; filename="execution_logs_20240301_120000.csv"`, resp.Header.Get(fiber.HeaderContentDisposition))
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "2024-03-01 12:00:00,2024-02-29,"), lines[1])

	status, _ = do(t, app, "POST", "/api/v1/breakdown/owners", `{"owners":["alice"],"period":"month"}`, handlers.UserIDHeader, "u-1")
	require.Equal(t, fiber.StatusOK, status)

	resp, body = download(t, app, "/api/v1/breakdown/owners/export?period=month", handlers.UserIDHeader, "u-1")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "owner_breakdown_month_")
	assert.Contains(t, body, "alice,2,2,0,0,0,0,2\n")
	assert.Contains(t, body, "\nPeriod,alice,Total\n2024-02,1,1\n2024-01,1,1\n")

	resp, body = download(t, app, "/api/v1/breakdown/owners/export?period=total&owner=Li%20Wei")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Li Wei,1,0,0,0,0,0,0\n")
	assert.NotContains(t, body, "Period")

	resp, body = download(t, app, "/api/v1/overview/export")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, body, "Total Records: 3\n")

	resp, _ = download(t, app, "/api/v1/breakdown/owners/export?period=year")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	status, env := do(t, app, "GET", "/api/v1/audit/queries?limit=10", "")
	require.Equal(t, fiber.StatusOK, status)
	var audits struct {
		Count int                     `json:"count"`
		Items []domain.StatisticQuery `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &audits))
	types := make([]domain.QueryType, 0, audits.Count)
	for _, q := range audits.Items {
		types = append(types, q.Type)
	}
	assert.Equal(t, []domain.QueryType{
		domain.QueryExportOverview,
		domain.QueryExportBreakdown,
		domain.QueryExportBreakdown,
		domain.QueryOwnerBreakdown,
		domain.QueryExportLogs,
	}, types)
	assert.Equal(t, "u-1", audits.Items[2].UserID)
	assert.Equal(t, []string{"alice"}, audits.Items[2].Owners)
	assert.Equal(t, 3, audits.Items[0].TotalRecords)
}
