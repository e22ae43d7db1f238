package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-stats/internal/api/http"
	"github.com/spec-kit/helpdesk-stats/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-stats/internal/cache"
	"github.com/spec-kit/helpdesk-stats/internal/config"
	"github.com/spec-kit/helpdesk-stats/internal/domain"
	"github.com/spec-kit/helpdesk-stats/internal/events"
	"github.com/spec-kit/helpdesk-stats/internal/observability"
	"github.com/spec-kit/helpdesk-stats/internal/persistence"
	"github.com/spec-kit/helpdesk-stats/internal/repository"
	"github.com/spec-kit/helpdesk-stats/internal/repository/memory"
	"github.com/spec-kit/helpdesk-stats/internal/service"
	"github.com/spec-kit/helpdesk-stats/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var (
		stores     repository.Stores
		transactor repository.Transactor
	)
	if pg.Enabled() {
		stores = pg.Stores()
		transactor = pg.Transactor()
	} else {
		store := memory.NewStore()
		stores = store.Stores()
		transactor = store
	}

	var (
		redis      *persistence.Redis
		statsCache *cache.StatsCache
	)
	if cfg.Cache.Enabled {
		redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		statsCache = cache.NewStatsCache(redis.Client, cfg.Cache.TTL(), logger)
	}

	loc := cfg.Scheduler.Location
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartActivityWorker(service.NewActivityService(dispatcher, logger, metrics, statsCache))

	ingestService := service.NewIngestService(service.IngestDependencies{
		Stores:     stores,
		Transactor: transactor,
		Dispatcher: dispatcher,
		Logger:     logger.Named("ingest"),
		Location:   loc,
		MaxRows:    cfg.Ingest.MaxRows,
	})
	ledgerService := service.NewLedgerService(service.LedgerDependencies{
		Stores:     stores,
		Transactor: transactor,
		Dispatcher: dispatcher,
		Logger:     logger.Named("ledger"),
		Location:   loc,
	})
	breakdownService := service.NewBreakdownService(service.BreakdownDependencies{
		Stores:   stores,
		Cache:    statsCache,
		Logger:   logger.Named("breakdown"),
		Location: loc,
	})
	auditService := service.NewAuditService(service.AuditDependencies{
		Stores: stores,
		Logger: logger.Named("audit"),
	})

	scheduler := worker.NewLedgerScheduler(worker.SchedulerDependencies{
		Runner:     ledgerService,
		Schedules:  stores.Schedule,
		Dispatcher: dispatcher,
		Logger:     logger.Named("scheduler"),
		Location:   loc,
		Default:    domain.ScheduleConfig{At: cfg.Scheduler.Time, Enabled: cfg.Scheduler.Enabled},
	})
	scheduler.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.App.BodyLimitBytes,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Ingest:    handlers.NewIngestHandler(ingestService, cfg.Ingest.MaxRows),
		Ledger:    handlers.NewLedgerHandler(ledgerService, scheduler),
		Breakdown: handlers.NewBreakdownHandler(breakdownService, auditService),
		Export: handlers.NewExportHandler(handlers.ExportDependencies{
			Ledger:    ledgerService,
			Breakdown: breakdownService,
			Audit:     auditService,
			Location:  loc,
		}),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	logger.Info("service started",
		zap.String("addr", cfg.App.Addr()),
		zap.String("timezone", cfg.Scheduler.Timezone),
		zap.Bool("postgres", pg.Enabled()),
		zap.Bool("cache", statsCache != nil),
	)

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
