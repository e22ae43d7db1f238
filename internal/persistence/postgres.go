package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-stats/internal/config"
	"github.com/spec-kit/helpdesk-stats/internal/repository"
)

// Postgres owns the ticket store pool. The zero value is a disabled store;
// callers then fall back to the in-memory repositories.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to POSTGRES_DSN and applies the embedded schema when
// POSTGRES_RUN_MIGRATIONS is set. An empty DSN returns a disabled store.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; using the in-memory store")
		return &Postgres{}, nil
	}

	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if cfg.RunMigrations {
		if err := RunMigrations(ctx, pool, Migrations, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	logger.Info("connected to ticket store",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return &Postgres{pool: pool}, nil
}

func poolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse POSTGRES_DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}
	return poolCfg, nil
}

// Stores binds every repository to the pool.
func (p *Postgres) Stores() repository.Stores {
	return repository.NewPostgresStores(p.pool)
}

// Transactor wraps each ingestion batch and ledger run in one transaction.
func (p *Postgres) Transactor() repository.Transactor {
	return repository.NewTransactor(p.pool)
}

func (p *Postgres) Close() {
	if p.Enabled() {
		p.pool.Close()
	}
}

// Ping backs /health/ready.
func (p *Postgres) Ping(ctx context.Context) error {
	if !p.Enabled() {
		return errors.New("ticket store is running in memory")
	}
	return p.pool.Ping(ctx)
}

// Enabled reports whether tickets live in Postgres.
func (p *Postgres) Enabled() bool {
	return p != nil && p.pool != nil
}
