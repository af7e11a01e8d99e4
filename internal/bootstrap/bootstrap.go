// Package bootstrap assembles the store, domain service and assistant from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Roan1982/saraianew/internal/assistant"
	"github.com/Roan1982/saraianew/internal/config"
	"github.com/Roan1982/saraianew/internal/domain"
	"github.com/Roan1982/saraianew/internal/persistence/memory"
	"github.com/Roan1982/saraianew/internal/persistence/postgres"
)

// Runtime bundles the components shared by the API server and saractl.
type Runtime struct {
	Pool      *pgxpool.Pool
	Repo      domain.Repository
	Service   *domain.Service
	Assistant *assistant.Assistant
}

// Open connects the configured store and wires the domain service on top of it.
// Pool is nil for the memory store.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	rt := &Runtime{}
	switch cfg.Store {
	case config.StoreMemory:
		rt.Repo = memory.NewRepository()
		logger.Warn("using in-memory store; data is lost on exit")
	default:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		rt.Pool = pool
		rt.Repo = postgres.NewRepository(pool)
	}

	rt.Service = domain.NewService(rt.Repo, domain.Options{
		Location: cfg.Location,
		Logger:   logger.Named("domain"),
	})
	rt.Assistant = assistant.New(rt.Service, assistant.Options{
		Location: cfg.Location,
		Logger:   logger.Named("assistant"),
	})
	return rt, nil
}

// Close releases the database pool, if any.
func (rt *Runtime) Close() {
	if rt.Pool != nil {
		rt.Pool.Close()
	}
}
