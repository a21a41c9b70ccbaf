package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	modelledger "modelmarket/contexts/marketplace/model-ledger"
	"modelmarket/contexts/marketplace/model-ledger/adapters/payout"
	postgresadapter "modelmarket/contexts/marketplace/model-ledger/adapters/postgres"
	redisadapter "modelmarket/contexts/marketplace/model-ledger/adapters/redis"
	"modelmarket/contexts/marketplace/model-ledger/application/workers"
	"modelmarket/contexts/marketplace/model-ledger/ports"
	"modelmarket/internal/platform/cache"
	"modelmarket/internal/platform/config"
	"modelmarket/internal/platform/db"
	"modelmarket/internal/platform/httpserver"
	"modelmarket/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	redis    *redis.Client
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	outboxRelay  workers.OutboxRelay
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	if err := repo.EnsureState(context.Background(), cfg.OperatorID); err != nil {
		_ = pg.Close()
		return nil, err
	}

	var redisClient *redis.Client
	var idempotency ports.IdempotencyStore = repo
	if cfg.RedisAddr != "" {
		redisClient, err = cache.Connect(cfg.RedisAddr)
		if err != nil {
			_ = pg.Close()
			return nil, err
		}
		idempotency = redisadapter.NewIdempotencyStore(redisClient)
	}

	module := modelledger.NewModule(modelledger.Dependencies{
		Models:         repo,
		Treasury:       repo,
		Idempotency:    idempotency,
		Payout:         payout.Gateway{Logger: logger},
		Clock:          postgresadapter.SystemClock{},
		IDGenerator:    postgresadapter.UUIDGenerator{},
		OperatorID:     cfg.OperatorID,
		IdempotencyTTL: 7 * 24 * time.Hour,
		Logger:         logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		redis:    redisClient,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	bus := messaging.NewBus(logger)

	return &WorkerApp{
		postgres: pg,
		outboxRelay: workers.OutboxRelay{
			Outbox:    repo,
			Publisher: bus,
			Clock:     postgresadapter.SystemClock{},
			Topic:     cfg.EventTopic,
			BatchSize: 100,
			Logger:    logger,
		},
		pollInterval: 2 * time.Second,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return a.server.Start()
}

func (a *APIApp) Close() error {
	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.postgres.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.outboxRelay.RunOnce(ctx); err != nil {
				// Relay errors are retried on the next tick.
				w.logger.Error("outbox relay cycle failed",
					"event", "bootstrap_outbox_relay_failed",
					"module", "internal/app/bootstrap",
					"layer", "platform",
					"error", err.Error(),
				)
			}
		}
	}
}

func (w *WorkerApp) Close() error {
	return w.postgres.Close()
}

func normalizeAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
