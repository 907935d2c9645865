// Package main is the entry point for the stockcore background worker.
// It runs the expiry sweep and the aggregate reconciliation loop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stockcore/internal/core/types"
	"stockcore/internal/domain/catalog"
	"stockcore/internal/domain/inventory"
	"stockcore/internal/infrastructure/storage/postgres"
	"stockcore/internal/infrastructure/storage/postgres/catalog_repo"
	"stockcore/internal/infrastructure/storage/postgres/inventory_repo"
	"stockcore/pkg/logger"
	"stockcore/pkg/numerator"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting stockcore worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	productRepo := catalog_repo.NewProductRepo(txManager)
	batchRepo := inventory_repo.NewBatchRepo(txManager)
	movementRepo := inventory_repo.NewMovementRepo(txManager)
	numeratorService := numerator.New(pool.Unwrap())

	manager := inventory.NewManager(productRepo, batchRepo, movementRepo, txManager, numeratorService)
	health := inventory.NewHealth(productRepo, batchRepo, inventory.HealthConfig{
		DefaultReorderThreshold: types.NewQuantityFromInt(10),
	})
	idempotencyStore := postgres.NewIdempotencyStore(txManager, 24*time.Hour)

	w := &worker{
		log:         log.WithComponent("worker"),
		pool:        pool,
		products:    productRepo,
		manager:     manager,
		health:      health,
		idempotency: idempotencyStore,

		sweepInterval:     getEnvDuration("EXPIRY_SWEEP_INTERVAL", time.Hour),
		reconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 6*time.Hour),
		statsInterval:     getEnvDuration("POOL_STATS_INTERVAL", 5*time.Minute),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

type worker struct {
	log         *logger.Logger
	pool        *postgres.Pool
	products    catalog.Repository
	manager     *inventory.Manager
	health      *inventory.Health
	idempotency *postgres.IdempotencyStore

	sweepInterval     time.Duration
	reconcileInterval time.Duration
	statsInterval     time.Duration
}

func (w *worker) run(ctx context.Context) {
	sweep := time.NewTicker(w.sweepInterval)
	defer sweep.Stop()
	reconcile := time.NewTicker(w.reconcileInterval)
	defer reconcile.Stop()
	stats := time.NewTicker(w.statsInterval)
	defer stats.Stop()

	// One pass on startup so a restarted worker catches up immediately.
	w.sweepExpired(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			w.sweepExpired(ctx)
		case <-reconcile.C:
			w.reconcileAggregates(ctx)
			w.cleanupIdempotency(ctx)
		case <-stats.C:
			postgres.LogPoolStats(ctx, w.pool.Unwrap())
		}
	}
}

func (w *worker) sweepExpired(ctx context.Context) {
	count, err := w.manager.SweepExpired(ctx)
	if err != nil {
		w.log.Errorw("expiry sweep failed", "error", err)
		return
	}
	if count > 0 {
		w.log.Infow("expiry sweep complete", "batches_written_off", count)
	}

	low, err := w.health.LowStockProducts(ctx, 50)
	if err != nil {
		w.log.Errorw("low stock scan failed", "error", err)
		return
	}
	for _, item := range low {
		w.log.Warnw("product below reorder threshold",
			"product_id", item.Product.ID,
			"sku", item.Product.SKU,
			"available", item.Available,
			"threshold", item.Threshold,
		)
	}
}

// reconcileAggregates re-derives every batch-tracked product's cached stock.
// Drift should never happen; when it does, RecomputeAggregate fixes it and
// leaves an adjustment movement behind as evidence.
func (w *worker) reconcileAggregates(ctx context.Context) {
	products, err := w.products.ListBatchTracked(ctx)
	if err != nil {
		w.log.Errorw("failed to list batch-tracked products", "error", err)
		return
	}

	for _, p := range products {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.manager.RecomputeAggregate(ctx, p.ID); err != nil {
			w.log.Errorw("reconciliation failed",
				"product_id", p.ID,
				"sku", p.SKU,
				"error", err,
			)
		}
	}
	w.log.Infow("aggregate reconciliation complete", "products", len(products))
}

func (w *worker) cleanupIdempotency(ctx context.Context) {
	removed, err := w.idempotency.CleanupExpired(ctx)
	if err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		w.log.Infow("idempotency cleanup complete", "removed", removed)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
