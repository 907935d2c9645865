// Package main is the entry point for the stockcore API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stockcore/internal/core/types"
	"stockcore/internal/domain/catalog"
	"stockcore/internal/domain/inventory"
	"stockcore/internal/domain/sales"
	v1 "stockcore/internal/infrastructure/http/v1"
	"stockcore/internal/infrastructure/storage/postgres"
	"stockcore/internal/infrastructure/storage/postgres/catalog_repo"
	"stockcore/internal/infrastructure/storage/postgres/inventory_repo"
	"stockcore/internal/infrastructure/storage/postgres/sales_repo"
	"stockcore/pkg/identity"
	"stockcore/pkg/logger"
	"stockcore/pkg/numerator"
)

const version = "1.0.0"

func main() {
	// Missing .env is fine in containers; variables come from the runtime.
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting stockcore server")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	if getEnv("AUTO_MIGRATE", "true") == "true" {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatalw("failed to migrate schema", "error", err)
		}
	}

	txManager := postgres.NewTxManager(pool)

	productRepo := catalog_repo.NewProductRepo(txManager)
	batchRepo := inventory_repo.NewBatchRepo(txManager)
	movementRepo := inventory_repo.NewMovementRepo(txManager)
	saleRepo := sales_repo.NewSaleRepo(txManager)

	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	numeratorService := numerator.New(pool.Unwrap())

	catalogService := catalog.NewService(productRepo)

	manager := inventory.NewManager(productRepo, batchRepo, movementRepo, txManager, numeratorService)
	ledger := inventory.NewLedger(productRepo, movementRepo, txManager)
	health := inventory.NewHealth(productRepo, batchRepo, inventory.HealthConfig{
		DefaultReorderThreshold: parseQuantityEnv("DEFAULT_REORDER_THRESHOLD", 10),
		ExpiryWindow:            getEnvDuration("EXPIRY_WINDOW", 7*24*time.Hour),
	})

	salesService := sales.NewService(
		saleRepo, productRepo, batchRepo,
		manager, ledger, txManager, numeratorService, auditService,
	)

	var tokenParser *identity.Parser
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		tokenParser = identity.NewParser(identity.Config{
			Secret: secret,
			Issuer: getEnv("JWT_ISSUER", ""),
		})
	} else {
		log.Warn("JWT_SECRET not set, all mutations will be attributed to system")
	}

	var idempotencyStore *postgres.IdempotencyStore
	if getEnv("IDEMPOTENCY_ENABLED", "true") == "true" {
		idempotencyStore = postgres.NewIdempotencyStore(txManager,
			getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour))
	}

	router := v1.NewRouter(v1.RouterConfig{
		Logger:           log,
		Pool:             pool,
		TokenParser:      tokenParser,
		IdempotencyStore: idempotencyStore,
		SalesService:     salesService,
		Catalog:          catalogService,
		Manager:          manager,
		Ledger:           ledger,
		Health:           health,
		Movements:        movementRepo,
		Version:          version,
	})

	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
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

func parseQuantityEnv(key string, defaultUnits int64) types.Quantity {
	if value := os.Getenv(key); value != "" {
		var units int64
		if _, err := fmt.Sscanf(value, "%d", &units); err == nil {
			return types.NewQuantityFromInt(units)
		}
	}
	return types.NewQuantityFromInt(defaultUnits)
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
