// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockcore/internal/domain/catalog"
	"stockcore/internal/domain/inventory"
	"stockcore/internal/domain/sales"
	"stockcore/internal/infrastructure/http/v1/handlers"
	"stockcore/internal/infrastructure/http/v1/middleware"
	"stockcore/internal/infrastructure/storage/postgres"
	"stockcore/pkg/identity"
	"stockcore/pkg/logger"
)

// RouterConfig holds everything the router wires together.
type RouterConfig struct {
	Logger *logger.Logger

	Pool *postgres.Pool

	// TokenParser extracts actor identity from bearer tokens. Optional;
	// without it every mutation is attributed to "system".
	TokenParser *identity.Parser

	// IdempotencyStore enables replay protection on mutating endpoints.
	// Optional.
	IdempotencyStore *postgres.IdempotencyStore

	SalesService *sales.Service
	Catalog      *catalog.Service
	Manager      *inventory.Manager
	Ledger       *inventory.Ledger
	Health       *inventory.Health
	Movements    inventory.MovementRepository

	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Order matters: recovery outermost, then tracing so the logger and
	// error handler see trace ids.
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Pool.Unwrap(), cfg.Version)
	router.GET("/healthz", healthHandler.Live)
	router.GET("/readyz", healthHandler.Ready)

	api := router.Group("/api/v1")
	if cfg.TokenParser != nil {
		api.Use(middleware.Actor(cfg.TokenParser))
	}
	if cfg.IdempotencyStore != nil {
		api.Use(middleware.Idempotency(cfg.IdempotencyStore))
	}

	base := handlers.NewBaseHandler()
	salesHandler := handlers.NewSalesHandler(base, cfg.SalesService)
	inventoryHandler := handlers.NewInventoryHandler(base, cfg.Manager, cfg.Ledger, cfg.Health)
	movementsHandler := handlers.NewMovementsHandler(base, cfg.Movements)
	productsHandler := handlers.NewProductsHandler(base, cfg.Catalog, cfg.Health)

	salesGroup := api.Group("/sales")
	{
		salesGroup.POST("", salesHandler.Create)
		salesGroup.GET("", salesHandler.List)
		salesGroup.GET("/summary", salesHandler.Summary)
		salesGroup.GET("/:id", salesHandler.Get)
		salesGroup.POST("/:id/undo", salesHandler.Undo)
	}

	batches := api.Group("/batches")
	{
		batches.POST("", inventoryHandler.AddBatch)
		batches.GET("/expiring", inventoryHandler.Expiring)
		batches.POST("/:id/adjust", inventoryHandler.AdjustBatch)
		batches.POST("/:id/quarantine", inventoryHandler.Quarantine)
		batches.POST("/:id/release", inventoryHandler.Release)
	}

	products := api.Group("/products")
	{
		products.GET("", productsHandler.List)
		products.GET("/:id", productsHandler.Get)
		products.GET("/:id/availability", productsHandler.Availability)
		products.GET("/:id/batches", inventoryHandler.ListBatches)
		products.POST("/:id/recompute", inventoryHandler.Recompute)
	}

	stock := api.Group("/stock")
	{
		stock.POST("/adjust", inventoryHandler.AdjustStock)
		stock.GET("/low", inventoryHandler.LowStock)
	}

	api.GET("/movements", movementsHandler.List)

	return router
}
