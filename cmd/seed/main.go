// Package main provides a CLI tool for seeding the database with demo data.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"stockcore/internal/core/id"
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
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalw("failed to migrate schema", "error", err)
	}

	txManager := postgres.NewTxManager(pool)
	productRepo := catalog_repo.NewProductRepo(txManager)
	batchRepo := inventory_repo.NewBatchRepo(txManager)
	movementRepo := inventory_repo.NewMovementRepo(txManager)
	manager := inventory.NewManager(productRepo, batchRepo, movementRepo, txManager, numerator.New(pool.Unwrap()))

	products := demoProducts()
	for _, p := range products {
		inserted, err := insertProduct(ctx, pool, p)
		if err != nil {
			log.Fatalw("failed to seed product", "sku", p.SKU, "error", err)
		}
		if !inserted {
			log.Infow("product already exists, skipping", "sku", p.SKU)
			continue
		}
		log.Infow("seeded product", "sku", p.SKU, "mode", p.TrackingMode)

		// Batch-tracked products get receipts with staggered expiries so
		// the allocation order is visible in demos. The last one never
		// expires.
		if p.TrackingMode != catalog.TrackingBatch {
			continue
		}
		now := time.Now().UTC()
		for i, days := range []int{5, 30, 0} {
			input := inventory.AddBatchInput{
				ProductID: p.ID,
				Quantity:  types.NewQuantityFromInt(int64(50 * (i + 1))),
				Supplier:  "Demo Supplier",
				UnitCost:  types.MustMoney("4.20"),
			}
			if days > 0 {
				expiry := now.AddDate(0, 0, days)
				input.Expiry = &expiry
			}
			receipt, err := manager.AddBatch(ctx, input)
			if err != nil {
				log.Fatalw("failed to seed batch", "sku", p.SKU, "error", err)
			}
			log.Infow("seeded batch", "sku", p.SKU, "label", receipt.Label)
		}
	}

	log.Info("seeding complete")
}

func demoProducts() []catalog.Product {
	threshold := types.NewQuantityFromInt(20)
	now := time.Now().UTC()
	return []catalog.Product{
		{
			ID:           id.New(),
			SKU:          "MILK-1L",
			Name:         "Whole Milk 1L",
			TrackingMode: catalog.TrackingBatch,
			SalePrice:    types.MustMoney("1.89"),
			UnitFactor:   1,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
			Version:      1,
		},
		{
			ID:               id.New(),
			SKU:              "YOGURT-4PK",
			Name:             "Yogurt 4-Pack",
			TrackingMode:     catalog.TrackingBatch,
			ReorderThreshold: &threshold,
			SalePrice:        types.MustMoney("3.49"),
			UnitFactor:       4,
			Active:           true,
			CreatedAt:        now,
			UpdatedAt:        now,
			Version:          1,
		},
		{
			ID:           id.New(),
			SKU:          "BAG-PAPER",
			Name:         "Paper Bag",
			TrackingMode: catalog.TrackingAggregate,
			StockQty:     types.NewQuantityFromInt(500),
			SalePrice:    types.MustMoney("0.15"),
			UnitFactor:   1,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
			Version:      1,
		},
		{
			ID:               id.New(),
			SKU:              "GIFT-CARD-25",
			Name:             "Gift Card 25",
			TrackingMode:     catalog.TrackingAggregate,
			StockQty:         types.NewQuantityFromInt(40),
			ReorderThreshold: &threshold,
			SalePrice:        types.MustMoney("25.00"),
			UnitFactor:       1,
			Active:           true,
			CreatedAt:        now,
			UpdatedAt:        now,
			Version:          1,
		},
	}
}

// insertProduct writes directly: product lifecycle belongs to the catalog
// collaborator, so the repository has no create method.
func insertProduct(ctx context.Context, pool *postgres.Pool, p catalog.Product) (bool, error) {
	const sql = `
		INSERT INTO products (
			id, sku, name, tracking_mode, stock_qty, reorder_threshold,
			sale_price, unit_factor, active, created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (sku) DO NOTHING`

	tag, err := pool.Exec(ctx, sql,
		p.ID, p.SKU, p.Name, p.TrackingMode, p.StockQty, p.ReorderThreshold,
		p.SalePrice, p.UnitFactor, p.Active, p.CreatedAt, p.UpdatedAt, p.Version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
