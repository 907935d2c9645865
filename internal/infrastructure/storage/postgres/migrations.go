package postgres

import (
	"context"
	"fmt"

	"stockcore/pkg/logger"
)

// Migrate creates the schema. Statements are idempotent so the runner can
// execute on every startup.
//
// Quantities are BIGINT scaled by 1e4 (see types.Quantity); money columns
// are NUMERIC and never interpreted by the database.
func Migrate(ctx context.Context, pool *Pool) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id UUID PRIMARY KEY,
			sku TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			tracking_mode TEXT NOT NULL DEFAULT 'aggregate',
			stock_qty BIGINT NOT NULL DEFAULT 0 CHECK (stock_qty >= 0),
			reorder_threshold BIGINT,
			sale_price NUMERIC(19,4) NOT NULL DEFAULT 0,
			unit_factor BIGINT NOT NULL DEFAULT 1,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			version INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS stock_batches (
			id UUID PRIMARY KEY,
			product_id UUID NOT NULL,
			label TEXT NOT NULL,
			qty_remaining BIGINT NOT NULL CHECK (qty_remaining >= 0),
			qty_original BIGINT NOT NULL CHECK (qty_original >= 0),
			expiry_date TIMESTAMPTZ,
			unit_cost NUMERIC(19,4) NOT NULL DEFAULT 0,
			supplier TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			received_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CHECK (qty_remaining <= qty_original)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_allocation
			ON stock_batches (product_id, expiry_date ASC NULLS LAST, received_at ASC)
			WHERE status = 'active'`,
		`CREATE INDEX IF NOT EXISTS idx_batches_expiry
			ON stock_batches (expiry_date)
			WHERE status = 'active'`,
		`CREATE TABLE IF NOT EXISTS stock_movements (
			id UUID PRIMARY KEY,
			product_id UUID NOT NULL,
			batch_id UUID,
			movement_type TEXT NOT NULL,
			qty_delta BIGINT NOT NULL,
			qty_before BIGINT NOT NULL,
			qty_after BIGINT NOT NULL,
			reference_type TEXT NOT NULL,
			reference_id UUID NOT NULL,
			actor_id TEXT NOT NULL DEFAULT 'system',
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_movements_product
			ON stock_movements (product_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_movements_reference
			ON stock_movements (reference_type, reference_id)`,
		`CREATE TABLE IF NOT EXISTS sale_transactions (
			id UUID PRIMARY KEY,
			number TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			subtotal NUMERIC(19,4) NOT NULL DEFAULT 0,
			discount NUMERIC(19,4) NOT NULL DEFAULT 0,
			total NUMERIC(19,4) NOT NULL DEFAULT 0,
			payment_method TEXT NOT NULL DEFAULT '',
			customer_name TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			is_edited BOOLEAN NOT NULL DEFAULT FALSE,
			edit_reason TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL DEFAULT 'system',
			sold_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			version INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_sold_at
			ON sale_transactions (sold_at DESC)`,
		`CREATE TABLE IF NOT EXISTS sale_line_items (
			id UUID PRIMARY KEY,
			transaction_id UUID NOT NULL REFERENCES sale_transactions(id),
			product_id UUID NOT NULL,
			product_name TEXT NOT NULL,
			product_sku TEXT NOT NULL,
			quantity BIGINT NOT NULL,
			unit_factor BIGINT NOT NULL DEFAULT 1,
			quantity_base BIGINT NOT NULL,
			unit_price NUMERIC(19,4) NOT NULL,
			line_total NUMERIC(19,4) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_line_items_transaction
			ON sale_line_items (transaction_id)`,
		`CREATE TABLE IF NOT EXISTS sale_allocations (
			line_item_id UUID NOT NULL REFERENCES sale_line_items(id),
			batch_id UUID NOT NULL,
			qty BIGINT NOT NULL,
			PRIMARY KEY (line_item_id, batch_id)
		)`,
		`CREATE TABLE IF NOT EXISTS audit_trail (
			id UUID PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id UUID NOT NULL,
			action TEXT NOT NULL,
			user_id TEXT NOT NULL,
			user_email TEXT NOT NULL DEFAULT '',
			changes JSONB,
			changes_compressed BYTEA,
			compression_algo TEXT NOT NULL DEFAULT 'none',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_entity
			ON audit_trail (entity_type, entity_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS sys_idempotency (
			idempotency_key TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			operation TEXT NOT NULL,
			status TEXT NOT NULL,
			request_hash TEXT NOT NULL,
			response BYTEA,
			response_status INTEGER NOT NULL DEFAULT 0,
			response_content_type TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_idempotency_expires
			ON sys_idempotency (expires_at)`,
		`CREATE TABLE IF NOT EXISTS sys_sequences (
			key TEXT PRIMARY KEY,
			current_val BIGINT NOT NULL DEFAULT 0
		)`,
	}

	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}

	logger.Info(ctx, "schema migration complete", "statements", len(schema))
	return nil
}
