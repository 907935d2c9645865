// Package catalog_repo provides the PostgreSQL implementation of the
// catalog repository. The stock core owns only the stock projection columns
// of the products table; everything else is written by the catalog service.
package catalog_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockcore/internal/core/apperror"
	"stockcore/internal/core/id"
	"stockcore/internal/core/types"
	"stockcore/internal/domain/catalog"
	"stockcore/internal/infrastructure/storage/postgres"
)

const productsTable = "products"

var productColumns = postgres.ExtractDBColumns[catalog.Product]()

// ProductRepo implements catalog.Repository.
type ProductRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ catalog.Repository = (*ProductRepo)(nil)

func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	return r.get(ctx, productID, false)
}

func (r *ProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("GetForUpdate requires transaction context")
	}
	return r.get(ctx, productID, true)
}

func (r *ProductRepo) get(ctx context.Context, productID id.ID, forUpdate bool) (*catalog.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"id": productID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p catalog.Product
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &p, sql, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("product", productID.String())
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (r *ProductRepo) List(ctx context.Context, filter catalog.ListFilter) ([]catalog.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		OrderBy("name ASC")

	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"active": true})
	}
	if filter.TrackingMode != nil {
		q = q.Where(squirrel.Eq{"tracking_mode": *filter.TrackingMode})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"sku": pattern},
		})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var products []catalog.Product
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &products, sql, args...); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (r *ProductRepo) ListBatchTracked(ctx context.Context) ([]catalog.Product, error) {
	mode := catalog.TrackingBatch
	return r.List(ctx, catalog.ListFilter{ActiveOnly: true, TrackingMode: &mode})
}

// DeductStock decrements the counter only when enough stock remains; the
// check and the write are one statement, so concurrent deductions cannot
// jointly oversell.
func (r *ProductRepo) DeductStock(ctx context.Context, productID id.ID, qty types.Quantity) error {
	const sql = `
		UPDATE products
		SET stock_qty = stock_qty - $2,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1 AND stock_qty >= $2`

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, productID, qty)
	if err != nil {
		return fmt.Errorf("deduct stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a vanished product from a shortfall.
		p, err := r.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		return apperror.NewInsufficientStock(productID.String(), qty.Float64(), p.StockQty.Float64())
	}
	return nil
}

func (r *ProductRepo) RestoreStock(ctx context.Context, productID id.ID, qty types.Quantity) (bool, error) {
	const sql = `
		UPDATE products
		SET stock_qty = stock_qty + $2,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1`

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, productID, qty)
	if err != nil {
		return false, fmt.Errorf("restore stock: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ProductRepo) SetStock(ctx context.Context, productID id.ID, qty types.Quantity) error {
	const sql = `
		UPDATE products
		SET stock_qty = $2,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1`

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, productID, qty)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID.String())
	}
	return nil
}
