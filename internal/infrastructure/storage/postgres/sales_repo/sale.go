// Package sales_repo provides the PostgreSQL implementation of the sale
// transaction repository.
package sales_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockcore/internal/core/apperror"
	"stockcore/internal/core/id"
	"stockcore/internal/domain/inventory"
	"stockcore/internal/domain/sales"
	"stockcore/internal/infrastructure/storage/postgres"
)

const (
	transactionsTable = "sale_transactions"
	lineItemsTable    = "sale_line_items"
	allocationsTable  = "sale_allocations"
)

var (
	transactionColumns = postgres.ExtractDBColumns[sales.SaleTransaction]()
	lineColumns        = postgres.ExtractDBColumns[sales.LineItem]()
)

// SaleRepo implements sales.Repository.
type SaleRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ sales.Repository = (*SaleRepo)(nil)

func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the header, lines and batch allocations. All three inserts
// share the caller's transaction with the stock deductions they describe.
func (r *SaleRepo) Create(ctx context.Context, tx *sales.SaleTransaction) error {
	if r.txManager.GetTx(ctx) == nil {
		return fmt.Errorf("Create requires transaction context")
	}
	querier := r.txManager.GetQuerier(ctx)

	q := r.builder.Insert(transactionsTable).
		Columns(transactionColumns...).
		Values(
			tx.ID, tx.Number, tx.Status, tx.Subtotal, tx.Discount, tx.Total,
			tx.PaymentMethod, tx.CustomerName, tx.Note,
			tx.IsEdited, tx.EditReason, tx.CreatedBy,
			tx.SoldAt, tx.CreatedAt, tx.UpdatedAt, tx.Version,
		)
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build header insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert header: %w", err)
	}

	lq := r.builder.Insert(lineItemsTable).Columns(lineColumns...)
	for _, line := range tx.Lines {
		lq = lq.Values(
			line.ID, line.TransactionID, line.ProductID,
			line.ProductName, line.ProductSKU,
			line.Quantity, line.UnitFactor, line.QuantityBase,
			line.UnitPrice, line.LineTotal,
		)
	}
	sql, args, err = lq.ToSql()
	if err != nil {
		return fmt.Errorf("build lines insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	aq := r.builder.Insert(allocationsTable).
		Columns("line_item_id", "batch_id", "qty")
	haveAllocations := false
	for _, line := range tx.Lines {
		for _, a := range line.Allocations {
			aq = aq.Values(line.ID, a.BatchID, a.Quantity)
			haveAllocations = true
		}
	}
	if !haveAllocations {
		return nil
	}
	sql, args, err = aq.ToSql()
	if err != nil {
		return fmt.Errorf("build allocations insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert allocations: %w", err)
	}
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, txID id.ID) (*sales.SaleTransaction, error) {
	sale, err := r.getHeader(ctx, txID, false)
	if err != nil {
		return nil, err
	}
	sale.Lines, err = r.GetLines(ctx, txID)
	if err != nil {
		return nil, err
	}
	return sale, nil
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, txID id.ID) (*sales.SaleTransaction, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("GetForUpdate requires transaction context")
	}
	return r.getHeader(ctx, txID, true)
}

func (r *SaleRepo) getHeader(ctx context.Context, txID id.ID, forUpdate bool) (*sales.SaleTransaction, error) {
	q := r.builder.Select(transactionColumns...).
		From(transactionsTable).
		Where(squirrel.Eq{"id": txID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var sale sales.SaleTransaction
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &sale, sql, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("sale_transaction", txID.String())
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &sale, nil
}

func (r *SaleRepo) GetLines(ctx context.Context, txID id.ID) ([]sales.LineItem, error) {
	q := r.builder.Select(lineColumns...).
		From(lineItemsTable).
		Where(squirrel.Eq{"transaction_id": txID}).
		OrderBy("id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []sales.LineItem
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	if len(lines) == 0 {
		return lines, nil
	}

	lineIDs := make([]id.ID, 0, len(lines))
	for _, line := range lines {
		lineIDs = append(lineIDs, line.ID)
	}

	aq := r.builder.Select("line_item_id", "batch_id", "qty").
		From(allocationsTable).
		Where(squirrel.Eq{"line_item_id": lineIDs}).
		OrderBy("batch_id ASC")
	sql, args, err = aq.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := querier.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

	byLine := make(map[id.ID][]inventory.Allocation)
	for rows.Next() {
		var lineID id.ID
		var a inventory.Allocation
		if err := rows.Scan(&lineID, &a.BatchID, &a.Quantity); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		byLine[lineID] = append(byLine[lineID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}

	for i := range lines {
		lines[i].Allocations = byLine[lines[i].ID]
	}
	return lines, nil
}

// UpdateStatus transitions the header guarded by its version. A zero row
// count means either a vanished transaction or a concurrent edit; both
// surface as a retryable conflict after existence is ruled out.
func (r *SaleRepo) UpdateStatus(ctx context.Context, txID id.ID, status sales.Status, isEdited bool, editReason string, version int) error {
	const sql = `
		UPDATE sale_transactions
		SET status = $2,
		    is_edited = $3,
		    edit_reason = $4,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1 AND version = $5`

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, txID, status, isEdited, editReason, version)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.getHeader(ctx, txID, false); err != nil {
			return err
		}
		return apperror.NewConcurrentModification("sale_transaction", txID.String())
	}
	return nil
}

func (r *SaleRepo) List(ctx context.Context, filter sales.ListFilter) ([]sales.SaleTransaction, error) {
	q := r.builder.Select(transactionColumns...).
		From(transactionsTable).
		OrderBy("sold_at DESC", "id DESC")

	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"sold_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.Lt{"sold_at": *filter.DateTo})
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

	var txs []sales.SaleTransaction
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &txs, sql, args...); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// DailySummary aggregates completed sales for the UTC day containing day.
// Cancelled transactions never count; amounts are the captured sale-time
// values, untouched by later catalog edits.
func (r *SaleRepo) DailySummary(ctx context.Context, day time.Time) (*sales.DailySummary, error) {
	from := day.UTC().Truncate(24 * time.Hour)
	to := from.Add(24 * time.Hour)

	const sql = `
		SELECT COUNT(*)                         AS transaction_count,
		       COALESCE(SUM(t.subtotal), 0)    AS gross_revenue,
		       COALESCE(SUM(t.discount), 0)    AS total_discount,
		       COALESCE(SUM(t.total), 0)       AS net_revenue,
		       COALESCE((
		           SELECT SUM(li.quantity_base)
		           FROM sale_line_items li
		           JOIN sale_transactions st ON st.id = li.transaction_id
		           WHERE st.status = $1 AND st.sold_at >= $2 AND st.sold_at < $3
		       ), 0)                            AS items_sold
		FROM sale_transactions t
		WHERE t.status = $1 AND t.sold_at >= $2 AND t.sold_at < $3`

	summary := &sales.DailySummary{Date: from}
	err := r.txManager.GetQuerier(ctx).
		QueryRow(ctx, sql, sales.StatusCompleted, from, to).
		Scan(&summary.TransactionCount, &summary.GrossRevenue,
			&summary.TotalDiscount, &summary.NetRevenue, &summary.ItemsSold)
	if err != nil {
		return nil, fmt.Errorf("daily summary: %w", err)
	}
	return summary, nil
}
