package sales

import (
	"context"
	"fmt"
	"time"

	"stockcore/internal/core/apperror"
	appctx "stockcore/internal/core/context"
	"stockcore/internal/core/id"
	"stockcore/internal/core/tx"
	"stockcore/internal/core/types"
	"stockcore/internal/domain/catalog"
	"stockcore/internal/domain/inventory"
	"stockcore/pkg/logger"
	"stockcore/pkg/numerator"
)

// Service commits and compensates sale transactions. A sale either fully
// completes (stock deducted, header and lines persisted, movements written)
// or leaves no trace.
type Service struct {
	repo      Repository
	products  catalog.Repository
	batches   inventory.BatchRepository
	manager   *inventory.Manager
	ledger    *inventory.Ledger
	txManager tx.Manager
	numerator *numerator.Service
	audit     AuditLogger
}

func NewService(
	repo Repository,
	products catalog.Repository,
	batches inventory.BatchRepository,
	manager *inventory.Manager,
	ledger *inventory.Ledger,
	txManager tx.Manager,
	num *numerator.Service,
	audit AuditLogger,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		batches:   batches,
		manager:   manager,
		ledger:    ledger,
		txManager: txManager,
		numerator: num,
		audit:     audit,
	}
}

// Create commits a sale. Validation and an availability pre-check run first
// so an obviously doomed request fails without touching stock; the actual
// deduction re-checks under row locks, so the pre-check passing never
// guarantees the commit will.
func (s *Service) Create(ctx context.Context, in CreateInput) (*SaleTransaction, error) {
	if err := in.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.precheckAvailability(ctx, in.Lines); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("SALE"), nil, now)
	if err != nil {
		return nil, fmt.Errorf("generate sale number: %w", err)
	}

	sale := &SaleTransaction{
		ID:            id.New(),
		Number:        number,
		Status:        StatusPending,
		Discount:      in.Discount,
		PaymentMethod: in.PaymentMethod,
		CustomerName:  in.CustomerName,
		Note:          in.Note,
		CreatedBy:     appctx.GetActorID(ctx),
		SoldAt:        now,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		subtotal := types.ZeroMoney()
		note := "sale " + number

		for _, lineIn := range in.Lines {
			p, err := s.products.GetForUpdate(ctx, lineIn.ProductID)
			if err != nil {
				return err
			}
			if !p.IsSellable() {
				return apperror.NewValidation("product is not sellable").
					WithDetail("product_id", p.ID.String()).
					WithDetail("sku", p.SKU)
			}

			baseQty := lineIn.Quantity.Mul(p.Factor())
			line := LineItem{
				ID:            id.New(),
				TransactionID: sale.ID,
				ProductID:     p.ID,
				ProductName:   p.Name,
				ProductSKU:    p.SKU,
				Quantity:      lineIn.Quantity,
				UnitFactor:    p.Factor(),
				QuantityBase:  baseQty,
				UnitPrice:     p.SalePrice,
				LineTotal:     p.SalePrice.Mul(lineIn.Quantity.Decimal()),
			}

			switch inventory.StrategyFor(p) {
			case inventory.StrategyEarliestExpiryFirst:
				allocations, err := s.manager.DeductForSale(ctx, p.ID, baseQty, sale.ID, note)
				if err != nil {
					return err
				}
				line.Allocations = allocations
			default:
				if err := s.ledger.DeductForSale(ctx, p, baseQty, sale.ID, note); err != nil {
					return err
				}
			}

			subtotal = subtotal.Add(line.LineTotal)
			sale.Lines = append(sale.Lines, line)
		}

		sale.Subtotal = subtotal
		sale.Total = subtotal.Sub(sale.Discount)
		if sale.Total.IsNegative() {
			return apperror.NewValidation("discount exceeds subtotal").
				WithDetail("subtotal", sale.Subtotal.String()).
				WithDetail("discount", sale.Discount.String())
		}
		sale.Status = StatusCompleted

		if err := s.repo.Create(ctx, sale); err != nil {
			return fmt.Errorf("persist sale: %w", err)
		}

		return s.audit.LogChange(ctx, "sale_transaction", sale.ID, "create", map[string]any{
			"number": sale.Number,
			"status": string(sale.Status),
			"total":  sale.Total.String(),
			"lines":  len(sale.Lines),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale completed",
		"transaction_id", sale.ID,
		"number", sale.Number,
		"lines", len(sale.Lines),
		"total", sale.Total.String(),
	)
	return sale, nil
}

// precheckAvailability sums requested base quantities per product and
// rejects the sale up front when any product cannot cover its total,
// naming every offending product.
func (s *Service) precheckAvailability(ctx context.Context, lines []LineInput) error {
	needed := make(map[id.ID]types.Quantity)
	order := make([]id.ID, 0, len(lines))

	for _, line := range lines {
		p, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if !p.IsSellable() {
			return apperror.NewValidation("product is not sellable").
				WithDetail("product_id", p.ID.String()).
				WithDetail("sku", p.SKU)
		}
		if _, seen := needed[p.ID]; !seen {
			order = append(order, p.ID)
		}
		needed[p.ID] += line.Quantity.Mul(p.Factor())
	}

	var shortfalls []apperror.ShortfallItem
	for _, productID := range order {
		p, err := s.products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		available, err := inventory.Availability(ctx, p, s.batches)
		if err != nil {
			return err
		}
		if available < needed[productID] {
			shortfalls = append(shortfalls, apperror.ShortfallItem{
				ProductID: productID.String(),
				Requested: needed[productID].Float64(),
				Available: available.Float64(),
			})
		}
	}
	if len(shortfalls) > 0 {
		return apperror.NewInsufficientStockMulti(shortfalls)
	}
	return nil
}

// Get loads a sale with its lines and allocations.
func (s *Service) Get(ctx context.Context, txID id.ID) (*SaleTransaction, error) {
	return s.repo.GetByID(ctx, txID)
}

// List returns sales matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]SaleTransaction, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// DailySummary reports completed-sale revenue for the day containing `day`,
// using prices captured at sale time.
func (s *Service) DailySummary(ctx context.Context, day time.Time) (*DailySummary, error) {
	return s.repo.DailySummary(ctx, day)
}
