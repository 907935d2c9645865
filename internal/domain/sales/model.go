// Package sales implements the sale transaction processor: all-or-nothing
// sale commits over the stock core, and the compensating undo that reverses
// them.
package sales

import (
	"context"
	"time"

	"stockcore/internal/core/apperror"
	"stockcore/internal/core/id"
	"stockcore/internal/core/types"
	"stockcore/internal/domain/inventory"
)

// Status is the lifecycle state of a sale transaction.
type Status string

const (
	// StatusPending exists only inside the commit transaction; it is never
	// observable through the API.
	StatusPending Status = "pending"
	// StatusCompleted means stock was deducted and the sale is final.
	StatusCompleted Status = "completed"
	// StatusCancelled means the sale was undone; its stock effect has been
	// compensated. Cancelled sales never count toward revenue.
	StatusCancelled Status = "cancelled"
)

// SaleTransaction is a committed sale with its captured pricing.
type SaleTransaction struct {
	ID     id.ID  `db:"id" json:"id"`
	Number string `db:"number" json:"number"`
	Status Status `db:"status" json:"status"`

	// Subtotal and Total are captured at commit time from the line items;
	// they are never re-derived from the catalog.
	Subtotal types.Money `db:"subtotal" json:"subtotal"`
	Discount types.Money `db:"discount" json:"discount"`
	Total    types.Money `db:"total" json:"total"`

	PaymentMethod string `db:"payment_method" json:"paymentMethod,omitempty"`
	CustomerName  string `db:"customer_name" json:"customerName,omitempty"`
	Note          string `db:"note" json:"note,omitempty"`

	// IsEdited and EditReason are stamped by Undo.
	IsEdited   bool   `db:"is_edited" json:"isEdited"`
	EditReason string `db:"edit_reason" json:"editReason,omitempty"`

	CreatedBy string    `db:"created_by" json:"createdBy"`
	SoldAt    time.Time `db:"sold_at" json:"soldAt"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// Version guards status transitions against concurrent edits.
	Version int `db:"version" json:"version"`

	Lines []LineItem `db:"-" json:"lines,omitempty"`
}

// LineItem is one product position on a sale. Price and unit factor are
// captured from the catalog at sale time so history survives later catalog
// edits.
type LineItem struct {
	ID            id.ID `db:"id" json:"id"`
	TransactionID id.ID `db:"transaction_id" json:"transactionId"`
	ProductID     id.ID `db:"product_id" json:"productId"`

	ProductName string `db:"product_name" json:"productName"`
	ProductSKU  string `db:"product_sku" json:"productSku"`

	// Quantity is in sale units; QuantityBase = Quantity * UnitFactor is
	// what was deducted from stock.
	Quantity     types.Quantity `db:"quantity" json:"quantity"`
	UnitFactor   int64          `db:"unit_factor" json:"unitFactor"`
	QuantityBase types.Quantity `db:"quantity_base" json:"quantityBase"`

	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
	LineTotal types.Money `db:"line_total" json:"lineTotal"`

	// Allocations record which batches served this line. Empty for
	// aggregate-mode products.
	Allocations []inventory.Allocation `db:"-" json:"allocations,omitempty"`
}

// CreateInput is a sale request before validation.
type CreateInput struct {
	Lines         []LineInput `json:"lines"`
	Discount      types.Money `json:"discount"`
	PaymentMethod string      `json:"paymentMethod"`
	CustomerName  string      `json:"customerName"`
	Note          string      `json:"note"`
}

// LineInput is one requested position.
type LineInput struct {
	ProductID id.ID          `json:"productId"`
	Quantity  types.Quantity `json:"quantity"`
}

// Validate checks structural correctness; availability is checked later.
func (in *CreateInput) Validate(ctx context.Context) error {
	if len(in.Lines) == 0 {
		return apperror.NewValidation("sale must have at least one line").
			WithDetail("field", "lines")
	}
	for i, line := range in.Lines {
		if id.IsNil(line.ProductID) {
			return apperror.NewValidation("line product is required").
				WithDetail("line", i)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("line quantity must be positive").
				WithDetail("line", i).
				WithDetail("product_id", line.ProductID.String())
		}
	}
	if in.Discount.IsNegative() {
		return apperror.NewValidation("discount cannot be negative").
			WithDetail("field", "discount")
	}
	return nil
}

// UndoResult reports what a compensation run achieved.
type UndoResult struct {
	// Success is true once the transaction reached cancelled state, even
	// when some restore targets had vanished.
	Success       bool                      `json:"success"`
	RestoredCount int                       `json:"restoredCount"`
	MissingCount  int                       `json:"missingCount"`
	Missing       []inventory.MissingTarget `json:"missing,omitempty"`
	Warning       string                    `json:"warning,omitempty"`
}

// ListFilter narrows List queries.
type ListFilter struct {
	Status   Status
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// DailySummary is the revenue report for one day. Cancelled sales are
// excluded; amounts are the captured sale-time prices.
type DailySummary struct {
	Date             time.Time      `db:"date" json:"date"`
	TransactionCount int            `db:"transaction_count" json:"transactionCount"`
	ItemsSold        types.Quantity `db:"items_sold" json:"itemsSold"`
	GrossRevenue     types.Money    `db:"gross_revenue" json:"grossRevenue"`
	TotalDiscount    types.Money    `db:"total_discount" json:"totalDiscount"`
	NetRevenue       types.Money    `db:"net_revenue" json:"netRevenue"`
}
