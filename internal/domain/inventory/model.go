// Package inventory provides the stock core: batch receipts with
// earliest-expiry-first allocation, the aggregate stock ledger, the
// append-only movement log and the read-side health predicates.
package inventory

import (
	"context"
	"time"

	"stockcore/internal/core/apperror"
	"stockcore/internal/core/id"
	"stockcore/internal/core/types"
)

// BatchStatus is the lifecycle state of a stock batch.
type BatchStatus string

const (
	BatchActive      BatchStatus = "active"
	BatchDepleted    BatchStatus = "depleted"
	BatchExpired     BatchStatus = "expired"
	BatchQuarantined BatchStatus = "quarantined"
)

// Batch is a discrete stock receipt. Batches are never physically deleted;
// depleted and expired batches stay as history.
type Batch struct {
	ID id.ID `db:"id" json:"id"`

	// ProductID is a weak reference: the catalog may delete the product
	// while the batch remains.
	ProductID id.ID `db:"product_id" json:"productId"`

	Label string `db:"label" json:"label"`

	// Invariant: 0 <= QtyRemaining <= QtyOriginal.
	QtyRemaining types.Quantity `db:"qty_remaining" json:"qtyRemaining"`
	QtyOriginal  types.Quantity `db:"qty_original" json:"qtyOriginal"`

	ExpiryDate *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	UnitCost types.Money `db:"unit_cost" json:"unitCost"`
	Supplier string      `db:"supplier" json:"supplier,omitempty"`

	Status BatchStatus `db:"status" json:"status"`

	ReceivedAt time.Time `db:"received_at" json:"receivedAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// IsExpired reports whether the expiry date has passed as of now.
func (b *Batch) IsExpired(now time.Time) bool {
	return b.ExpiryDate != nil && b.ExpiryDate.Before(now)
}

// Allocatable reports whether the batch can supply a sale as of now.
func (b *Batch) Allocatable(now time.Time) bool {
	return b.Status == BatchActive && b.QtyRemaining.IsPositive() && !b.IsExpired(now)
}

// Validate checks batch invariants.
func (b *Batch) Validate(ctx context.Context) error {
	if id.IsNil(b.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if b.QtyRemaining.IsNegative() {
		return apperror.NewValidation("quantity cannot be negative").
			WithDetail("field", "qtyRemaining")
	}
	if b.QtyRemaining > b.QtyOriginal {
		return apperror.NewValidation("quantity cannot exceed original quantity").
			WithDetail("field", "qtyRemaining")
	}
	return nil
}

// MovementType classifies a stock-affecting event.
type MovementType string

const (
	MovementIn          MovementType = "in"
	MovementOut         MovementType = "out"
	MovementAdjustment  MovementType = "adjustment"
	MovementExpired     MovementType = "expired"
	MovementQuarantined MovementType = "quarantined"
)

// Reference types linking a movement back to its cause.
const (
	RefSale       = "sale"
	RefUndo       = "undo"
	RefReceipt    = "receipt"
	RefAdjustment = "adjustment"
	RefExpiry     = "expiry"
	RefQuarantine = "quarantine"
)

// Movement is one immutable row of the stock audit log. Rows are only ever
// inserted; corrections are new rows, never edits to history.
type Movement struct {
	ID id.ID `db:"id" json:"id"`

	// Weak references. Historical movements outlive their targets.
	ProductID id.ID  `db:"product_id" json:"productId"`
	BatchID   *id.ID `db:"batch_id" json:"batchId,omitempty"`

	Type MovementType `db:"movement_type" json:"movementType"`

	// QtyDelta is signed: receipts positive, deductions negative.
	QtyDelta types.Quantity `db:"qty_delta" json:"qtyDelta"`

	// Aggregate stock snapshot around the event.
	QtyBefore types.Quantity `db:"qty_before" json:"qtyBefore"`
	QtyAfter  types.Quantity `db:"qty_after" json:"qtyAfter"`

	// ReferenceType + ReferenceID link to the causing operation.
	ReferenceType string `db:"reference_type" json:"referenceType"`
	ReferenceID   id.ID  `db:"reference_id" json:"referenceId"`

	ActorID string `db:"actor_id" json:"actorId"`
	Note    string `db:"note" json:"note,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewMovement creates a movement with a generated time-ordered id.
func NewMovement(productID id.ID, batchID *id.ID, mType MovementType, delta, before, after types.Quantity, refType string, refID id.ID, actor, note string) Movement {
	return Movement{
		ID:            id.New(),
		ProductID:     productID,
		BatchID:       batchID,
		Type:          mType,
		QtyDelta:      delta,
		QtyBefore:     before,
		QtyAfter:      after,
		ReferenceType: refType,
		ReferenceID:   refID,
		ActorID:       actor,
		Note:          note,
		CreatedAt:     time.Now().UTC(),
	}
}

// Allocation records that a sale took Quantity from BatchID.
// The tuples are persisted with the line item so undo can restore
// exactly the batches that supplied the sale.
type Allocation struct {
	BatchID  id.ID          `db:"batch_id" json:"batchId"`
	Quantity types.Quantity `db:"qty" json:"quantity"`
}

// MissingTargetKind distinguishes what vanished during a restoration.
type MissingTargetKind string

const (
	MissingProduct MissingTargetKind = "product"
	MissingBatch   MissingTargetKind = "batch"
)

// MissingTarget identifies a reference whose target no longer exists.
type MissingTarget struct {
	Kind MissingTargetKind `json:"kind"`
	ID   id.ID             `json:"id"`
}

// RestoreOutcome reports a partial-tolerant restoration: how much came
// back and which targets were gone.
type RestoreOutcome struct {
	Restored int             `json:"restored"`
	Missing  []MissingTarget `json:"missing,omitempty"`
}

// MovementFilter narrows movement history queries.
type MovementFilter struct {
	ProductID *id.ID
	BatchID   *id.ID
	Type      *MovementType
	FromDate  *time.Time
	ToDate    *time.Time
	Limit     int
	Offset    int
}
