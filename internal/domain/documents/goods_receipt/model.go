// Package goods_receipt provides the GoodsReceipt document (goods received from a supplier).
package goods_receipt

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tradeflow/internal/core/apperror"
	"tradeflow/internal/core/entity"
	"tradeflow/internal/core/id"
	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/documents"
)

// GoodsReceipt records incoming goods from a supplier.
type GoodsReceipt struct {
	entity.Document

	SupplierID id.ID `db:"supplier_id" json:"supplierId"`

	// Supplier's document reference
	SupplierDocNumber string     `db:"supplier_doc_number" json:"supplierDocNumber,omitempty"`
	SupplierDocDate   *time.Time `db:"supplier_doc_date" json:"supplierDocDate,omitempty"`

	ApprovedAt *time.Time `db:"approved_at" json:"approvedAt,omitempty"`
	ApprovedBy *id.ID     `db:"approved_by" json:"approvedBy,omitempty"`

	// Table part: received goods
	Lines []Line `db:"-" json:"lines"`
}

// Line is a received item.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	documents.ItemRef

	ExpectedQuantity types.Money `db:"expected_quantity" json:"expectedQuantity"`
	ReceivedQuantity types.Money `db:"received_quantity" json:"receivedQuantity"`
	UnitCost         types.Money `db:"unit_cost" json:"unitCost"`
}

// BillableQuantity is the larger of received and expected quantity.
func (l Line) BillableQuantity() types.Money {
	return decimal.Max(types.NonNegative(l.ReceivedQuantity), types.NonNegative(l.ExpectedQuantity))
}

// NewGoodsReceipt creates a draft goods receipt.
func NewGoodsReceipt(currency string, supplierID id.ID) *GoodsReceipt {
	return &GoodsReceipt{
		Document:   entity.NewDocument(currency),
		SupplierID: supplierID,
		Lines:      make([]Line, 0),
	}
}

// Validate implements entity.Validatable.
func (g *GoodsReceipt) Validate(ctx context.Context) error {
	if err := g.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(g.SupplierID) {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierId")
	}

	for i, line := range g.Lines {
		if line.ReceivedQuantity.IsNegative() || line.ExpectedQuantity.IsNegative() {
			return apperror.NewValidation("quantity must not be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// CanApprove reports whether the receipt may move to approved.
func (g *GoodsReceipt) CanApprove() error {
	switch g.Status {
	case entity.StatusApproved:
		return apperror.NewBusinessRule("ALREADY_APPROVED", "goods receipt is already approved").
			WithDetail("number", g.Number)
	case entity.StatusCancelled:
		return apperror.NewBusinessRule("DOCUMENT_CANCELLED", "cancelled goods receipt cannot be approved").
			WithDetail("number", g.Number)
	}
	return nil
}

// Approve moves the receipt to approved.
func (g *GoodsReceipt) Approve(by *id.ID, at time.Time) error {
	if err := g.CanApprove(); err != nil {
		return err
	}
	g.Status = entity.StatusApproved
	g.ApprovedAt = &at
	g.ApprovedBy = by
	g.Touch()
	return nil
}
