// Package invoice provides the sales Invoice document derived from deliveries.
package invoice

import (
	"context"

	"tradeflow/internal/core/apperror"
	"tradeflow/internal/core/entity"
	"tradeflow/internal/core/id"
	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/documents"
	"tradeflow/internal/domain/pricing"
)

// Invoice is a customer invoice. Header totals are the per-field sums of the
// line amounts.
type Invoice struct {
	entity.Document

	DeliveryID   id.ID `db:"delivery_id" json:"deliveryId"`
	SalesOrderID id.ID `db:"sales_order_id" json:"salesOrderId"`
	CustomerID   id.ID `db:"customer_id" json:"customerId"`

	pricing.DocumentTotals

	Lines []Line `db:"-" json:"lines"`
}

// Line is an invoiced item.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	// DeliveryLineID is nil for lines built from the sales order.
	DeliveryLineID *id.ID `db:"delivery_line_id" json:"deliveryLineId,omitempty"`
	ItemID         id.ID  `db:"item_id" json:"itemId"`
	Description    string `db:"description" json:"description"`

	Quantity        types.Money `db:"quantity" json:"quantity"`
	UnitPrice       types.Money `db:"unit_price" json:"unitPrice"`
	DiscountPercent types.Money `db:"discount_percent" json:"discountPercent"`
	TaxPercent      types.Money `db:"tax_percent" json:"taxPercent"`

	pricing.LineAmounts
}

// New creates a draft invoice for a delivery.
func New(currency string, deliveryID, salesOrderID, customerID id.ID) *Invoice {
	return &Invoice{
		Document:     entity.NewDocument(currency),
		DeliveryID:   deliveryID,
		SalesOrderID: salesOrderID,
		CustomerID:   customerID,
	}
}

// Validate implements entity.Validatable.
func (i *Invoice) Validate(ctx context.Context) error {
	if err := i.Document.Validate(ctx); err != nil {
		return err
	}
	if len(i.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}
	if !i.Subtotal.IsPositive() {
		return apperror.NewValidation("subtotal must be positive").
			WithDetail("field", "subtotal")
	}
	return nil
}

// Kind implements documents.Derived.
func (i *Invoice) Kind() documents.Kind { return documents.KindSalesInvoice }

// DocumentID implements documents.Derived.
func (i *Invoice) DocumentID() id.ID { return i.ID }

// DocumentNumber implements documents.Derived.
func (i *Invoice) DocumentNumber() string { return i.Number }

// DocumentTotal implements documents.Derived.
func (i *Invoice) DocumentTotal() types.Money { return i.TotalAmount }

var _ documents.Derived = (*Invoice)(nil)
