// Package quotation provides the customer Quotation document.
package quotation

import (
	"tradeflow/internal/core/entity"
	"tradeflow/internal/core/id"
	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/documents"
)

// Quotation is a price offer to a customer.
type Quotation struct {
	entity.Document

	CustomerID id.ID  `db:"customer_id" json:"customerId"`
	EnquiryID  *id.ID `db:"enquiry_id" json:"enquiryId,omitempty"`

	// DiscountAmount is a header-level discount spread over the lines
	// by their share of the gross subtotal.
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is a quoted item.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	documents.ItemRef
	documents.LinePricing
}

// HasLineDiscounts reports whether any line carries its own discount.
func HasLineDiscounts(lines []Line) bool {
	for _, l := range lines {
		if l.DiscountAmount.IsPositive() || l.DiscountPercent.IsPositive() {
			return true
		}
	}
	return false
}

// GrossSubtotal sums quantity × unit price over lines, unrounded.
func GrossSubtotal(lines []Line) types.Money {
	total := types.Zero()
	for _, l := range lines {
		total = total.Add(types.NonNegative(l.Quantity).Mul(types.NonNegative(l.UnitPrice)))
	}
	return total
}
