// Package supplier_quote provides the SupplierQuote document (a supplier's price offer).
package supplier_quote

import (
	"tradeflow/internal/core/entity"
	"tradeflow/internal/core/id"
	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/documents"
)

// SupplierQuote is a priced offer received from a supplier.
type SupplierQuote struct {
	entity.Document

	SupplierID  id.ID       `db:"supplier_id" json:"supplierId"`
	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is a quoted item at supplier cost.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	documents.ItemRef

	Quantity        types.Money `db:"quantity" json:"quantity"`
	UnitCost        types.Money `db:"unit_cost" json:"unitCost"`
	DiscountPercent types.Money `db:"discount_percent" json:"discountPercent"`
	DiscountAmount  types.Money `db:"discount_amount" json:"discountAmount"`
	LineTotal       types.Money `db:"line_total" json:"lineTotal"`
}
