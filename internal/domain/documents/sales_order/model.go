// Package sales_order provides the SalesOrder document.
package sales_order

import (
	"tradeflow/internal/core/entity"
	"tradeflow/internal/core/id"
	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/documents"
)

// SalesOrder is a customer order, optionally converted from a quotation.
type SalesOrder struct {
	entity.Document

	CustomerID  id.ID  `db:"customer_id" json:"customerId"`
	QuotationID *id.ID `db:"quotation_id" json:"quotationId,omitempty"`
	EnquiryID   *id.ID `db:"enquiry_id" json:"enquiryId,omitempty"`

	// SupplierID is the preferred supplier used when ordering stock.
	SupplierID *id.ID `db:"supplier_id" json:"supplierId,omitempty"`

	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is an ordered item.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	documents.ItemRef
	documents.LinePricing

	// UnitCost is the expected purchase cost.
	UnitCost   types.Money `db:"unit_cost" json:"unitCost"`
	SupplierID *id.ID      `db:"supplier_id" json:"supplierId,omitempty"`
	LineTotal  types.Money `db:"line_total" json:"lineTotal"`
}
