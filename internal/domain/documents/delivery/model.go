// Package delivery provides the Delivery document (goods shipped to a customer).
package delivery

import (
	"tradeflow/internal/core/entity"
	"tradeflow/internal/core/id"
	"tradeflow/internal/domain/documents"
)

// Delivery records goods shipped against a sales order.
type Delivery struct {
	entity.Document

	// SalesOrderID links the delivery to its order; invoicing requires it.
	SalesOrderID *id.ID `db:"sales_order_id" json:"salesOrderId,omitempty"`
	CustomerID   id.ID  `db:"customer_id" json:"customerId"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is a delivered item.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	// SalesOrderLineID points at the ordered line this delivery fulfils.
	SalesOrderLineID *id.ID `db:"sales_order_line_id" json:"salesOrderLineId,omitempty"`

	documents.ItemRef
	documents.LinePricing
}
