// Package supplier_lpo provides the Supplier LPO (local purchase order).
package supplier_lpo

import (
	"tradeflow/internal/core/entity"
	"tradeflow/internal/core/id"
	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/documents"
)

// SourceType names the upstream documents an LPO is built from.
type SourceType string

const (
	SourceSalesOrders    SourceType = "sales_orders"
	SourceSupplierQuotes SourceType = "supplier_quotes"
)

// GroupBy controls how sources are split into LPOs.
type GroupBy string

const (
	// GroupBySupplier issues one LPO per supplier.
	GroupBySupplier GroupBy = "supplier"
	// GroupByNone issues one LPO per source document.
	GroupByNone GroupBy = "none"
)

// SupplierLPO is a purchase order sent to a supplier.
type SupplierLPO struct {
	entity.Document

	SupplierID *id.ID     `db:"supplier_id" json:"supplierId,omitempty"`
	SourceType SourceType `db:"source_type" json:"sourceType"`

	Subtotal       types.Money `db:"subtotal" json:"subtotal"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	TotalAmount    types.Money `db:"total_amount" json:"totalAmount"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is an ordered item copied from a source line.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	SourceDocumentID id.ID  `db:"source_document_id" json:"sourceDocumentId"`
	SourceLineID     *id.ID `db:"source_line_id" json:"sourceLineId,omitempty"`

	ItemID      id.ID  `db:"item_id" json:"itemId"`
	Description string `db:"description" json:"description"`

	Quantity        types.Money `db:"quantity" json:"quantity"`
	UnitCost        types.Money `db:"unit_cost" json:"unitCost"`
	DiscountPercent types.Money `db:"discount_percent" json:"discountPercent"`
	DiscountAmount  types.Money `db:"discount_amount" json:"discountAmount"`
	LineTotal       types.Money `db:"line_total" json:"lineTotal"`
}

// New creates a draft LPO.
func New(currency string, supplierID *id.ID, source SourceType) *SupplierLPO {
	return &SupplierLPO{
		Document:   entity.NewDocument(currency),
		SupplierID: supplierID,
		SourceType: source,
	}
}

// SourceIDs lists the distinct source documents in line order.
func (l *SupplierLPO) SourceIDs() []id.ID {
	seen := make(map[id.ID]struct{}, len(l.Lines))
	var out []id.ID
	for _, line := range l.Lines {
		if _, ok := seen[line.SourceDocumentID]; ok {
			continue
		}
		seen[line.SourceDocumentID] = struct{}{}
		out = append(out, line.SourceDocumentID)
	}
	return out
}

// Kind implements documents.Derived.
func (l *SupplierLPO) Kind() documents.Kind { return documents.KindSupplierLPO }

// DocumentID implements documents.Derived.
func (l *SupplierLPO) DocumentID() id.ID { return l.ID }

// DocumentNumber implements documents.Derived.
func (l *SupplierLPO) DocumentNumber() string { return l.Number }

// DocumentTotal implements documents.Derived.
func (l *SupplierLPO) DocumentTotal() types.Money { return l.TotalAmount }

var _ documents.Derived = (*SupplierLPO)(nil)
