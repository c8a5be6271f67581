// Package documents holds building blocks shared by business documents.
package documents

import (
	"tradeflow/internal/core/id"
	"tradeflow/internal/core/types"
)

// Kind tags a derived document.
type Kind string

const (
	KindSalesInvoice    Kind = "sales_invoice"
	KindPurchaseInvoice Kind = "purchase_invoice"
	KindSupplierLPO     Kind = "supplier_lpo"
)

// Derived is implemented by every document the derivation pipelines produce.
// Switch on Kind() to recover the concrete type.
type Derived interface {
	Kind() Kind
	DocumentID() id.ID
	DocumentNumber() string
	DocumentTotal() types.Money
}

// ItemRef holds the loose item identifiers found on upstream lines.
type ItemRef struct {
	ItemID       *id.ID `db:"item_id" json:"itemId,omitempty"`
	SupplierCode string `db:"supplier_code" json:"supplierCode,omitempty"`
	Barcode      string `db:"barcode" json:"barcode,omitempty"`
	Description  string `db:"description" json:"description,omitempty"`
}

// ItemIDString returns the item id as text, or "" when unset.
func (r ItemRef) ItemIDString() string {
	if r.ItemID == nil {
		return ""
	}
	return r.ItemID.String()
}

// LinePricing holds the commercial terms of a sales line.
type LinePricing struct {
	Quantity        types.Money `db:"quantity" json:"quantity"`
	UnitPrice       types.Money `db:"unit_price" json:"unitPrice"`
	DiscountPercent types.Money `db:"discount_percent" json:"discountPercent"`
	DiscountAmount  types.Money `db:"discount_amount" json:"discountAmount"`
}
