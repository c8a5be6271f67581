// Package purchase_invoice provides the PurchaseInvoice document derived from
// approved goods receipts.
package purchase_invoice

import (
	"tradeflow/internal/core/entity"
	"tradeflow/internal/core/id"
	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/documents"
)

// PurchaseInvoice is a supplier bill. It carries no discount and no tax.
type PurchaseInvoice struct {
	entity.Document

	GoodsReceiptID id.ID `db:"goods_receipt_id" json:"goodsReceiptId"`
	SupplierID     id.ID `db:"supplier_id" json:"supplierId"`

	// SupplierInvoiceNumber is the supplier's own reference, synthesised
	// when the receipt did not record one.
	SupplierInvoiceNumber string `db:"supplier_invoice_number" json:"supplierInvoiceNumber"`

	Subtotal    types.Money `db:"subtotal" json:"subtotal"`
	TaxAmount   types.Money `db:"tax_amount" json:"taxAmount"`
	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is a billed item.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	GoodsReceiptLineID id.ID  `db:"goods_receipt_line_id" json:"goodsReceiptLineId"`
	ItemID             id.ID  `db:"item_id" json:"itemId"`
	Description        string `db:"description" json:"description"`

	Quantity  types.Money `db:"quantity" json:"quantity"`
	UnitCost  types.Money `db:"unit_cost" json:"unitCost"`
	LineTotal types.Money `db:"line_total" json:"lineTotal"`
}

// New creates a draft purchase invoice for a goods receipt.
func New(currency string, goodsReceiptID, supplierID id.ID) *PurchaseInvoice {
	return &PurchaseInvoice{
		Document:       entity.NewDocument(currency),
		GoodsReceiptID: goodsReceiptID,
		SupplierID:     supplierID,
	}
}

// Kind implements documents.Derived.
func (p *PurchaseInvoice) Kind() documents.Kind { return documents.KindPurchaseInvoice }

// DocumentID implements documents.Derived.
func (p *PurchaseInvoice) DocumentID() id.ID { return p.ID }

// DocumentNumber implements documents.Derived.
func (p *PurchaseInvoice) DocumentNumber() string { return p.Number }

// DocumentTotal implements documents.Derived.
func (p *PurchaseInvoice) DocumentTotal() types.Money { return p.TotalAmount }

var _ documents.Derived = (*PurchaseInvoice)(nil)
