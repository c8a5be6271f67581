package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"tradeflow/internal/core/id"
	"tradeflow/internal/domain/documents/purchase_invoice"
	"tradeflow/internal/infrastructure/storage/postgres"
)

const (
	purchaseInvoicesTable     = "purchase_invoices"
	purchaseInvoiceLinesTable = "purchase_invoice_lines"
)

// PurchaseInvoiceRepo implements purchase_invoice.Repository.
type PurchaseInvoiceRepo struct {
	*BaseDocumentRepo[*purchase_invoice.PurchaseInvoice]
	lines lineStore[purchase_invoice.Line]
}

// NewPurchaseInvoiceRepo creates a new purchase invoice repository.
func NewPurchaseInvoiceRepo(txManager *postgres.TxManager) *PurchaseInvoiceRepo {
	return &PurchaseInvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			purchaseInvoicesTable,
			postgres.ExtractDBColumns[purchase_invoice.PurchaseInvoice](),
			func() *purchase_invoice.PurchaseInvoice { return new(purchase_invoice.PurchaseInvoice) },
		),
		lines: newLineStore[purchase_invoice.Line](txManager, purchaseInvoiceLinesTable),
	}
}

// SaveLines replaces the lines of a purchase invoice.
func (r *PurchaseInvoiceRepo) SaveLines(ctx context.Context, docID id.ID, lines []purchase_invoice.Line) error {
	return r.lines.save(ctx, docID, lines)
}

// FindByGoodsReceipt returns the invoice derived from a receipt.
func (r *PurchaseInvoiceRepo) FindByGoodsReceipt(ctx context.Context, receiptID id.ID) (*purchase_invoice.PurchaseInvoice, error) {
	return r.getOne(ctx, r.baseSelect().
		Where(squirrel.Eq{"goods_receipt_id": receiptID, "deletion_mark": false}).
		Limit(1), receiptID.String())
}
