package purchase_invoice

import (
	"context"

	"tradeflow/internal/core/id"
)

// Repository defines persistence for purchase invoices.
type Repository interface {
	Create(ctx context.Context, doc *PurchaseInvoice) error
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	// FindByGoodsReceipt returns NOT_FOUND when the receipt was never invoiced.
	FindByGoodsReceipt(ctx context.Context, receiptID id.ID) (*PurchaseInvoice, error)
}
