// Package goods_receipt provides the GoodsReceipt document repository.
package goods_receipt

import (
	"context"

	"tradeflow/internal/core/id"
)

// Repository defines operations for goods receipt documents.
type Repository interface {
	GetByID(ctx context.Context, docID id.ID) (*GoodsReceipt, error)
	GetLines(ctx context.Context, docID id.ID) ([]Line, error)

	// GetForUpdate locks the header row for the rest of the transaction.
	GetForUpdate(ctx context.Context, docID id.ID) (*GoodsReceipt, error)

	// UpdateStatus persists status and approval fields. The stored version
	// must equal doc.Version-1.
	UpdateStatus(ctx context.Context, doc *GoodsReceipt) error
}
