package supplier_lpo

import (
	"context"

	"tradeflow/internal/core/id"
)

// Repository defines persistence for supplier LPOs.
type Repository interface {
	Create(ctx context.Context, doc *SupplierLPO) error
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error
}
