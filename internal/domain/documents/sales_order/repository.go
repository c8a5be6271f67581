package sales_order

import (
	"context"

	"tradeflow/internal/core/id"
)

// Repository defines read operations for sales orders.
type Repository interface {
	GetByID(ctx context.Context, docID id.ID) (*SalesOrder, error)
	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
}
