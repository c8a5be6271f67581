package delivery

import (
	"context"

	"tradeflow/internal/core/id"
)

// Repository defines read operations for deliveries.
type Repository interface {
	GetByID(ctx context.Context, docID id.ID) (*Delivery, error)
	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
}
