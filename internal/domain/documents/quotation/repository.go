package quotation

import (
	"context"

	"tradeflow/internal/core/id"
)

// Repository defines read operations for quotations.
type Repository interface {
	GetByID(ctx context.Context, docID id.ID) (*Quotation, error)
	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
}
