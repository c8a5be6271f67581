package invoice

import (
	"context"

	"tradeflow/internal/core/id"
)

// Repository defines persistence for sales invoices.
type Repository interface {
	Create(ctx context.Context, doc *Invoice) error
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error
	GetByID(ctx context.Context, docID id.ID) (*Invoice, error)
	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
}
