package supplier_quote

import (
	"context"

	"tradeflow/internal/core/id"
)

// Repository defines read operations for supplier quotes.
type Repository interface {
	GetByID(ctx context.Context, docID id.ID) (*SupplierQuote, error)
	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
}
