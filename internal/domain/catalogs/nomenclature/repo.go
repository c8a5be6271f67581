package nomenclature

import (
	"context"

	"tradeflow/internal/core/id"
)

// Repository defines the interface for catalog item persistence.
// Lookups return an apperror NOT_FOUND when nothing matches.
type Repository interface {
	GetByID(ctx context.Context, itemID id.ID) (*Nomenclature, error)

	// FindByCode matches the item code or the recorded supplier code exactly.
	FindByCode(ctx context.Context, code string) (*Nomenclature, error)

	// FindByBarcode matches the barcode exactly.
	FindByBarcode(ctx context.Context, barcode string) (*Nomenclature, error)

	// Create inserts a new item. A duplicate code or barcode surfaces as a
	// CONSTRAINT_VIOLATION of kind unique.
	Create(ctx context.Context, item *Nomenclature) error
}
