package enquiry

import (
	"context"

	"tradeflow/internal/core/id"
)

// Repository defines read operations for enquiries.
type Repository interface {
	GetLines(ctx context.Context, enquiryID id.ID) ([]Line, error)
}
