package document_repo

import (
	"context"

	"tradeflow/internal/core/id"
	"tradeflow/internal/domain/documents/enquiry"
	"tradeflow/internal/infrastructure/storage/postgres"
)

const enquiryLinesTable = "enquiry_lines"

// EnquiryRepo implements enquiry.Repository. Only enquiry lines are read;
// headers are owned by the sales front office.
type EnquiryRepo struct {
	lines lineStore[enquiry.Line]
}

// NewEnquiryRepo creates a new enquiry repository.
func NewEnquiryRepo(txManager *postgres.TxManager) *EnquiryRepo {
	return &EnquiryRepo{lines: newLineStore[enquiry.Line](txManager, enquiryLinesTable)}
}

// GetLines retrieves the lines of an enquiry.
func (r *EnquiryRepo) GetLines(ctx context.Context, enquiryID id.ID) ([]enquiry.Line, error) {
	return r.lines.get(ctx, enquiryID)
}
