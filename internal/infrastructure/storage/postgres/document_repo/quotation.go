package document_repo

import (
	"context"

	"tradeflow/internal/core/id"
	"tradeflow/internal/domain/documents/quotation"
	"tradeflow/internal/infrastructure/storage/postgres"
)

const (
	quotationsTable     = "quotations"
	quotationLinesTable = "quotation_lines"
)

// QuotationRepo implements quotation.Repository.
type QuotationRepo struct {
	*BaseDocumentRepo[*quotation.Quotation]
	lines lineStore[quotation.Line]
}

// NewQuotationRepo creates a new quotation repository.
func NewQuotationRepo(txManager *postgres.TxManager) *QuotationRepo {
	return &QuotationRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			quotationsTable,
			postgres.ExtractDBColumns[quotation.Quotation](),
			func() *quotation.Quotation { return new(quotation.Quotation) },
		),
		lines: newLineStore[quotation.Line](txManager, quotationLinesTable),
	}
}

// GetLines retrieves the lines of a quotation document.
func (r *QuotationRepo) GetLines(ctx context.Context, docID id.ID) ([]quotation.Line, error) {
	return r.lines.get(ctx, docID)
}
