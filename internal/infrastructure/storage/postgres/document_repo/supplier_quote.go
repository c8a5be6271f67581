package document_repo

import (
	"context"

	"tradeflow/internal/core/id"
	"tradeflow/internal/domain/documents/supplier_quote"
	"tradeflow/internal/infrastructure/storage/postgres"
)

const (
	supplierQuotesTable     = "supplier_quotes"
	supplierQuoteLinesTable = "supplier_quote_lines"
)

// SupplierQuoteRepo implements supplier_quote.Repository.
type SupplierQuoteRepo struct {
	*BaseDocumentRepo[*supplier_quote.SupplierQuote]
	lines lineStore[supplier_quote.Line]
}

// NewSupplierQuoteRepo creates a new supplier_quote repository.
func NewSupplierQuoteRepo(txManager *postgres.TxManager) *SupplierQuoteRepo {
	return &SupplierQuoteRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			supplierQuotesTable,
			postgres.ExtractDBColumns[supplier_quote.SupplierQuote](),
			func() *supplier_quote.SupplierQuote { return new(supplier_quote.SupplierQuote) },
		),
		lines: newLineStore[supplier_quote.Line](txManager, supplierQuoteLinesTable),
	}
}

// GetLines retrieves the lines of a supplier_quote document.
func (r *SupplierQuoteRepo) GetLines(ctx context.Context, docID id.ID) ([]supplier_quote.Line, error) {
	return r.lines.get(ctx, docID)
}
