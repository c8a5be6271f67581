package document_repo

import (
	"context"

	"tradeflow/internal/core/id"
	"tradeflow/internal/domain/documents/invoice"
	"tradeflow/internal/infrastructure/storage/postgres"
)

const (
	invoicesTable     = "invoices"
	invoiceLinesTable = "invoice_lines"
)

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	*BaseDocumentRepo[*invoice.Invoice]
	lines lineStore[invoice.Line]
}

// NewInvoiceRepo creates a new sales invoice repository.
func NewInvoiceRepo(txManager *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			invoicesTable,
			postgres.ExtractDBColumns[invoice.Invoice](),
			func() *invoice.Invoice { return new(invoice.Invoice) },
		),
		lines: newLineStore[invoice.Line](txManager, invoiceLinesTable),
	}
}

// GetLines retrieves the lines of an invoice.
func (r *InvoiceRepo) GetLines(ctx context.Context, docID id.ID) ([]invoice.Line, error) {
	return r.lines.get(ctx, docID)
}

// SaveLines replaces the lines of an invoice.
func (r *InvoiceRepo) SaveLines(ctx context.Context, docID id.ID, lines []invoice.Line) error {
	return r.lines.save(ctx, docID, lines)
}
