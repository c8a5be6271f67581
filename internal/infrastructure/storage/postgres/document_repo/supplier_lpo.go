package document_repo

import (
	"context"

	"tradeflow/internal/core/id"
	"tradeflow/internal/domain/documents/supplier_lpo"
	"tradeflow/internal/infrastructure/storage/postgres"
)

const (
	supplierLPOsTable     = "supplier_lpos"
	supplierLPOLinesTable = "supplier_lpo_lines"
)

// SupplierLPORepo implements supplier_lpo.Repository.
type SupplierLPORepo struct {
	*BaseDocumentRepo[*supplier_lpo.SupplierLPO]
	lines lineStore[supplier_lpo.Line]
}

// NewSupplierLPORepo creates a new supplier LPO repository.
func NewSupplierLPORepo(txManager *postgres.TxManager) *SupplierLPORepo {
	return &SupplierLPORepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			supplierLPOsTable,
			postgres.ExtractDBColumns[supplier_lpo.SupplierLPO](),
			func() *supplier_lpo.SupplierLPO { return new(supplier_lpo.SupplierLPO) },
		),
		lines: newLineStore[supplier_lpo.Line](txManager, supplierLPOLinesTable),
	}
}

// SaveLines replaces the lines of an LPO.
func (r *SupplierLPORepo) SaveLines(ctx context.Context, docID id.ID, lines []supplier_lpo.Line) error {
	return r.lines.save(ctx, docID, lines)
}
