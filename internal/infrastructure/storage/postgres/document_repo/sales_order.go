package document_repo

import (
	"context"

	"tradeflow/internal/core/id"
	"tradeflow/internal/domain/documents/sales_order"
	"tradeflow/internal/infrastructure/storage/postgres"
)

const (
	salesOrdersTable     = "sales_orders"
	salesOrderLinesTable = "sales_order_lines"
)

// SalesOrderRepo implements sales_order.Repository.
type SalesOrderRepo struct {
	*BaseDocumentRepo[*sales_order.SalesOrder]
	lines lineStore[sales_order.Line]
}

// NewSalesOrderRepo creates a new sales_order repository.
func NewSalesOrderRepo(txManager *postgres.TxManager) *SalesOrderRepo {
	return &SalesOrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			salesOrdersTable,
			postgres.ExtractDBColumns[sales_order.SalesOrder](),
			func() *sales_order.SalesOrder { return new(sales_order.SalesOrder) },
		),
		lines: newLineStore[sales_order.Line](txManager, salesOrderLinesTable),
	}
}

// GetLines retrieves the lines of a sales_order document.
func (r *SalesOrderRepo) GetLines(ctx context.Context, docID id.ID) ([]sales_order.Line, error) {
	return r.lines.get(ctx, docID)
}
