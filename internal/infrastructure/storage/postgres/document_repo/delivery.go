package document_repo

import (
	"context"

	"tradeflow/internal/core/id"
	"tradeflow/internal/domain/documents/delivery"
	"tradeflow/internal/infrastructure/storage/postgres"
)

const (
	deliveriesTable    = "deliveries"
	deliveryLinesTable = "delivery_lines"
)

// DeliveryRepo implements delivery.Repository.
type DeliveryRepo struct {
	*BaseDocumentRepo[*delivery.Delivery]
	lines lineStore[delivery.Line]
}

// NewDeliveryRepo creates a new delivery repository.
func NewDeliveryRepo(txManager *postgres.TxManager) *DeliveryRepo {
	return &DeliveryRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			deliveriesTable,
			postgres.ExtractDBColumns[delivery.Delivery](),
			func() *delivery.Delivery { return new(delivery.Delivery) },
		),
		lines: newLineStore[delivery.Line](txManager, deliveryLinesTable),
	}
}

// GetLines retrieves the lines of a delivery document.
func (r *DeliveryRepo) GetLines(ctx context.Context, docID id.ID) ([]delivery.Line, error) {
	return r.lines.get(ctx, docID)
}
