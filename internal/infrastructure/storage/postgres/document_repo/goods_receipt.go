package document_repo

import (
	"context"

	"tradeflow/internal/core/id"
	"tradeflow/internal/domain/documents/goods_receipt"
	"tradeflow/internal/infrastructure/storage/postgres"
)

const (
	goodsReceiptsTable     = "goods_receipts"
	goodsReceiptLinesTable = "goods_receipt_lines"
)

// GoodsReceiptRepo implements goods_receipt.Repository.
type GoodsReceiptRepo struct {
	*BaseDocumentRepo[*goods_receipt.GoodsReceipt]
	lines lineStore[goods_receipt.Line]
}

// NewGoodsReceiptRepo creates a new goods receipt repository.
func NewGoodsReceiptRepo(txManager *postgres.TxManager) *GoodsReceiptRepo {
	return &GoodsReceiptRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			goodsReceiptsTable,
			postgres.ExtractDBColumns[goods_receipt.GoodsReceipt](),
			func() *goods_receipt.GoodsReceipt { return new(goods_receipt.GoodsReceipt) },
		),
		lines: newLineStore[goods_receipt.Line](txManager, goodsReceiptLinesTable),
	}
}

// GetLines retrieves lines for a goods receipt.
func (r *GoodsReceiptRepo) GetLines(ctx context.Context, docID id.ID) ([]goods_receipt.Line, error) {
	return r.lines.get(ctx, docID)
}

// UpdateStatus persists the approval state. doc.Version has already been
// bumped by the domain, so the stored row must be one version behind.
func (r *GoodsReceiptRepo) UpdateStatus(ctx context.Context, doc *goods_receipt.GoodsReceipt) error {
	return r.updateVersioned(ctx, doc.ID, doc.Version-1, doc.Version, map[string]any{
		"status":      doc.Status,
		"approved_at": doc.ApprovedAt,
		"approved_by": doc.ApprovedBy,
	})
}
