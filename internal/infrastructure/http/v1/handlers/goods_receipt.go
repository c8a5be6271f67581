package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"tradeflow/internal/core/id"
	"tradeflow/internal/domain/documents/goods_receipt"
	"tradeflow/internal/infrastructure/http/v1/dto"
)

// GoodsReceiptService reads and approves goods receipts.
type GoodsReceiptService interface {
	GetByID(ctx context.Context, docID id.ID) (*goods_receipt.GoodsReceipt, error)
	Approve(ctx context.Context, docID id.ID) (*goods_receipt.GoodsReceipt, error)
}

// GoodsReceiptHandler handles goods receipt requests.
type GoodsReceiptHandler struct {
	*BaseHandler
	service GoodsReceiptService
}

// NewGoodsReceiptHandler creates a new goods receipt handler.
func NewGoodsReceiptHandler(base *BaseHandler, service GoodsReceiptService) *GoodsReceiptHandler {
	return &GoodsReceiptHandler{BaseHandler: base, service: service}
}

// Get returns a receipt with its lines.
// GET /api/v1/goods-receipts/:id
func (h *GoodsReceiptHandler) Get(c *gin.Context) {
	docID, err := dto.ParseID("id", c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// Approve approves a receipt; the approval hooks then derive its purchase
// invoice.
// POST /api/v1/goods-receipts/:id/approve
func (h *GoodsReceiptHandler) Approve(c *gin.Context) {
	docID, err := dto.ParseID("id", c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.Approve(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}
