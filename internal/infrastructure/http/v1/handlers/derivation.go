package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"tradeflow/internal/core/id"
	"tradeflow/internal/domain/derivation"
	"tradeflow/internal/infrastructure/http/v1/dto"
)

// DerivationService derives documents from their upstream chain.
type DerivationService interface {
	InvoiceFromDelivery(ctx context.Context, req derivation.DeliveryInvoiceRequest) (*derivation.InvoiceResult, error)
	PurchaseInvoiceFromReceipt(ctx context.Context, receiptID id.ID) (*derivation.PurchaseInvoiceResult, error)
	SupplierLPOs(ctx context.Context, req derivation.LPORequest) (*derivation.LPOResult, error)
}

// DerivationHandler handles document derivation requests.
type DerivationHandler struct {
	*BaseHandler
	service DerivationService
}

// NewDerivationHandler creates a new derivation handler.
func NewDerivationHandler(base *BaseHandler, service DerivationService) *DerivationHandler {
	return &DerivationHandler{BaseHandler: base, service: service}
}

// InvoiceFromDelivery derives a sales invoice.
// POST /api/v1/deliveries/:id/invoice
func (h *DerivationHandler) InvoiceFromDelivery(c *gin.Context) {
	var req dto.DeliveryInvoiceRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	in, err := req.ToDomain(c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.InvoiceFromDelivery(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, result)
}

// PurchaseInvoiceFromReceipt derives (or returns) the purchase invoice of a
// receipt. Replays answer 200 instead of 201.
// POST /api/v1/goods-receipts/:id/purchase-invoice
func (h *DerivationHandler) PurchaseInvoiceFromReceipt(c *gin.Context) {
	receiptID, err := dto.ParseID("id", c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.PurchaseInvoiceFromReceipt(c.Request.Context(), receiptID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if result.AlreadyDerived {
		h.OK(c, result)
		return
	}
	h.Created(c, result)
}

// SupplierLPOs derives supplier purchase orders.
// POST /api/v1/supplier-lpos
func (h *DerivationHandler) SupplierLPOs(c *gin.Context) {
	var req dto.SupplierLPORequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.SupplierLPOs(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, result)
}
