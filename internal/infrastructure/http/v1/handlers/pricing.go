package handlers

import (
	"github.com/gin-gonic/gin"

	"tradeflow/internal/infrastructure/http/v1/dto"
)

// PricingHandler prices ad-hoc lines.
type PricingHandler struct {
	*BaseHandler
}

// NewPricingHandler creates a new pricing handler.
func NewPricingHandler(base *BaseHandler) *PricingHandler {
	return &PricingHandler{BaseHandler: base}
}

// Quote computes line amounts and totals.
// POST /api/v1/pricing/quote
func (h *PricingHandler) Quote(c *gin.Context) {
	var req dto.PricingQuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.OK(c, req.Quote())
}
