package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"tradeflow/internal/core/apperror"
	"tradeflow/internal/core/id"
	"tradeflow/internal/infrastructure/http/v1/dto"
	"tradeflow/internal/infrastructure/storage/postgres"
)

const maxHistoryLimit = 200

// AuditHistory reads the audit trail of one document.
type AuditHistory interface {
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditRow, error)
}

// AuditHandler serves the audit trail.
type AuditHandler struct {
	*BaseHandler
	history AuditHistory
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, history AuditHistory) *AuditHandler {
	return &AuditHandler{BaseHandler: base, history: history}
}

// History returns the newest audit entries of a document.
// GET /api/v1/documents/:kind/:id/history?limit=50
func (h *AuditHandler) History(c *gin.Context) {
	docID, err := dto.ParseID("id", c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxHistoryLimit {
			h.Error(c, apperror.NewValidation("invalid limit").
				WithDetail("field", "limit").
				WithDetail("value", raw))
			return
		}
	}

	rows, err := h.history.History(c.Request.Context(), c.Param("kind"), docID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	if rows == nil {
		rows = []postgres.AuditRow{}
	}

	h.OK(c, gin.H{"items": rows})
}
