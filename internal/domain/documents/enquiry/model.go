// Package enquiry provides the customer Enquiry (request for quotation).
package enquiry

import (
	"tradeflow/internal/core/id"
	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/documents"
)

// Line is a requested item. Enquiry lines are the last source of a
// description when later documents leave it blank.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	documents.ItemRef

	Quantity types.Money `db:"quantity" json:"quantity"`
}
