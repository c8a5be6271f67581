package entity

import (
	"context"
	"time"

	"tradeflow/internal/core/apperror"
)

// DocumentStatus is the lifecycle state of a business document.
type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "draft"
	StatusPending   DocumentStatus = "pending"
	StatusApproved  DocumentStatus = "approved"
	StatusCancelled DocumentStatus = "cancelled"
)

// Document is the base type for business transactions.
// Examples: Delivery, SalesOrder, Invoice, GoodsReceipt.
type Document struct {
	BaseDocument

	// Number is the human-readable document number (unique per document type)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	Status DocumentStatus `db:"status" json:"status"`

	// Currency is an ISO 4217 code; it selects the rounding scale
	Currency string `db:"currency" json:"currency"`

	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a draft Document dated now.
func NewDocument(currency string) Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
		Status:       StatusDraft,
		Currency:     currency,
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	if d.Currency == "" {
		return apperror.NewValidation("currency is required").
			WithDetail("field", "currency")
	}
	return nil
}

// IsApproved reports whether the document reached the approved state.
func (d *Document) IsApproved() bool {
	return d.Status == StatusApproved
}
