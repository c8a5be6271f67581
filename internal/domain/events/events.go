// Package events defines domain events published through the transactional outbox.
package events

import (
	"context"

	"tradeflow/internal/core/id"
)

// Event types emitted by the derivation pipelines.
const (
	InvoiceDerived         = "invoice.derived"
	PurchaseInvoiceDerived = "purchase_invoice.derived"
	SupplierLPODerived     = "supplier_lpo.derived"
)

// Event is a domain event addressed to an aggregate.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	Type          string
	Payload       any
}

// Publisher writes events inside the caller's transaction.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops events.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }
