package dto

import (
	"tradeflow/internal/domain/derivation"
	"tradeflow/internal/domain/documents/supplier_lpo"
)

// --- Request DTOs ---

// DeliveryInvoiceRequest selects the delivery lines to invoice. An empty
// list invoices every line.
type DeliveryInvoiceRequest struct {
	LineIDs []string `json:"lineIds,omitempty"`
}

// ToDomain converts the request for delivery deliveryID.
func (r *DeliveryInvoiceRequest) ToDomain(deliveryID string) (derivation.DeliveryInvoiceRequest, error) {
	docID, err := ParseID("id", deliveryID)
	if err != nil {
		return derivation.DeliveryInvoiceRequest{}, err
	}
	lineIDs, err := ParseIDs("lineIds", r.LineIDs)
	if err != nil {
		return derivation.DeliveryInvoiceRequest{}, err
	}
	return derivation.DeliveryInvoiceRequest{DeliveryID: docID, LineIDs: lineIDs}, nil
}

// SupplierLPORequest represents a request to derive supplier LPOs.
type SupplierLPORequest struct {
	SourceType string   `json:"sourceType" binding:"required,oneof=sales_orders supplier_quotes"`
	SourceIDs  []string `json:"sourceIds" binding:"required,min=1"`
	GroupBy    string   `json:"groupBy,omitempty" binding:"omitempty,oneof=supplier none"`
	SupplierID string   `json:"supplierId,omitempty"`
}

// ToDomain converts the request to the derivation input.
func (r *SupplierLPORequest) ToDomain() (derivation.LPORequest, error) {
	sourceIDs, err := ParseIDs("sourceIds", r.SourceIDs)
	if err != nil {
		return derivation.LPORequest{}, err
	}
	supplierID, err := ParseOptionalID("supplierId", r.SupplierID)
	if err != nil {
		return derivation.LPORequest{}, err
	}
	return derivation.LPORequest{
		SourceType: supplier_lpo.SourceType(r.SourceType),
		SourceIDs:  sourceIDs,
		GroupBy:    supplier_lpo.GroupBy(r.GroupBy),
		SupplierID: supplierID,
	}, nil
}
