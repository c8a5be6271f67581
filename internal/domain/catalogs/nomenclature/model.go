// Package nomenclature provides the catalog of items (products and services)
// and the resolver that maps loose line identifiers onto catalog entries.
package nomenclature

import (
	"context"
	"strings"

	"tradeflow/internal/core/apperror"
	"tradeflow/internal/core/entity"
	"tradeflow/internal/core/id"
)

// AutoCodePrefix marks items created by the resolver.
const AutoCodePrefix = "AUTO-"

// DefaultDescription is used when no document in the chain describes a line.
const DefaultDescription = "Item"

// Nomenclature is a catalog item. Code holds the supplier's item code and
// Name holds the description. Auto-created items get an AUTO- code and keep
// the supplier code they were created for in SupplierCode.
type Nomenclature struct {
	entity.Catalog

	SupplierCode *string `db:"supplier_code" json:"supplierCode,omitempty"`
	Barcode      *string `db:"barcode" json:"barcode,omitempty"`
	Category     string  `db:"category" json:"category,omitempty"`
	Unit         string  `db:"unit" json:"unit,omitempty"`

	// SupplierID is the default supplier of the item.
	SupplierID *id.ID `db:"supplier_id" json:"supplierId,omitempty"`

	// AutoCreated is set for items synthesised during document derivation.
	AutoCreated bool `db:"auto_created" json:"autoCreated"`
}

// NewAutoCreated builds a catalog entry from an unresolved candidate.
func NewAutoCreated(code string, c Candidate) *Nomenclature {
	name := strings.TrimSpace(c.Description)
	if name == "" {
		name = DefaultDescription
	}
	item := &Nomenclature{
		Catalog:     entity.NewCatalog(code, name),
		Category:    c.Category,
		Unit:        c.Unit,
		SupplierID:  c.SupplierID,
		AutoCreated: true,
	}
	if sc := strings.TrimSpace(c.SupplierCode); sc != "" {
		item.SupplierCode = &sc
	}
	if b := strings.TrimSpace(c.Barcode); b != "" {
		item.Barcode = &b
	}
	return item
}

// Validate implements entity.Validatable.
func (n *Nomenclature) Validate(ctx context.Context) error {
	if err := n.Catalog.Validate(ctx); err != nil {
		return err
	}
	if n.SupplierCode != nil && strings.TrimSpace(*n.SupplierCode) == "" {
		return apperror.NewValidation("supplier code must not be blank").
			WithDetail("field", "supplier_code")
	}
	if n.Barcode != nil && strings.TrimSpace(*n.Barcode) == "" {
		return apperror.NewValidation("barcode must not be blank").
			WithDetail("field", "barcode")
	}
	return nil
}
