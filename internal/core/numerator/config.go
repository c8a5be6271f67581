// Package numerator provides domain contracts for document auto-numbering.
package numerator

// Document number prefixes.
const (
	PrefixInvoice         = "INV"
	PrefixPurchaseInvoice = "PINV"
	PrefixSupplierInvoice = "SINV"
	PrefixSupplierLPO     = "LPO"
)

// DefaultMaxAttempts bounds the counter suffix (-001 .. -999).
const DefaultMaxAttempts = 999

// Config describes where a number must be unique.
type Config struct {
	// Prefix added to all numbers (e.g., "INV", "LPO")
	Prefix string

	// Table and Column are probed for uniqueness before a number is issued.
	Table  string
	Column string
}

// DefaultConfig returns a config probing the "number" column of table.
func DefaultConfig(prefix, table string) Config {
	return Config{
		Prefix: prefix,
		Table:  table,
		Column: "number",
	}
}
