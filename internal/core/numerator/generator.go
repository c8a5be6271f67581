// Package numerator provides domain contracts for document auto-numbering.
// Implementations live in infrastructure layer.
package numerator

import (
	"context"
)

// Generator issues human-readable document numbers.
//
// Pattern: PREFIX-YYYYMMDD-XXXXXX (e.g., INV-20261019-7F3A9C). Collisions get a
// zero-padded counter suffix; when the counter is exhausted a timestamp suffix
// is used. Next never fails.
type Generator interface {
	Next(ctx context.Context, cfg Config) string
}
