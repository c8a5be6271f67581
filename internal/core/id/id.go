// Package id provides UUIDv7 identifiers for documents, lines and catalog items.
package id

import (
	"strings"

	"github.com/google/uuid"
)

// ID is a type alias for UUID, used across all entities.
type ID = uuid.UUID

// New generates a time-ordered UUIDv7, falling back to a random v4 when the
// clock source fails.
func New() ID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// RandomHex returns n (at most 32) upper-case hex characters of a random
// UUID. Used for generated catalog codes and document number suffixes.
func RandomHex(n int) string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:n])
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// Nil returns zero-value UUID.
func Nil() ID {
	return uuid.Nil
}

// IsNil checks if ID is zero-value.
func IsNil(id ID) bool {
	return id == uuid.Nil
}

// ParseOptional parses s and returns nil for empty or malformed input.
func ParseOptional(s string) *ID {
	if s == "" {
		return nil
	}
	parsed, err := uuid.Parse(s)
	if err != nil || parsed == uuid.Nil {
		return nil
	}
	return &parsed
}
