// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"tradeflow/internal/core/apperror"
	"tradeflow/internal/core/id"
)

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// --- ID parsing ---

// ParseID parses a UUID field, reporting the field name on failure.
func ParseID(field, raw string) (id.ID, error) {
	v, err := id.Parse(raw)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid id").
			WithDetail("field", field).
			WithDetail("value", raw)
	}
	return v, nil
}

// ParseIDs parses a list of UUIDs.
func ParseIDs(field string, raw []string) ([]id.ID, error) {
	out := make([]id.ID, 0, len(raw))
	for _, s := range raw {
		v, err := ParseID(field, s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseOptionalID parses an optional UUID; empty input yields nil.
func ParseOptionalID(field, raw string) (*id.ID, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := ParseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
