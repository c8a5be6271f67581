// Package audit defines the audit trail written alongside document changes.
package audit

import (
	"context"

	appctx "tradeflow/internal/core/context"
	"tradeflow/internal/core/entity"
	"tradeflow/internal/core/id"
)

// Action names an audited operation.
type Action string

const (
	ActionDerive  Action = "derive"
	ActionApprove Action = "approve"
)

// Entry is one audit record.
type Entry struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	Changes    map[string]any
}

// Recorder persists audit entries in the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// NopRecorder discards entries.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, Entry) error { return nil }

// EnrichCreatedBy sets CreatedBy from the acting user when it is still empty.
// Unknown or malformed user ids leave the field nil.
func EnrichCreatedBy(ctx context.Context, doc *entity.BaseDocument) {
	if doc.CreatedBy != nil {
		return
	}
	doc.CreatedBy = appctx.ActorID(ctx)
}
