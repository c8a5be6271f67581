package context

import (
	"context"

	"tradeflow/internal/core/id"
)

// TraceContext carries request correlation identifiers.
type TraceContext struct {
	TraceID   string
	RequestID string
}

// NewTrace builds the correlation identifiers of a request from the values
// the caller supplied. A missing request id is generated; a missing trace id
// falls back to the request id so one derivation reads as one trace.
func NewTrace(requestID, traceID string) *TraceContext {
	if requestID == "" {
		requestID = id.New().String()
	}
	if traceID == "" {
		traceID = requestID
	}
	return &TraceContext{TraceID: traceID, RequestID: requestID}
}

// Fields returns the identifiers as logger key-value pairs.
func (t *TraceContext) Fields() []any {
	if t == nil {
		return nil
	}
	return []any{"trace_id", t.TraceID, "request_id", t.RequestID}
}

type traceContextKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns TraceContext from context.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// GetRequestID returns request ID from context or empty string.
func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}
