package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContext_HasPermission(t *testing.T) {
	tests := []struct {
		name string
		user *UserContext
		perm string
		want bool
	}{
		{"exact match", &UserContext{Permissions: []string{"derivation:supplier_lpo"}}, "derivation:supplier_lpo", true},
		{"other permission", &UserContext{Permissions: []string{"derivation:supplier_lpo"}}, "derivation:sales_invoice", false},
		{"scope wildcard", &UserContext{Permissions: []string{"derivation:*"}}, "derivation:purchase_invoice", true},
		{"scope wildcard stays in scope", &UserContext{Permissions: []string{"derivation:*"}}, "pricing:quote", false},
		{"nested scope", &UserContext{Permissions: []string{"document:*"}}, "document:goods_receipt:approve", true},
		{"bare prefix is not a scope", &UserContext{Permissions: []string{"deriv*"}}, "derivation:supplier_lpo", false},
		{"global wildcard", &UserContext{Permissions: []string{"*"}}, "audit:read", true},
		{"admin", &UserContext{IsAdmin: true}, "audit:read", true},
		{"nil user", nil, "audit:read", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.HasPermission(tt.perm))
		})
	}
}

func TestNewTrace(t *testing.T) {
	tr := NewTrace("req-1", "")
	assert.Equal(t, "req-1", tr.RequestID)
	assert.Equal(t, "req-1", tr.TraceID)

	tr = NewTrace("req-1", "trace-9")
	assert.Equal(t, "trace-9", tr.TraceID)

	tr = NewTrace("", "")
	require.NotEmpty(t, tr.RequestID)
	assert.Equal(t, tr.RequestID, tr.TraceID)
	assert.Equal(t, []any{"trace_id", tr.TraceID, "request_id", tr.RequestID}, tr.Fields())
}

func TestGetRequestID(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))

	ctx := WithTrace(context.Background(), NewTrace("req-7", ""))
	assert.Equal(t, "req-7", GetRequestID(ctx))
	assert.Nil(t, (*TraceContext)(nil).Fields())
}
