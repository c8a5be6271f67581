package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/core/apperror"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr string
	}{
		{"bearer", "Bearer abc.def", "abc.def", ""},
		{"case insensitive scheme", "bearer abc", "abc", ""},
		{"missing", "", "", "missing authorization header"},
		{"basic scheme", "Basic dXNlcg==", "", "invalid authorization header format"},
		{"no token", "Bearer ", "", "invalid authorization header format"},
		{"no separator", "Bearerabc", "", "invalid authorization header format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bearerToken(tt.header)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
			assert.Equal(t, tt.wantErr, appErr.Message)
		})
	}
}
