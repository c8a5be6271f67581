package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Steel Pipe 2\" x 6m ", "steel pipe 2 x 6m"},
		{"STEEL-PIPE, 2\"", "steel pipe 2"},
		{"", ""},
		{"...", ""},
		{"Valve\t\tDN50", "valve dn50"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.in))
		})
	}
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", FirstNonEmpty("", "  ", " b ", "c"))
	assert.Equal(t, "", FirstNonEmpty("", " "))
}
