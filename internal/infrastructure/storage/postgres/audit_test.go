package postgres

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_PackCompressesAboveThreshold(t *testing.T) {
	log, err := NewAuditLog(nil, 64)
	require.NoError(t, err)

	small := []byte(`{"number":"INV-1"}`)
	var row AuditRow
	log.pack(&row, small)
	assert.Equal(t, CompressionNone, row.CompressionAlgo)
	assert.JSONEq(t, string(small), string(row.Changes))
	assert.Nil(t, row.ChangesCompressed)

	big, err := json.Marshal(map[string]string{"comment": strings.Repeat("derived ", 100)})
	require.NoError(t, err)
	row = AuditRow{}
	log.pack(&row, big)
	assert.Equal(t, CompressionZstd, row.CompressionAlgo)
	assert.Nil(t, row.Changes)
	assert.Less(t, len(row.ChangesCompressed), len(big))

	require.NoError(t, log.unpack(&row))
	assert.JSONEq(t, string(big), string(row.Changes))
}

func TestNewAuditLog_DefaultThreshold(t *testing.T) {
	log, err := NewAuditLog(nil, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultCompressThreshold, log.compressThreshold)
}
