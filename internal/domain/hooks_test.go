package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookRegistry_RunsInOrderAndStops(t *testing.T) {
	r := NewHookRegistry[*[]string]()
	boom := errors.New("boom")

	r.OnAfterApprove(func(_ context.Context, log *[]string) error {
		*log = append(*log, "first")
		return nil
	})
	r.OnAfterApprove(func(_ context.Context, log *[]string) error {
		*log = append(*log, "second")
		return boom
	})
	r.OnAfterApprove(func(_ context.Context, log *[]string) error {
		*log = append(*log, "third")
		return nil
	})

	var log []string
	err := r.RunAfterApprove(context.Background(), &log)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, log)
}

func TestHookRegistry_EventsAreIsolated(t *testing.T) {
	r := NewHookRegistry[*int]()
	r.OnBeforeApprove(func(_ context.Context, n *int) error {
		*n++
		return nil
	})

	n := 0
	require.NoError(t, r.RunAfterApprove(context.Background(), &n))
	assert.Equal(t, 0, n)

	require.NoError(t, r.RunBeforeApprove(context.Background(), &n))
	assert.Equal(t, 1, n)
}
