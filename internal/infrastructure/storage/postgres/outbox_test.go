package postgres

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/core/id"
	"tradeflow/internal/domain/events"
)

func TestOutboxInsert(t *testing.T) {
	aggregate := id.New()
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	sql, args, err := outboxInsert(events.Event{
		AggregateType: "sales_invoice",
		AggregateID:   aggregate,
		Type:          events.InvoiceDerived,
		Payload:       map[string]any{"number": "INV-1"},
	}, now)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "INSERT INTO sys_outbox"))
	assert.Contains(t, sql, "$7")
	require.Len(t, args, 7)
	assert.Equal(t, "sales_invoice", args[1])
	assert.Equal(t, aggregate, args[2])
	assert.Equal(t, events.InvoiceDerived, args[3])
	assert.JSONEq(t, `{"number":"INV-1"}`, string(args[4].([]byte)))
	assert.Equal(t, OutboxStatusPending, args[5])
	assert.Equal(t, now, args[6])
}

func TestOutboxInsert_UnencodablePayload(t *testing.T) {
	_, _, err := outboxInsert(events.Event{Payload: make(chan int)}, time.Now())
	assert.ErrorContains(t, err, "marshal event payload")
}

func TestQueueFailure(t *testing.T) {
	tests := []struct {
		retries int
		want    OutboxStatus
	}{
		{0, OutboxStatusPending},
		{3, OutboxStatusPending},
		{4, OutboxStatusFailed},
	}
	for _, tt := range tests {
		batch := &pgx.Batch{}
		queueFailure(batch, &OutboxMessage{ID: id.New(), RetryCount: tt.retries}, errors.New("broker down"))

		require.Equal(t, 1, batch.Len())
		q := batch.QueuedQueries[0]
		assert.Equal(t, "broker down", q.Arguments[0])
		assert.Equal(t, tt.want, q.Arguments[2])
	}
}
