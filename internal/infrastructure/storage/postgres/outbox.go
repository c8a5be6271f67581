package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"tradeflow/internal/core/id"
	"tradeflow/internal/domain/events"
	"tradeflow/pkg/logger"
)

const (
	outboxTable    = "sys_outbox"
	outboxDLQTable = "sys_outbox_dlq"

	// maxOutboxRetries is the number of failed deliveries before a message is
	// marked failed and becomes eligible for the dead letter queue.
	maxOutboxRetries = 5
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxMessage represents a message in the transactional outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   id.ID        `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

// OutboxPublisher writes events to the outbox table.
type OutboxPublisher struct {
	txManager *TxManager
}

var _ events.Publisher = (*OutboxPublisher)(nil)

// NewOutboxPublisher creates a new outbox publisher.
func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager}
}

// Publish writes an event to the outbox within the current transaction.
// It must be called inside a transaction so the event commits with the document.
func (p *OutboxPublisher) Publish(ctx context.Context, event events.Event) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}

	sql, args, err := outboxInsert(event, time.Now().UTC())
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

func outboxInsert(event events.Event, now time.Time) (string, []any, error) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return "", nil, fmt.Errorf("marshal event payload: %w", err)
	}
	sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Insert(outboxTable).
		Columns("id", "aggregate_type", "aggregate_id", "event_type", "payload", "status", "created_at").
		Values(id.New(), event.AggregateType, event.AggregateID, event.Type, payload, OutboxStatusPending, now).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build outbox insert: %w", err)
	}
	return sql, args, nil
}

// OutboxHandler delivers outbox messages.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxHandlerFunc adapts a function to OutboxHandler.
type OutboxHandlerFunc func(ctx context.Context, msg *OutboxMessage) error

// Handle implements OutboxHandler.
func (f OutboxHandlerFunc) Handle(ctx context.Context, msg *OutboxMessage) error { return f(ctx, msg) }

// OutboxRelay reads pending messages and hands them to a handler.
// Used by the background worker.
type OutboxRelay struct {
	txManager *TxManager
	batchSize int
	handler   OutboxHandler
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(txManager *TxManager, batchSize int, handler OutboxHandler) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{txManager: txManager, batchSize: batchSize, handler: handler}
}

// ProcessBatch locks a batch of due messages, delivers them and records the
// outcome in the same transaction. It returns the number delivered.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	processed := 0
	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
			Select("id", "aggregate_type", "aggregate_id", "event_type", "payload", "status",
				"retry_count", "last_error", "next_retry_at", "created_at", "published_at").
			From(outboxTable).
			Where(squirrel.Eq{"status": OutboxStatusPending}).
			Where("(next_retry_at IS NULL OR next_retry_at <= NOW())").
			OrderBy("created_at").
			Limit(uint64(r.batchSize)).
			Suffix("FOR UPDATE SKIP LOCKED").
			ToSql()
		if err != nil {
			return fmt.Errorf("build outbox fetch: %w", err)
		}

		var messages []*OutboxMessage
		if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &messages, sql, args...); err != nil {
			return fmt.Errorf("fetch outbox messages: %w", err)
		}

		batch := &pgx.Batch{}
		for _, msg := range messages {
			if err := r.handler.Handle(ctx, msg); err != nil {
				logger.Warn(ctx, "outbox delivery failed",
					"message_id", msg.ID,
					"event_type", msg.EventType,
					"retry", msg.RetryCount+1,
					"error", err)
				queueFailure(batch, msg, err)
				continue
			}
			batch.Queue(`UPDATE `+outboxTable+` SET status = $1, published_at = NOW() WHERE id = $2`,
				OutboxStatusPublished, msg.ID)
			processed++
		}
		if batch.Len() == 0 {
			return nil
		}

		results := r.txManager.GetTx(ctx).SendBatch(ctx, batch)
		defer results.Close()
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("update outbox message: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return processed, nil
}

// queueFailure schedules a retry with linear backoff, or marks the message
// failed once retries are exhausted.
func queueFailure(batch *pgx.Batch, msg *OutboxMessage, cause error) {
	status := OutboxStatusPending
	if msg.RetryCount+1 >= maxOutboxRetries {
		status = OutboxStatusFailed
	}
	nextRetry := time.Now().UTC().Add(time.Duration(msg.RetryCount+1) * time.Minute)
	batch.Queue(`UPDATE `+outboxTable+`
		SET retry_count = retry_count + 1, last_error = $1, next_retry_at = $2, status = $3
		WHERE id = $4`,
		cause.Error(), nextRetry, status, msg.ID)
}

// MoveToDLQ moves failed messages to the dead letter queue.
func (r *OutboxRelay) MoveToDLQ(ctx context.Context) (int64, error) {
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		WITH moved AS (
			DELETE FROM `+outboxTable+`
			WHERE status = $1
			RETURNING *
		)
		INSERT INTO `+outboxDLQTable+`
		SELECT *, NOW() AS failed_at, last_error AS failure_reason FROM moved
	`, OutboxStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("move to DLQ: %w", err)
	}
	return result.RowsAffected(), nil
}
