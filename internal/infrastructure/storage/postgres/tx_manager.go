package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tradeflow/internal/core/tx"
	"tradeflow/pkg/logger"
)

var tracer = otel.Tracer("tradeflow/tx")

var _ tx.Manager = (*TxManager)(nil)

// DefaultStatementTimeout bounds every statement of a transaction.
const DefaultStatementTimeout = 30 * time.Second

// TxManager runs units of work on the pool. The active transaction travels in
// the context, so repositories pick it up through GetQuerier.
//
// A derivation opens one transaction; nested RunInTransaction calls join it,
// RunInSavepoint calls open a savepoint inside it.
type TxManager struct {
	pool             *pgxpool.Pool
	statementTimeout time.Duration
}

// TxManagerOption configures a TxManager.
type TxManagerOption func(*TxManager)

// WithStatementTimeout overrides DefaultStatementTimeout. Zero disables it.
func WithStatementTimeout(d time.Duration) TxManagerOption {
	return func(m *TxManager) { m.statementTimeout = d }
}

// NewTxManager creates a transaction manager over pool.
func NewTxManager(pool *Pool, opts ...TxManagerOption) *TxManager {
	m := &TxManager{pool: pool.Pool, statementTimeout: DefaultStatementTimeout}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// txKey is the context key for active transaction.
type txKey struct{}

// Tx is the transaction carried in the context.
type Tx struct {
	pgx.Tx
	savepoints int
}

// RunInTransaction executes fn within a transaction, joining the one in ctx
// when present.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if existing := m.GetTx(ctx); existing != nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "transaction")
	defer span.End()

	err := m.runTopLevel(ctx, fn)
	endSpan(span, err)
	return err
}

// RunInSavepoint executes fn inside a savepoint of the transaction in ctx.
// A failed statement rolls back to the savepoint and leaves the outer
// transaction usable. Without a transaction it starts one.
func (m *TxManager) RunInSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	existing := m.GetTx(ctx)
	if existing == nil {
		return m.RunInTransaction(ctx, fn)
	}

	existing.savepoints++
	name := fmt.Sprintf("sp_%d", existing.savepoints)

	ctx, span := tracer.Start(ctx, "savepoint",
		trace.WithAttributes(attribute.String("tx.savepoint", name)))
	defer span.End()

	err := m.runSavepoint(ctx, existing, name, fn)
	endSpan(span, err)
	return err
}

func (m *TxManager) runTopLevel(ctx context.Context, fn func(ctx context.Context) error) error {
	pgTx, err := m.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if m.statementTimeout > 0 {
		if _, err := pgTx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", m.statementTimeout.Milliseconds())); err != nil {
			rollback(ctx, pgTx, err)
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}

	if err := fn(context.WithValue(ctx, txKey{}, &Tx{Tx: pgTx})); err != nil {
		rollback(ctx, pgTx, err)
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", MapError(err))
	}
	return nil
}

func (m *TxManager) runSavepoint(ctx context.Context, t *Tx, name string, fn func(ctx context.Context) error) error {
	if _, err := t.Exec(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}

	if err := fn(ctx); err != nil {
		if _, rbErr := t.Exec(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			logger.Error(ctx, "rollback to savepoint failed", "savepoint", name, "error", rbErr)
		}
		return err
	}

	if _, err := t.Exec(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// rollback uses a detached context so a cancelled request still releases
// the connection cleanly.
func rollback(ctx context.Context, pgTx pgx.Tx, cause error) {
	if err := pgTx.Rollback(context.WithoutCancel(ctx)); err != nil {
		logger.Error(ctx, "rollback failed", "error", err, "original_error", cause)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// GetTx returns the current transaction from context, or nil if none.
func (m *TxManager) GetTx(ctx context.Context) *Tx {
	if t, ok := ctx.Value(txKey{}).(*Tx); ok {
		return t
	}
	return nil
}

// Querier is the subset of pgx shared by pools and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetQuerier returns the transaction in ctx, or the pool outside one.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if t := m.GetTx(ctx); t != nil {
		return t.Tx
	}
	return m.pool
}
