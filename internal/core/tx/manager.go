// Package tx provides transaction management abstractions.
// Domain services depend on these interfaces; the implementation lives in
// infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// RunInSavepoint executes fn inside a savepoint of the current transaction,
	// so a failing statement can be recovered without aborting the outer unit
	// of work. Without an active transaction it behaves like RunInTransaction.
	RunInSavepoint(ctx context.Context, fn func(ctx context.Context) error) error
}

// Nop runs callbacks directly. Used by unit tests and in-memory stores.
type Nop struct{}

// RunInTransaction implements Manager.
func (Nop) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// RunInSavepoint implements Manager.
func (Nop) RunInSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ Manager = Nop{}
