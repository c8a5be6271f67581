// Package retry provides a bounded retry combinator.
package retry

import (
	"context"
	"errors"
)

// ErrExhausted is returned when every attempt failed with a retryable error.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy bounds the number of attempts and decides which errors are retryable.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first one.
	MaxAttempts int

	// Retryable reports whether err warrants another attempt.
	// Nil means every error is retryable.
	Retryable func(err error) bool
}

// Do calls fn until it succeeds, returns a non-retryable error, the context is
// cancelled or MaxAttempts is reached. attempt is zero-based.
//
// When attempts run out the last error is returned joined with ErrExhausted.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	max := p.MaxAttempts
	if max < 1 {
		max = 1
	}

	var lastErr error
	for attempt := 0; attempt < max; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := fn(ctx, attempt)
		if err == nil {
			return v, nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, errors.Join(ErrExhausted, lastErr)
}
