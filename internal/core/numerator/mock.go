// Package numerator provides domain contracts for document auto-numbering.
package numerator

import (
	"context"
	"fmt"
	"sync"
)

// MockGenerator is a test implementation of Generator.
// Use in unit tests to avoid database dependencies.
type MockGenerator struct {
	NextFunc func(ctx context.Context, cfg Config) string

	mu    sync.Mutex
	calls int
}

// Next implements Generator.
func (m *MockGenerator) Next(ctx context.Context, cfg Config) string {
	m.mu.Lock()
	m.calls++
	n := m.calls
	m.mu.Unlock()

	if m.NextFunc != nil {
		return m.NextFunc(ctx, cfg)
	}
	// Default: predictable sequential mock number
	return fmt.Sprintf("%s-MOCK-%05d", cfg.Prefix, n)
}

// Calls returns how many numbers were issued.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
