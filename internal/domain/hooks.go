// Package domain provides shared building blocks for domain services.
package domain

import "context"

// HookEvent represents lifecycle event type.
type HookEvent string

const (
	BeforeApprove HookEvent = "before_approve"
	AfterApprove  HookEvent = "after_approve"
)

// Hook is a function that runs at specific lifecycle points.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry stores lifecycle hooks for an entity type.
type HookRegistry[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{
		hooks: make(map[HookEvent][]Hook[T]),
	}
}

// On registers a hook for the specified event.
func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run executes the hooks for event in registration order and stops at the
// first error.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, entity T) error {
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

// OnBeforeApprove registers a hook that runs inside the approval transaction.
func (r *HookRegistry[T]) OnBeforeApprove(hook Hook[T]) {
	r.On(BeforeApprove, hook)
}

// OnAfterApprove registers a hook that runs once the approval is committed.
func (r *HookRegistry[T]) OnAfterApprove(hook Hook[T]) {
	r.On(AfterApprove, hook)
}

// RunBeforeApprove executes all before-approve hooks.
func (r *HookRegistry[T]) RunBeforeApprove(ctx context.Context, entity T) error {
	return r.Run(ctx, BeforeApprove, entity)
}

// RunAfterApprove executes all after-approve hooks.
func (r *HookRegistry[T]) RunAfterApprove(ctx context.Context, entity T) error {
	return r.Run(ctx, AfterApprove, entity)
}
