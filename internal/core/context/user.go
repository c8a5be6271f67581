// Package context provides request-scoped values extraction.
package context

import (
	"context"
	"strings"

	"tradeflow/internal/core/id"
)

// UserContext contains authenticated user information.
type UserContext struct {
	UserID      string
	Email       string
	Roles       []string
	Permissions []string
	IsAdmin     bool
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// ActorID returns the acting user as a document creator reference,
// or nil when the user is anonymous or its id is not a UUID.
func ActorID(ctx context.Context) *id.ID {
	return id.ParseOptional(GetUserID(ctx))
}

// HasPermission reports whether the user may perform permission. Admins may
// do everything. A held permission ending in ":*" grants every permission
// under that scope, so "derivation:*" covers "derivation:supplier_lpo";
// "*" alone grants everything.
func (u *UserContext) HasPermission(permission string) bool {
	if u == nil {
		return false
	}
	if u.IsAdmin {
		return true
	}
	for _, held := range u.Permissions {
		if held == permission || held == "*" {
			return true
		}
		if scope, ok := strings.CutSuffix(held, "*"); ok && strings.HasSuffix(scope, ":") &&
			strings.HasPrefix(permission, scope) {
			return true
		}
	}
	return false
}
