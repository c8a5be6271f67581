package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tradeflow/internal/core/apperror"
	appctx "tradeflow/internal/core/context"
)

// RequirePermission gates a route on one permission, e.g.
// "derivation:supplier_lpo". Scoped wildcards such as "derivation:*" and the
// admin flag are honoured by UserContext.HasPermission.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		user := appctx.GetUser(ctx)
		if user == nil {
			abortUnauthorized(c, "authentication required")
			return
		}

		granted := user.HasPermission(permission)
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("auth.permission", permission),
			attribute.Bool("auth.granted", granted),
		)
		if !granted {
			_ = c.Error(
				apperror.NewForbidden("insufficient permissions").
					WithDetail("required_permission", permission),
			)
			c.Abort()
			return
		}

		c.Set("permission", permission)
		c.Next()
	}
}
