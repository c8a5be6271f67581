// Package middleware provides HTTP middleware components.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"tradeflow/internal/core/apperror"
	appctx "tradeflow/internal/core/context"
	"tradeflow/pkg/logger"
)

// Recovery turns a handler panic into a 500 INTERNAL_ERROR response. It is
// the outermost middleware, so it renders the error itself: the deferred
// rendering of ErrorHandler never runs on a panicking stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}

			ctx := c.Request.Context()
			logger.Error(ctx, "panic recovered",
				"panic", r,
				"route", c.FullPath(),
				"stack", string(debug.Stack()),
			)

			_ = c.Error(
				apperror.NewInternal(fmt.Errorf("panic: %v", r)).
					WithDetail("request_id", appctx.GetRequestID(ctx)),
			)
			c.Abort()
			RenderError(c)
		}()
		c.Next()
	}
}
