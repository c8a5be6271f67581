package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"tradeflow/internal/infrastructure/metrics"
	"tradeflow/pkg/logger"
)

// Logger middleware logs HTTP requests with timing and status, and feeds
// the request metrics when m is non-nil.
func Logger(log *logger.Logger, m *metrics.HTTP) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// logger.FromContext picks up trace and user fields per call.
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), log))

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if m != nil {
			m.Observe(c.FullPath(), c.Request.Method, status, latency)
		}

		log.WithContext(c.Request.Context()).Infow("http request",
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"error", c.Errors.ByType(gin.ErrorTypePrivate).String(),
		)
	}
}
