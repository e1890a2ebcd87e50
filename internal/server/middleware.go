package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"docchat/internal/logger"
)

// requestLogger attaches a request-scoped logger to the context and logs
// each completed request.
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLog := log.With(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
		)
		c.Request = c.Request.WithContext(logger.ContextWithLogger(c.Request.Context(), reqLog))

		c.Next()

		reqLog.Info("request completed",
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"body_size", c.Writer.Size(),
		)
	}
}
