package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
)

// RequestLog writes one structured line per request after it completes.
func RequestLog(log *logger.Logger) gin.HandlerFunc {
	reqLog := log.With("middleware", "RequestLog")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		reqLog.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", RequestID(c),
		)
	}
}
