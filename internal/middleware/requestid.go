package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "requestID"
)

// WithRequestID echoes the caller's X-Request-Id, or assigns a fresh uuid when
// the header is absent. The id is set on the response before the handler runs
// so error paths carry it too.
func WithRequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// RequestID returns the correlation id assigned by WithRequestID, empty when
// the middleware did not run.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
