package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ruralsys/farm-telemetry/internal/logging"
	"github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with an id, echoed in the response header and
// attached to the request-scoped logger.
func RequestID(logger *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		ctx := logging.WithContext(c.Request.Context(), logger.WithField("req-id", id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Timeout bounds the request context. Storage work bound to it is rolled back
// once the deadline passes.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
