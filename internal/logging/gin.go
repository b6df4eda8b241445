package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger writes one access-log line per request. Expects the request id
// middleware to have run first so the line carries req-id.
func RequestLogger(logger *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + redactQuery(raw)
		}

		c.Next()

		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		}
		if id, ok := c.Get("request_id"); ok {
			fields["req-id"] = id
		}
		l := logger.WithFields(fields)
		if len(c.Errors) > 0 {
			l = l.WithField("errors", c.Errors.ByType(gin.ErrorTypePrivate).String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			l.Error("request failed")
		case status >= 400:
			l.Warn("request rejected")
		default:
			l.Info("request served")
		}
	}
}
