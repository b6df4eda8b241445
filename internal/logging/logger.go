package logging

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// New builds the service logger. Unknown levels fall back to info.
func New(level, format string) *logrus.Entry {
	logger := logrus.New()
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	entry := logger.WithField("service", "farm-telemetry")

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		entry.Warnf("invalid log level '%s', defaulting to info", level)
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	return entry
}

// Discard returns a logger that writes nowhere. Used by tests and the seeder.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// WithContext stores a request-scoped logger in ctx.
func WithContext(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request-scoped logger, or fallback when there is none.
func FromContext(ctx context.Context, fallback *logrus.Entry) *logrus.Entry {
	if l, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok && l != nil {
		return l
	}
	return fallback
}
