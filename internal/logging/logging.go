// Package logging provides the request-scoped structured logger that
// spec's ambient design requires: every operation carries its logger
// on the context rather than reading a package-global logger.
package logging

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// New builds the base logrus logger used to seed request-scoped
// entries; callers configure level/formatter once at startup.
func New() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger
}

// WithLogger attaches a logger entry to ctx for downstream retrieval.
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}

// From returns the request-scoped logger, falling back to a bare
// entry on the standard logger if none was attached.
func From(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok && entry != nil {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Middleware stamps every request with a request id and a logger
// entry carrying it, so every downstream From(ctx) call logs with
// the same correlation field.
func Middleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		entry := logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
		})
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), entry))
		c.Next()
	}
}
