package middleware

import (
	"log/slog"
	"time"

	"storefront-backend/pkg/ctxmanage"
	"storefront-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Logger assigns a trace id to every request and logs the outcome once the
// handler chain finishes.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := c.Request.Header.Get(ctxmanage.TraceIDHeader)
		if traceId == "" {
			traceId = uuid.NewString()
		}
		ctxmanage.SetTraceIdOfRequest(c, traceId)
		c.Writer.Header().Set(ctxmanage.TraceIDHeader, traceId)

		start := time.Now()
		c.Next()

		slog.Info("request completed",
			slog.String(logkey.TraceID, traceId),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
