package ctxmanage

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TraceIDHeader is echoed back on every response so clients can
	// correlate their requests with server logs.
	TraceIDHeader = "X-Trace-Id"

	traceIDKey = "trace-id"
)

// SetTraceIdOfRequest stores the trace id for the lifetime of the request.
// The logging middleware calls this once, before any handler runs.
func SetTraceIdOfRequest(c *gin.Context, traceId string) {
	c.Set(traceIDKey, traceId)
}

// GetTraceIdOfRequest returns the trace id assigned to the request,
// generating one on the spot if the middleware never ran (tests mostly).
func GetTraceIdOfRequest(c *gin.Context) string {
	if v, ok := c.Get(traceIDKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return uuid.NewString()
}
