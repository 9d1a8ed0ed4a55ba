package logkey

// Shared keys for structured log attributes so searches stay consistent
// across handlers and stores.
const (
	TraceID = "trace_id"
	ERROR   = "error"
	UserID  = "user_id"
	OrderID = "order_id"
)
