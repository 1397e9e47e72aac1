package logging

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// RequestIDKey is the attribute name loggers use for the request id.
const RequestIDKey = "request_id"

// NewRequestID returns an id of the form req_<32 hex>.
func NewRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// WithRequestID returns ctx carrying id. Every entry logged with the returned
// context is tagged with it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// withRequestID appends the request id attribute to args when ctx has one.
func withRequestID(ctx context.Context, args []any) []any {
	if id := RequestID(ctx); id != "" {
		return append(args, RequestIDKey, id)
	}
	return args
}
