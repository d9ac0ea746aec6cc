// Package requestcontext carries per-request metadata through context.Context.
package requestcontext

import "context"

type ctxKey int

const (
	keyRequestID ctxKey = iota
	keyClient
)

// WithRequestID stores the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// RequestID returns the request ID or "".
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(keyRequestID).(string)
	return v
}

// WithClient stores a human-readable description of the UI client
// ("Chrome on Linux") that sent the request.
func WithClient(ctx context.Context, client string) context.Context {
	return context.WithValue(ctx, keyClient, client)
}

// Client returns the client description or "".
func Client(ctx context.Context) string {
	v, _ := ctx.Value(keyClient).(string)
	return v
}
