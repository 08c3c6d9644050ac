package logger

import "context"

type requestIDKey struct{}

// WithRequestID binds a request ID to ctx so handlers and services can tag
// their log lines with it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID bound to ctx, or "" outside of a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
