// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services read them without
// importing net/http. Tests inject values directly (WithTime in particular
// pins "now" for deterministic detector behavior).
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	requestIDKey   struct{}
	requestTimeKey struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	operatorIDKey  struct{}
)

// WithRequestID injects a correlation ID into a context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID retrieves the correlation ID, or "" when absent.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithTime injects a request-scoped "now" into a context. All operations
// within one request observe the same timestamp.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now retrieves the request-scoped time, falling back to wall-clock time
// when no middleware has run (background jobs, tests without injection).
func Now(ctx context.Context) time.Time {
	if v, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return v
	}
	return time.Now()
}

// WithClientMetadata injects client IP and User-Agent into a context.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// ClientIP retrieves the client IP address, or "" when absent.
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey{}).(string); ok {
		return v
	}
	return ""
}

// UserAgent retrieves the raw User-Agent header, or "" when absent.
func UserAgent(ctx context.Context) string {
	if v, ok := ctx.Value(userAgentKey{}).(string); ok {
		return v
	}
	return ""
}

// WithOperatorID injects the authenticated operator's subject claim.
func WithOperatorID(ctx context.Context, operatorID string) context.Context {
	return context.WithValue(ctx, operatorIDKey{}, operatorID)
}

// OperatorID retrieves the authenticated operator, or "" when absent.
func OperatorID(ctx context.Context) string {
	if v, ok := ctx.Value(operatorIDKey{}).(string); ok {
		return v
	}
	return ""
}
