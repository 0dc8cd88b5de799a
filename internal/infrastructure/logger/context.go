package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ctxKey keys the identity values this package stores in a context.
// Unexported so callers go through the With*/Get* helpers.
type ctxKey int

const (
	loggerCtxKey ctxKey = iota
	requestIDCtxKey
	tenantIDCtxKey
	userIDCtxKey
)

// WithContext attaches l to ctx. Downstream layers (tenant scoping,
// the GORM callback) pick it up with FromContext.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, l)
}

// FromContext returns the logger attached to ctx, or a nop logger so
// call sites never need a nil check.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerCtxKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID and returns a logger that tags
// every entry with it.
func WithRequestID(ctx context.Context, l *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, requestIDCtxKey, requestID)
	l = l.With(zap.String("request_id", requestID))
	return WithContext(ctx, l), l
}

// WithTenantID stores the tenant ID and returns a logger that tags
// every entry with it. The tenant scoping layer reads this value back
// to filter queries, so it must be set before any repository call.
func WithTenantID(ctx context.Context, l *zap.Logger, tenantID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, tenantIDCtxKey, tenantID)
	l = l.With(zap.String("tenant_id", tenantID))
	return WithContext(ctx, l), l
}

// WithUserID stores the authenticated user ID and returns a tagged logger.
func WithUserID(ctx context.Context, l *zap.Logger, userID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, userIDCtxKey, userID)
	l = l.With(zap.String("user_id", userID))
	return WithContext(ctx, l), l
}

// GetRequestID returns the request ID stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(requestIDCtxKey).(string)
	return s
}

// GetTenantID returns the tenant ID stored in ctx, or "".
func GetTenantID(ctx context.Context) string {
	s, _ := ctx.Value(tenantIDCtxKey).(string)
	return s
}

// GetUserID returns the user ID stored in ctx, or "".
func GetUserID(ctx context.Context) string {
	s, _ := ctx.Value(userIDCtxKey).(string)
	return s
}

// WithTraceContext tags l with the trace_id and span_id of the active
// span so log lines can be joined to traces. Returns l unchanged when
// ctx carries no valid span.
func WithTraceContext(ctx context.Context, l *zap.Logger) *zap.Logger {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
