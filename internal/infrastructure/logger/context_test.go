package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestWithContext_RoundTrip(t *testing.T) {
	l := zap.NewNop()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestFromContext_MissingYieldsNop(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.NotPanics(t, func() { l.Info("no logger attached") })
}

func TestWithTenantID_TagsEntries(t *testing.T) {
	base, logs := observedLogger()

	ctx, l := WithTenantID(context.Background(), base, "warehouse-north")
	l.Info("asset lookup")

	assert.Equal(t, "warehouse-north", GetTenantID(ctx))
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "warehouse-north", entries[0].ContextMap()["tenant_id"])
}

func TestIdentityChaining(t *testing.T) {
	base, logs := observedLogger()
	ctx := context.Background()

	ctx, l := WithRequestID(ctx, base, "req-41")
	ctx, l = WithTenantID(ctx, l, "warehouse-north")
	ctx, l = WithUserID(ctx, l, "auditor-7")
	l.Info("submission recorded")

	assert.Equal(t, "req-41", GetRequestID(ctx))
	assert.Equal(t, "warehouse-north", GetTenantID(ctx))
	assert.Equal(t, "auditor-7", GetUserID(ctx))

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-41", fields["request_id"])
	assert.Equal(t, "warehouse-north", fields["tenant_id"])
	assert.Equal(t, "auditor-7", fields["user_id"])

	// The enriched logger travels with the context.
	assert.Same(t, l, FromContext(ctx))
}

func TestGetters_EmptyContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetTenantID(ctx))
	assert.Empty(t, GetUserID(ctx))
}

func TestWithRequestID_LastValueWins(t *testing.T) {
	ctx := context.Background()
	ctx, _ = WithRequestID(ctx, zap.NewNop(), "first")
	ctx, _ = WithRequestID(ctx, zap.NewNop(), "second")
	assert.Equal(t, "second", GetRequestID(ctx))
}

func spanContext(t *testing.T) (context.Context, trace.SpanContext) {
	t.Helper()
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10},
		SpanID:     trace.SpanID{0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18},
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc), sc
}

func TestWithTraceContext_NoSpan(t *testing.T) {
	base := zap.NewNop()
	assert.Same(t, base, WithTraceContext(context.Background(), base))
}

func TestWithTraceContext_TagsTraceAndSpan(t *testing.T) {
	base, logs := observedLogger()
	ctx, sc := spanContext(t)

	WithTraceContext(ctx, base).Info("reconciliation pass finished")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, sc.TraceID().String(), fields["trace_id"])
	assert.Equal(t, sc.SpanID().String(), fields["span_id"])
}
