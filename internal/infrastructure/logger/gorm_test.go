package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), logs
}

func assetCountQuery() (string, int64) {
	return "SELECT quantity FROM assets WHERE tenant_id = ? AND id = ?", 1
}

func TestGormLogger_ImplementsInterface(t *testing.T) {
	var _ gormlogger.Interface = (*GormLogger)(nil)
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Warn)

	quieter := gl.LogMode(gormlogger.Silent)
	require.NotSame(t, gl, quieter)

	// The original keeps its level.
	assert.Equal(t, gormlogger.Warn, gl.level)
}

func TestGormLogger_InfoRespectsLevel(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Info)
	gl.Info(context.Background(), "migrating inventory tables")
	assert.Equal(t, 1, logs.Len())

	gl, logs = newObservedGormLogger(gormlogger.Warn)
	gl.Info(context.Background(), "suppressed below warn")
	assert.Equal(t, 0, logs.Len())
}

func TestGormLogger_Trace_Error(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Error)

	gl.Trace(context.Background(), time.Now(), assetCountQuery, errors.New("deadlock detected"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "SQL Error", entries[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Contains(t, entries[0].ContextMap()["sql"], "FROM assets")
}

func TestGormLogger_Trace_NotFoundIgnored(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Error)

	// Assets with no submission history miss constantly; that is not an error.
	gl.Trace(context.Background(), time.Now(), assetCountQuery, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())

	gl, logs = newObservedGormLogger(gormlogger.Error, WithIgnoreRecordNotFoundError(false))
	gl.Trace(context.Background(), time.Now(), assetCountQuery, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 1, logs.Len())
}

func TestGormLogger_Trace_SlowQuery(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Millisecond))

	begin := time.Now().Add(-50 * time.Millisecond)
	gl.Trace(context.Background(), begin, assetCountQuery, nil)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Contains(t, entries[0].Message, "SLOW SQL")
}

func TestGormLogger_Trace_NormalQueryAtDebug(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Info)

	gl.Trace(context.Background(), time.Now(), assetCountQuery, nil)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "SQL Query", entries[0].Message)
	assert.Equal(t, int64(1), entries[0].ContextMap()["rows"])
}

func TestGormLogger_Trace_Silent(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Silent)
	gl.Trace(context.Background(), time.Now(), assetCountQuery, errors.New("ignored"))
	assert.Equal(t, 0, logs.Len())
}

func TestGormLogger_Trace_RequestIDFromContext(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Info)

	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-12")
	gl.Trace(ctx, time.Now(), assetCountQuery, nil)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-12", entries[0].ContextMap()["request_id"])
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"anything-else", gormlogger.Warn},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapGormLogLevel(tt.in), "level %q", tt.in)
	}
}
