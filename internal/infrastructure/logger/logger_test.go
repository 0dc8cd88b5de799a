package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{name: "console to stdout", cfg: DefaultConfig()},
		{name: "json to stderr", cfg: &Config{Level: "debug", Format: "json", Output: "stderr", TimeFormat: "2006-01-02"}},
		{name: "unknown level falls back to info", cfg: &Config{Level: "verbose", Format: "json", Output: "stdout", TimeFormat: "2006-01-02"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, l)
		})
	}
}

func TestConfigLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"", zapcore.InfoLevel},
		{"trace", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		cfg := &Config{Level: tt.in}
		assert.Equal(t, tt.want, cfg.level(), "level %q", tt.in)
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconcile.log")
	l, err := New(&Config{
		Level:      "info",
		Format:     "json",
		Output:     path,
		TimeFormat: "2006-01-02T15:04:05Z07:00",
	})
	require.NoError(t, err)

	l.Info("submission validated",
		zap.String("asset_id", "pump-station-4"),
		zap.String("event_type", "periodic_check"),
	)
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "submission validated", entry["msg"])
	assert.Equal(t, "pump-station-4", entry["asset_id"])
	assert.Equal(t, "periodic_check", entry["event_type"])
	assert.Equal(t, "info", entry["level"])
}

func TestConfigSink_UnwritablePathFallsBack(t *testing.T) {
	cfg := &Config{Output: filepath.Join(t.TempDir(), "missing", "nested", "out.log")}
	assert.NotNil(t, cfg.sink())
}

func TestSync(t *testing.T) {
	l, err := New(&Config{
		Level:      "info",
		Format:     "json",
		Output:     filepath.Join(t.TempDir(), "sync.log"),
		TimeFormat: "2006-01-02",
	})
	require.NoError(t, err)
	assert.NoError(t, Sync(l))
}
