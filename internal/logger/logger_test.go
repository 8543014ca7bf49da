package logger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Development(t *testing.T) {
	log, err := NewLogger(Options{Env: "development"})
	require.NoError(t, err)
	assert.NotNil(t, log)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLogger_Production(t *testing.T) {
	log, err := NewLogger(Options{Env: "production", Level: "warn"})
	require.NoError(t, err)
	assert.NotNil(t, log)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "automation.log")

	log, err := NewLogger(Options{File: path, Level: "debug"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in       string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"invalid", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseLevel(tc.in))
		})
	}
}

func TestLogDuration(t *testing.T) {
	observedCore, observedLogs := observer.New(zapcore.DebugLevel)
	testLogger := zap.New(observedCore)

	LogDuration(testLogger, "periodic_run", time.Now().Add(-150*time.Millisecond), zap.String("source", "periodic"))

	require.Equal(t, 1, observedLogs.Len())
	entry := observedLogs.AllUntimed()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	assert.Equal(t, "operation completed", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "periodic_run", fields["operation"])
	assert.Equal(t, "periodic", fields["source"])
	assert.GreaterOrEqual(t, fields["duration_ms"], int64(150))
}

func TestWithContext(t *testing.T) {
	observedCore, observedLogs := observer.New(zapcore.DebugLevel)
	testLogger := zap.New(observedCore)

	WithContext(testLogger, zap.String("component", "dispatcher")).Info("test message")

	require.Equal(t, 1, observedLogs.Len())
	assert.Equal(t, "dispatcher", observedLogs.AllUntimed()[0].ContextMap()["component"])
}
