package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datamod/internal/config"
)

func lastJSONLine(t *testing.T, content []byte) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "test.log")
	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())

	logger.Info("dataset loaded", "rows", 3)
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	entry := lastJSONLine(t, content)
	assert.Equal(t, "dataset loaded", entry["msg"])
	assert.Equal(t, float64(3), entry["rows"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, config.AppName, entry["service"])
	assert.Contains(t, entry, "source")
}

func TestInitializeLoggerOnlyOnce(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	dir := t.TempDir()
	first, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "file", FilePath: filepath.Join(dir, "a.log")})
	require.NoError(t, err)
	second, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "file", FilePath: filepath.Join(dir, "b.log")})
	require.NoError(t, err)

	assert.Same(t, first, second)
	_, statErr := os.Stat(filepath.Join(dir, "b.log"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestTraceIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug")

	ctx := WithTraceID(context.Background(), "trace-123")
	logger.InfoContext(ctx, "operation applied")

	entry := lastJSONLine(t, buf.Bytes())
	assert.Equal(t, "trace-123", entry["trace_id"])
}

func TestTraceIDFallsBackToRequestID(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	assert.Equal(t, "req-42", GetTraceID(ctx))

	ctx = WithTraceID(ctx, "explicit")
	assert.Equal(t, "explicit", GetTraceID(ctx))

	assert.Empty(t, GetTraceID(context.Background()))
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    string
		want     slog.Level
		debugLog bool
	}{
		{"debug", slog.LevelDebug, true},
		{"info", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"ERROR", slog.LevelError, false},
		{"bogus", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.level))

			var buf bytes.Buffer
			NewLogger(&buf, tt.level).Debug("debug record")
			assert.Equal(t, tt.debugLog, buf.Len() > 0)
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := GetTraceID(ctx)
	assert.Len(t, id, 36)

	// Existing IDs are kept
	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)))
}

func TestLoggerHelpers(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&buf, "info")

	WithError(WithComponent(base, "loader"), errors.New("bad header")).Warn("skipped")
	entry := lastJSONLine(t, buf.Bytes())
	assert.Equal(t, "loader", entry["component"])
	assert.Equal(t, "bad header", entry["error"])

	assert.Same(t, base, WithError(base, nil))
}
