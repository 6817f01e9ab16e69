// File: internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/verihawk/verihawk/internal/config"
)

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer so tests can inject a
// console writer without touching process streams.
type syncBuffer struct {
	bytes.Buffer
}

func (b *syncBuffer) Sync() error { return nil }

func TestInitialize(t *testing.T) {

	t.Run("console format with colorized levels", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		cfg := config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "verihawk-test",
			Colors: config.ColorConfig{
				Info: "green",
			},
		}
		Initialize(cfg, &buf)
		GetLogger().Info("This is a test message.")

		output := buf.String()
		assert.Contains(t, output, "INFO", "Output should contain the log level")
		assert.Contains(t, output, "This is a test message.", "Output should contain the message")
		assert.Contains(t, output, colorGreen, "Info level should be colorized green")
		assert.Contains(t, output, colorReset, "Output should contain the reset color code")
	})

	t.Run("json format emits structured records", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		Initialize(config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "verihawk-test",
		}, &buf)
		GetLogger().Info("structured message")

		line := strings.TrimSpace(buf.String())
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		assert.Equal(t, "structured message", record["msg"])
		assert.Equal(t, "INFO", record["level"])
	})

	t.Run("level floor filters lower severities", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		Initialize(config.LoggerConfig{Level: "warn", Format: "console", ServiceName: "t"}, &buf)
		GetLogger().Info("quiet")
		GetLogger().Warn("loud")

		output := buf.String()
		assert.NotContains(t, output, "quiet")
		assert.Contains(t, output, "loud")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		Initialize(config.LoggerConfig{Level: "shouty", Format: "console", ServiceName: "t"}, &buf)
		GetLogger().Debug("hidden")
		GetLogger().Info("visible")

		output := buf.String()
		assert.NotContains(t, output, "hidden")
		assert.Contains(t, output, "visible")
	})

	t.Run("file core writes JSON alongside the console", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer
		logFile := filepath.Join(t.TempDir(), "verihawk.log")

		Initialize(config.LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "t",
			LogFile:     logFile,
			MaxSize:     1,
		}, &buf)
		GetLogger().Info("persisted")
		Sync()

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "persisted")
	})
}

// TestInitialized flips only once the global logger is actually set, so the
// stderr fallback in the CLI error path stays reachable.
func TestInitialized(t *testing.T) {
	ResetForTest()
	assert.False(t, Initialized())

	var buf syncBuffer
	Initialize(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "t"}, &buf)
	assert.True(t, Initialized())
}

// TestGetLogger_Fallback never returns nil, even before initialization.
func TestGetLogger_Fallback(t *testing.T) {
	ResetForTest()
	logger := GetLogger()
	require.NotNil(t, logger)
	// Safe to use immediately.
	logger.Info("fallback logger works")
}

var _ zapcore.WriteSyncer = (*syncBuffer)(nil)
