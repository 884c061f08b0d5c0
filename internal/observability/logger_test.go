// File: internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xaelith/ghostpilot/internal/config"
)

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer.
type syncBuffer struct {
	bytes.Buffer
}

func (s *syncBuffer) Sync() error { return nil }

func initToBuffer(t *testing.T, cfg config.LoggerConfig) *syncBuffer {
	t.Helper()
	ResetForTest()
	t.Cleanup(ResetForTest)
	buf := &syncBuffer{}
	Initialize(cfg, zapcore.AddSync(buf))
	return buf
}

func TestInitializeConsoleLoggerWithColors(t *testing.T) {
	buf := initToBuffer(t, config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "ghostpilot-test",
		Colors:      config.ColorConfig{Info: "green"},
	})

	GetLogger().Info("control loop running")

	output := buf.String()
	assert.Contains(t, output, "INFO")
	assert.Contains(t, output, "control loop running")
	assert.Contains(t, output, colorGreen, "info level should be colorized green")
	assert.Contains(t, output, colorReset)
	assert.Contains(t, output, "ghostpilot-test")
}

func TestInitializeJSONLogger(t *testing.T) {
	buf := initToBuffer(t, config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "jsontest",
	})

	GetLogger().Warn("sensing degraded", zap.Int("streak", 3))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output should be valid JSON")
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "jsontest", entry["logger"])
	assert.Equal(t, "sensing degraded", entry["msg"])
	assert.Equal(t, float64(3), entry["streak"])
}

func TestLevelFiltering(t *testing.T) {
	buf := initToBuffer(t, config.LoggerConfig{Level: "warn", Format: "json"})

	logger := GetLogger()
	logger.Debug("invisible")
	logger.Info("also invisible")
	logger.Warn("visible")

	output := buf.String()
	assert.NotContains(t, output, "invisible")
	assert.Contains(t, output, "visible")
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	buf := initToBuffer(t, config.LoggerConfig{Level: "shouting", Format: "json"})

	logger := GetLogger()
	logger.Debug("filtered")
	logger.Info("passes")

	assert.NotContains(t, buf.String(), "filtered")
	assert.Contains(t, buf.String(), "passes")
}

func TestFileTee(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "ghostpilot.log")
	buf := initToBuffer(t, config.LoggerConfig{
		Level:   "debug",
		Format:  "console",
		LogFile: logFile,
		MaxSize: 1,
	})

	GetLogger().Info("teed entry")
	Sync()

	assert.Contains(t, buf.String(), "teed entry")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry), "file core must always be JSON")
	assert.Equal(t, "teed entry", entry["msg"])
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger, "a fallback logger must always be available")
}

func TestInitializeIsIdempotent(t *testing.T) {
	buf := initToBuffer(t, config.LoggerConfig{Level: "info", Format: "json", ServiceName: "first"})

	// A second Initialize must not replace the live logger.
	var second syncBuffer
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "second"}, zapcore.AddSync(&second))

	GetLogger().Info("after second init")
	assert.Contains(t, buf.String(), "after second init")
	assert.Empty(t, second.String())
}
