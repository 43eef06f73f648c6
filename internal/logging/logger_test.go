package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askduck/askduck/internal/config"
)

func newBufferLogger(level LogLevel, format string) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}

	return &Logger{
		level:  level,
		format: format,
		output: buf,
		fields: make(map[string]interface{}),
	}, buf
}

func TestLogLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(WarnLevel, "text")

	logger.Debug("debug msg")
	logger.Info("info msg")
	logger.Warn("warn msg")
	logger.Error("error msg")

	out := buf.String()
	assert.NotContains(t, out, "debug msg")
	assert.NotContains(t, out, "info msg")
	assert.Contains(t, out, "warn msg")
	assert.Contains(t, out, "error msg")
}

func TestTextFormat(t *testing.T) {
	logger, buf := newBufferLogger(InfoLevel, "text")

	logger.WithField("request_id", "abc123").Infof("processed %d attempts", 2)

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "processed 2 attempts")
	assert.Contains(t, out, "request_id=abc123")
}

func TestJSONFormat(t *testing.T) {
	logger, buf := newBufferLogger(InfoLevel, "json")

	logger.WithField("table", "customers").Info("table loaded")

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "table loaded", entry.Message)
	assert.Equal(t, "customers", entry.Fields["table"])
	assert.NotEmpty(t, entry.Timestamp)
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	logger, buf := newBufferLogger(InfoLevel, "text")

	child := logger.WithFields(map[string]interface{}{"attempt": 1})
	child.Info("child")
	logger.Info("parent")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "attempt=1")
	assert.NotContains(t, string(lines[1]), "attempt=1")
}

func TestWithError(t *testing.T) {
	logger, buf := newBufferLogger(InfoLevel, "text")

	logger.WithError(assert.AnError).Error("query failed")

	assert.Contains(t, buf.String(), "error=")
	assert.Contains(t, buf.String(), assert.AnError.Error())

	// nil errors attach nothing
	assert.Same(t, logger, logger.WithError(nil))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, WarnLevel, parseLogLevel("WARNING"))
	assert.Equal(t, ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, InfoLevel, parseLogLevel("bogus"))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, logger.level)

	_, err = NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "syslog"})
	assert.Error(t, err)
}
