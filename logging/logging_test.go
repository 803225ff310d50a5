package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-kh930/config"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for name, want := range tests {
		assert.Equal(t, want, ParseLevel(name), name)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := New(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	defer closer.Close()

	logger.With("component", "controller").Debug("row sent", "row", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "row sent", rec["msg"])
	assert.Equal(t, "controller", rec["component"])
	assert.Equal(t, float64(3), rec["row"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "port", "/dev/ttyUSB0")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "port=/dev/ttyUSB0")
}

func TestColorHandler(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(config.LoggingConfig{Level: "info", Format: "color"}, &buf)

	logger.Debug("too quiet")
	logger.With("component", "archive").WithGroup("run").Error("run failed", "row", 7)
	logger.Info("pattern complete", slog.Group("stats", "rows", 12))

	out := buf.String()
	assert.NotContains(t, out, "too quiet")
	assert.Contains(t, out, "ERR run failed component=archive run.row=7")
	assert.Contains(t, out, "INF pattern complete stats.rows=12")
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "knitctl.log")
	var console bytes.Buffer

	logger, closer := New(config.LoggingConfig{Level: "info", File: path, MaxSizeMB: 1}, &console)
	logger.Info("connected", "port", "/dev/ttyUSB0")
	require.NoError(t, closer.Close())

	assert.Empty(t, console.String())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=connected")
}
