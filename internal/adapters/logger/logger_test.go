package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ladle/internal/adapters/logger"
	"go.trai.ch/zerr"
)

func TestLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	lg := logger.NewWithOptions(logger.Options{Writer: &buf, Level: slog.LevelInfo})

	lg.Info("loaded cache", "entries", 3)

	out := buf.String()
	assert.Contains(t, out, "loaded cache")
	assert.Contains(t, out, "entries")
}

func TestLogger_DebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	lg := logger.NewWithOptions(logger.Options{Writer: &buf, Level: slog.LevelInfo})

	lg.Debug("probe")
	assert.Empty(t, buf.String())

	lg.SetLevel(slog.LevelDebug)
	lg.Debug("probe")
	assert.Contains(t, buf.String(), "probe")
}

func TestLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	lg := logger.NewWithOptions(logger.Options{Writer: &buf, Level: slog.LevelInfo})

	lg.Error(zerr.New("backend down"), "backend", "s3")

	out := buf.String()
	assert.Contains(t, out, "backend down")
	assert.Contains(t, out, "s3")
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	lg := logger.NewWithOptions(logger.Options{Writer: &buf, JSON: true, Level: slog.LevelInfo})

	lg.Warn("conflict retry", "attempt", 2)

	line := strings.TrimSpace(buf.String())
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &record))
	assert.Equal(t, "conflict retry", record["msg"])
	assert.Equal(t, float64(2), record["attempt"])
}
