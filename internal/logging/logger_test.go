package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONLinesToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gateway.log")
	logger, err := New(false, path)
	require.NoError(t, err)

	logger.Error("upload rejected")
	logger.Info("request completed")
	_ = logger.Sync() // stdout sync can fail on some platforms

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	require.Equal(t, "error", event["level"])
	require.Equal(t, "upload rejected", event["msg"])
	require.NotEmpty(t, event["ts"])
	require.NotEmpty(t, event["caller"])
	require.NotEmpty(t, event["func"])
	require.NotEmpty(t, event["stacktrace"], "error events carry a trace")

	event = map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &event))
	require.Equal(t, "info", event["level"])
	_, hasTrace := event["stacktrace"]
	require.False(t, hasTrace, "info events carry no trace")
}

func TestNewAppendsAcrossLoggers(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gateway.log")

	first, err := New(false, path)
	require.NoError(t, err)
	first.Error("first run")
	_ = first.Sync()

	second, err := New(false, path)
	require.NoError(t, err)
	second.Error("second run")
	_ = second.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "first run")
	require.Contains(t, string(raw), "second run")
}

func TestNewDevelopmentLoggerBuilds(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gateway.log")
	logger, err := New(true, path)
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("development logger ready")
}

func TestNewUnwritablePathFails(t *testing.T) {
	t.Parallel()

	_, err := New(false, filepath.Join(t.TempDir(), "missing", "dir", "gateway.log"))
	require.Error(t, err)
}
