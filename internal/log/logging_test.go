package log

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mmcdole/tapedeck/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warning": slog.LevelWarn,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestSetupLogger_WritesJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "tapedeck.log")
	logger, closer, err := SetupLogger(&config.LoggingConfig{
		File:      file,
		Level:     "warn",
		MaxSizeMB: 1,
	})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "playlist", "Road Trip")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "Road Trip", entry["playlist"])
	assert.Equal(t, "WARN", entry["level"])
}

func TestNullLogger(t *testing.T) {
	logger := NullLogger()
	require.NotNil(t, logger)
	logger.Error("nowhere")
}
