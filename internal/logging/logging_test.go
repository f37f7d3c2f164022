package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	started := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	assert.Equal(t,
		filepath.Join("skirmishlogs", "skirmish.play.20260212_213836.log"),
		LogFilePath("skirmishlogs", "skirmish.play", started))
	assert.Equal(t,
		filepath.Join("/var", "log", "skirmish", "skirmish.serve.20260212_213836.log"),
		LogFilePath(filepath.Join("/var", "log", "skirmish"), "skirmish.serve", started))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		zl    zerolog.Level
	}{
		{"debug", slog.LevelDebug, zerolog.DebugLevel},
		{"DEBUG", slog.LevelDebug, zerolog.DebugLevel},
		{" info ", slog.LevelInfo, zerolog.InfoLevel},
		{"warn", slog.LevelWarn, zerolog.WarnLevel},
		{"Warning", slog.LevelWarn, zerolog.WarnLevel},
		{"ERROR", slog.LevelError, zerolog.ErrorLevel},
		{"", slog.LevelInfo, zerolog.InfoLevel},
		{"loud", slog.LevelInfo, zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
			assert.Equal(t, tt.zl, ZerologLevel(tt.input))
		})
	}
}

func TestRotateLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skirmish.play.log")

	// nothing to rotate
	require.NoError(t, RotateLogFile(path))

	require.NoError(t, os.WriteFile(path, []byte("previous run"), 0644))
	require.NoError(t, RotateLogFile(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "log should have moved")
	data, err := os.ReadFile(path + ".old")
	require.NoError(t, err)
	assert.Equal(t, "previous run", string(data))
}
