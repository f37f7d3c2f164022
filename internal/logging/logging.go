// Package logging wires the process loggers: a slog tree (text file, OTel
// bridge, GELF) for application records and zerolog for the storage,
// telemetry and dispatcher adapters. Both read the same level names.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a configured level name to a slog level. Unknown names
// mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// ZerologLevel is ParseLevel for the zerolog adapters.
func ZerologLevel(level string) zerolog.Level {
	switch ParseLevel(level) {
	case slog.LevelDebug:
		return zerolog.DebugLevel
	case slog.LevelWarn:
		return zerolog.WarnLevel
	case slog.LevelError:
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

// LogFilePath names the log file of one command run:
// <logsDir>/<name>.<yyyymmdd_hhmmss>.log.
func LogFilePath(logsDir, name string, started time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", name, started.Format("20060102_150405")))
}

// RotateLogFile moves an existing file at path aside to path.old so the
// new run starts with an empty log.
func RotateLogFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.Rename(path, path+".old")
}
