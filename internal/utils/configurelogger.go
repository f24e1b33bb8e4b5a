package utils

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
)

var ErrUnexpectedLogLevel = errors.New("unexpected log level")

// Map a configured level name onto a slog level.
//
// Names are case insensitive: "error", "warn" (or "warning"), "info", "debug".
// "none" reports enabled as false, meaning nothing should be logged at all.
func ParseLogLevel(logLevel string) (level slog.Level, enabled bool, err error) {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "none":
		return 0, false, nil
	case "error":
		return slog.LevelError, true, nil
	case "warn", "warning":
		return slog.LevelWarn, true, nil
	case "info":
		return slog.LevelInfo, true, nil
	case "debug":
		return slog.LevelDebug, true, nil
	default:
		return 0, false, ErrUnexpectedLogLevel
	}
}

// Point slog.Default at stdout (text) or at logFile (JSON), filtered at logLevel.
//
// The returned file is nil when logging to stdout or when logging is disabled.
// Otherwise the caller owns it and closes it on exit:
//
//	logFilePointer, err := utils.ConfigureDefaultLogger(level, file, slog.HandlerOptions{})
//	if logFilePointer != nil {
//		defer logFilePointer.Close()
//	}
func ConfigureDefaultLogger(logLevel string, logFile string, loggerOptions slog.HandlerOptions) (*os.File, error) {
	level, enabled, err := ParseLogLevel(logLevel)
	if err != nil {
		return nil, err
	}
	if !enabled {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	}
	loggerOptions.Level = level

	if logFile == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &loggerOptions)))
		return nil, nil
	}

	logFilePointer, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(logFilePointer, &loggerOptions)))
	return logFilePointer, nil
}
