// Package log builds the structured logger shared by every marquee component
package log

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmcdole/marquee/internal/config"
)

// SetupLogger returns a JSON logger appending to cfg.File, along with a
// function that closes the file. An empty File discards all records, since
// the terminal belongs to the UI. Records carry the process ID so runs
// sharing one log file can be told apart.
func SetupLogger(cfg *config.LoggingConfig) (*slog.Logger, func() error, error) {
	if cfg.File == "" {
		return NullLogger(), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level := ParseLevel(cfg.Level)
	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	})
	return slog.New(handler).With("pid", os.Getpid()), f.Close, nil
}

// ParseLevel maps a level name to its slog.Level. It accepts the slog
// spellings, offsets such as "INFO+2", and "WARNING". Anything else is INFO.
func ParseLevel(level string) slog.Level {
	level = strings.TrimSpace(level)
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// NullLogger returns a logger that discards all output
func NullLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
