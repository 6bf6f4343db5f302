package app

import (
	"io"
	"log/slog"
)

// newLogger builds the application logger. The level accepts anything
// slog.Level understands ("debug", "WARN", "info+2") and falls back to info.
// Debug logging also records the source line. The global logger is left alone.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
