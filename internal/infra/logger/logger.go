package logger

import (
	"io"
	"log/slog"
	"os"
)

// New — JSON в stdout, в dev уровень debug.
func New(env string) *slog.Logger {
	return NewWithFormat(os.Stdout, env, "json")
}

// NewWithFormat: format "text" — для CLI, всё остальное — JSON.
func NewWithFormat(w io.Writer, env, format string) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if format == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}
