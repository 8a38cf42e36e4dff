// Package logging configures the process-wide structured logger.
//
// Output format follows the attachment of stdout: JSON lines when piped
// (service deployments, log collectors), colorized human-readable lines
// when attached to a terminal.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Setup builds the default logger from the configured level, picks the
// output format from the terminal attachment of stdout, and installs it
// as the slog default. Returns the logger for direct injection.
func Setup(level string) *slog.Logger {
	logger := New(os.Stdout, level, stdoutIsTerminal())
	slog.SetDefault(logger)
	return logger
}

// New creates a logger writing to w. When tty is true the console handler
// renders colorized single-line records; otherwise records are JSON.
func New(w io.Writer, level string, tty bool) *slog.Logger {
	lvl := parseLevel(level)
	if tty {
		return slog.New(newConsoleHandler(w, lvl))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// stdoutIsTerminal reports whether stdout is attached to a terminal.
func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// parseLevel converts a string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
