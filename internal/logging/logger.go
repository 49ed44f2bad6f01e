// Package logging builds the process-wide slog loggers: JSON lines to the
// chosen writer, one component attr per subsystem so console and stream
// output can be told apart when everything lands on stderr.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const defaultComponent = "taskdeck"

type Options struct {
	Level     string
	Writer    io.Writer
	Component string
}

func NewLogger(opts Options) *slog.Logger {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	component := strings.TrimSpace(opts.Component)
	if component == "" {
		component = defaultComponent
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	})
	return slog.New(handler).With("component", component)
}

// ParseLevel maps a config string to a slog level, defaulting to info so a
// typo never silences the logs.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
