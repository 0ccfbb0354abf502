// Package logging configures the slog logger used by scanpipe.
package logging

import (
	"io"
	"log/slog"
)

// LevelCritical is used for failures that end the run.
const LevelCritical = slog.LevelError + 4

// Level maps the repeatable --verbose count to a minimum log level.
func Level(verbosity int) slog.Level {
	switch {
	case verbosity >= 2:
		return slog.LevelDebug
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// New returns a text logger writing to w at the level for verbosity.
func New(w io.Writer, verbosity int) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: Level(verbosity),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key != slog.LevelKey || len(groups) > 0 {
				return a
			}
			if level, ok := a.Value.Any().(slog.Level); ok && level >= LevelCritical {
				a.Value = slog.StringValue("CRITICAL")
			}
			return a
		},
	}))
}
