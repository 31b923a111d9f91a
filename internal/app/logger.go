package app

import (
	"io"
	"log/slog"
)

// parseLevel maps a -log-level flag value onto a slog level. Unknown
// values fall back to info so a typo never silences the runner.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the runner's logger. JSON is the default format, the
// form CI log collectors ingest; base attributes are stamped by the
// handler onto every line it emits.
func newLogger(levelStr, formatStr string, outW io.Writer, base ...slog.Attr) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(levelStr)}

	var handler slog.Handler
	if formatStr == "text" {
		handler = slog.NewTextHandler(outW, opts)
	} else {
		handler = slog.NewJSONHandler(outW, opts)
	}
	if len(base) > 0 {
		handler = handler.WithAttrs(base)
	}
	return slog.New(handler)
}

// runLogger scopes the application logger to one workflow run, so every
// job and step record of the run carries the workflow name and run ID.
func (a *App) runLogger(workflow, runID string) *slog.Logger {
	return a.logger.With("workflow", workflow, "run_id", runID)
}
