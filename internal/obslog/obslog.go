// Package obslog sets up the harness's structured logger. It follows the
// shape of the teacher's internal/logger package (package-level *slog.Logger,
// multi-writer, short time format) but adds a JSON handler mode, since this
// harness is usually driven by another program over stdout/stdin and its
// diagnostics need to be machine-parseable on stderr.
package obslog

import (
	"io"
	"log/slog"
	"os"
)

// Log is the package-level logger. Init must be called before use in
// long-running commands; library code should accept a *slog.Logger instead
// of reaching for this global where practical.
var Log *slog.Logger

func init() {
	// Safe default so packages that log before Init (e.g. during flag
	// parsing) don't panic on a nil logger.
	Log = slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// Format selects the handler used by Init.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Init configures the global logger. Diagnostics always go to stderr —
// standard output is reserved for the harness's structured results per
// spec §6 ("standard output carries only JSON/NDJSON").
func Init(level string, format Format, extra io.Writer) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var w io.Writer = os.Stderr
	if extra != nil {
		w = io.MultiWriter(os.Stderr, extra)
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && format == FormatText {
				return slog.String("time", a.Value.Time().Format("15:04:05.000"))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	Log = slog.New(handler)
	slog.SetDefault(Log)
}

func Debug(msg string, args ...any) { Log.Debug(msg, args...) }
func Info(msg string, args ...any)  { Log.Info(msg, args...) }
func Warn(msg string, args ...any)  { Log.Warn(msg, args...) }
func Error(msg string, args ...any) { Log.Error(msg, args...) }
