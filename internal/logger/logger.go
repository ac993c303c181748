package logger

import (
	"log/slog"
	"os"
)

// New returns a text slog.Logger scoped to one component, writing to stderr
// so CLI output on stdout stays machine-readable.
func New(component string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("component", component)
}
