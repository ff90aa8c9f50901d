// Package logging supplies the slog.Logger construction that
// cmd/codetect-index/main.go imported from codetect/internal/logging
// without that package existing in the retrieved sources. The usage
// pattern (logger.Info/Warn/Error with key-value pairs) carries over
// unchanged; only the constructor was missing.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Options configures logger construction.
type Options struct {
	// JSON selects the JSON handler; text otherwise. cmd/wonk builds
	// its logger with Default, so it logs as text even under --json.
	JSON bool
	// Level defaults to slog.LevelInfo.
	Level slog.Level
	// Output defaults to os.Stderr. Log lines never go to stdout:
	// stdout is the primary/side-channel output contract.
	Output io.Writer
}

// New builds a logger per Options.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(opts.Output, handlerOpts)
	} else {
		h = slog.NewTextHandler(opts.Output, handlerOpts)
	}
	return slog.New(h)
}

// Default returns a logger with the teacher's usual defaults: text
// handler, info level, stderr.
func Default() *slog.Logger {
	return New(Options{})
}
