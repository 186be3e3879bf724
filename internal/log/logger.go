// Package log builds the application logger: structured slog output with
// credential redaction, optionally written to a size-rotated file.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Options struct {
	// Level is one of debug, info, warn or error. Empty means info.
	Level string
	// File enables JSON logging to a rotated file when set.
	File      string
	MaxSizeMB int
	MaxFiles  int
	// Debug forces debug level and, without a file, text output on stderr.
	Debug bool
}

// NewLogger returns the configured logger and a close function for the
// underlying writer. Without a file and without debug mode the logger
// discards everything.
func NewLogger(opts Options) (*slog.Logger, func() error, error) {
	noClose := func() error { return nil }

	level := parseLevel(opts.Level)
	if opts.Debug {
		level = slog.LevelDebug
	}

	if opts.File != "" {
		writer, err := NewRotatingWriter(RotationConfig{
			File:      opts.File,
			MaxSizeMB: opts.MaxSizeMB,
			MaxFiles:  opts.MaxFiles,
		})
		if err != nil {
			return nil, nil, err
		}
		handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})
		return slog.New(NewRedactingHandler(handler)), writer.Close, nil
	}

	if opts.Debug {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		return slog.New(NewRedactingHandler(handler)), noClose, nil
	}

	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler), noClose, nil
}

func parseLevel(level string) slog.Level {
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
