package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Format selects the log encoding
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Options configures the process logger
type Options struct {
	Level  string
	Format Format
	// Dir, when set, also appends JSON lines to <Dir>/engine_<date>.log
	Dir string
}

// New builds a zerolog logger writing to out. Unknown levels fall back to info.
func New(level string, format Format, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	w := out
	if format != FormatJSON {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}

// Open builds the process logger from options. The returned closer releases the log file, if any.
func Open(opts Options) (zerolog.Logger, io.Closer, error) {
	if opts.Dir == "" {
		return New(opts.Level, opts.Format, os.Stderr), nopCloser{}, nil
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := fmt.Sprintf("engine_%s.log", time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(opts.Dir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var console io.Writer = os.Stderr
	if opts.Format != FormatJSON {
		console = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		lvl = zerolog.InfoLevel
	}
	l := zerolog.New(zerolog.MultiLevelWriter(console, file)).With().Timestamp().Logger().Level(lvl)
	return l, file, nil
}

// Component derives a sub-logger tagged with the component name
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
