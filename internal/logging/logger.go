package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures a rotating log file. An empty Path keeps output on
// stdout.
type FileOptions struct {
	Path      string
	MaxSizeMB int
	MaxAgeDay int
}

// New creates a JSON slog logger configured at the provided level. If the
// level string is invalid it defaults to info.
func New(level string) *slog.Logger {
	return NewWithFile(level, FileOptions{})
}

// NewWithFile is New with output sent to a lumberjack-rotated file when
// opts.Path is set.
func NewWithFile(level string, opts FileOptions) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	var out io.Writer = os.Stdout
	if opts.Path != "" {
		out = &lumberjack.Logger{
			Filename: opts.Path,
			MaxSize:  opts.MaxSizeMB,
			MaxAge:   opts.MaxAgeDay,
		}
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}
