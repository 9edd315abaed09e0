// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

const permission = 0o664

// Builder assembles a zerolog.Logger.
type Builder struct {
	writer io.Writer
	path   string
	level  string
	format string
}

// Logger is a built logger and the file it writes to, if any.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// New returns a Builder that writes console output to stderr at warn level.
func New() *Builder {
	return &Builder{writer: os.Stderr, level: "warn", format: "console"}
}

// ToWriter sends output to w.
func (b *Builder) ToWriter(w io.Writer) *Builder {
	b.writer = w
	return b
}

// ToFile appends output to the file at path. It wins over ToWriter.
func (b *Builder) ToFile(path string) *Builder {
	b.path = path
	return b
}

// Level sets the minimum level by name. Empty keeps the default.
func (b *Builder) Level(level string) *Builder {
	if level != "" {
		b.level = level
	}
	return b
}

// Format selects "console" or "json" output.
func (b *Builder) Format(format string) *Builder {
	if format != "" {
		b.format = format
	}
	return b
}

// Make builds the logger.
func (b *Builder) Make() (*Logger, error) {
	level, err := zerolog.ParseLevel(b.level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	out := &Logger{}
	w := b.writer
	if b.path != "" {
		out.file, err = os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = zerolog.SyncWriter(out.file)
	}

	switch b.format {
	case "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, NoColor: b.path != ""}
	default:
		out.Close()
		return nil, fmt.Errorf("unknown log format %q", b.format)
	}

	out.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return out, nil
}

// Close closes the log file, if one was opened.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
