// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/1broseidon/persistwin/internal/runtimepath"
)

// DefaultFile selects the conventional log path under the persistwin directory.
const DefaultFile = "default"

// Options configure the logger.
type Options struct {
	Level string
	// File is the destination; empty writes to the fallback writer and
	// DefaultFile writes to the standard log path.
	File      string
	MaxSizeMB int
	MaxFiles  int
}

// Logger is an slog.Logger whose level can be changed while running.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	file  *RotatingFile
}

// New builds a text logger. Without a file it writes to fallback.
func New(opts Options, fallback io.Writer) (*Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	level := new(slog.LevelVar)
	level.Set(lvl)

	out := fallback
	var file *RotatingFile
	if opts.File != "" {
		path := opts.File
		if path == DefaultFile {
			if path, err = runtimepath.LogPath(); err != nil {
				return nil, err
			}
		}
		file, err = OpenRotatingFile(path, opts.MaxSizeMB, opts.MaxFiles)
		if err != nil {
			return nil, err
		}
		out = file
	}

	return &Logger{
		Logger: slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})),
		level:  level,
		file:   file,
	}, nil
}

// SetLevel changes the minimum level. Safe to call from any goroutine.
func (l *Logger) SetLevel(s string) error {
	lvl, err := ParseLevel(s)
	if err != nil {
		return err
	}
	l.level.Set(lvl)
	return nil
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel converts a config level name. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
