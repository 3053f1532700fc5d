// Package logging sets up the file-backed logger. The TUI owns the
// terminal, so nothing may ever log to stdout or stderr while it runs.
package logging

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// New opens an append-only log file and returns a logger writing to it,
// plus a close function. An empty path disables logging entirely.
func New(path string, debug bool) (zerolog.Logger, func() error, error) {
	if path == "" {
		return zerolog.Nop(), func() error { return nil }, nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(file).Level(level).With().Timestamp().Logger()
	return logger, file.Close, nil
}
