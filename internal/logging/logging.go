// Package logging builds the process logger. The terminal belongs to the UI,
// so records go to a JSON file in the data directory.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/scoutcursos/cursos/internal/config"
)

// New opens cfg.LogPath() for appending and returns a JSON logger writing to
// it. Close the returned closer on exit.
func New(cfg config.Config) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath()), 0o700); err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}
	f, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}
	return NewWriter(f, cfg), f, nil
}

// NewWriter returns a JSON logger writing to w at cfg's level.
func NewWriter(w io.Writer, cfg config.Config) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: cfg.Debug,
	})
	return slog.New(h).With("app", "cursos")
}
