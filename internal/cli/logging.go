package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/yiblet/halen/internal/config"
)

// setupLogging installs the default slog logger. The daemon logs at info
// level, other commands only warnings, and verbose turns on debug for both.
// When the config names a log file, logs are appended there instead of
// stderr and the returned closer must be closed on exit.
func setupLogging(cfg *config.Config, verbose, daemon bool) (io.Closer, error) {
	level := slog.LevelWarn
	if daemon {
		level = slog.LevelInfo
	}
	if verbose || cfg.Verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	var closer io.Closer
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w, closer = f, f
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
	return closer, nil
}
