package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yiblet/halen/internal/app"
	"github.com/yiblet/halen/internal/chord"
	"github.com/yiblet/halen/internal/config"
	"github.com/yiblet/halen/internal/lock"
	"github.com/yiblet/halen/internal/popup"
	"github.com/yiblet/halen/internal/watcher"
	"github.com/yiblet/halen/internal/x11"
)

// executeRun handles 'halen run': it takes the per-user lock, connects to
// the X server and serves the paste chord until a quit signal arrives.
func (c *CLI) executeRun() error {
	path, err := c.lockPath()
	if err != nil {
		return fmt.Errorf("failed to resolve lock file: %w", err)
	}
	pidLock, err := lock.TryAcquire(path)
	if errors.Is(err, lock.ErrHeld) {
		if pid, err := lock.ReadPID(path); err == nil {
			return fmt.Errorf("halen is already running (pid %d)", pid)
		}
		return err
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := pidLock.Release(); err != nil {
			slog.Warn("failed to release lock", "path", path, "error", err)
		}
	}()

	store, err := c.openStore()
	if err != nil {
		return err
	}

	display, err := x11.Open()
	if err != nil {
		return err
	}
	defer display.Close()

	keymap, err := display.Keymap()
	if err != nil {
		return err
	}
	rec := chord.New(display.Keyboard(), keymap)

	opts, err := windowOptions(c.config)
	if err != nil {
		return err
	}
	window, err := display.NewWindow(opts)
	if err != nil {
		return err
	}
	defer window.Destroy()

	clipWatcher := watcher.New(c.board, display.Owners(), watcher.Options{
		TrackPrimary: c.config.TrackPrimary,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configs, err := c.cm.Watch(ctx)
	if err != nil {
		slog.Warn("config reloading disabled", "path", c.cm.GetConfigPath(), "error", err)
		configs = nil
	}

	signals := make(chan os.Signal, 4)
	signal.Notify(signals, syscall.SIGUSR1, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	timing := app.DefaultTiming()
	timing.PopupTimeout = time.Duration(c.config.Timeout) * time.Second

	daemon := app.New(app.Options{
		Store:      store,
		Board:      c.board,
		Recognizer: rec,
		Popup:      window,
		Keys:       display.Keys(),
		Tap:        display.Tap(),
		Watcher:    clipWatcher,
		Configs:    configs,
		Signals:    signals,
		OnConfig: func(cfg *config.Config) {
			opts, err := windowOptions(cfg)
			if err == nil {
				err = window.SetOptions(opts)
			}
			if err != nil {
				slog.Warn("failed to apply popup settings", "error", err)
			}
		},
		Timing: timing,
	})
	return daemon.Run(ctx)
}

// windowOptions converts the popup settings of cfg.
func windowOptions(cfg *config.Config) (x11.WindowOptions, error) {
	bg, err := config.ParseColor(cfg.Background)
	if err != nil {
		return x11.WindowOptions{}, fmt.Errorf("background: %w", err)
	}
	fg, err := config.ParseColor(cfg.Foreground)
	if err != nil {
		return x11.WindowOptions{}, fmt.Errorf("foreground: %w", err)
	}
	count, err := config.ParseColor(cfg.CountColor)
	if err != nil {
		return x11.WindowOptions{}, fmt.Errorf("count_color: %w", err)
	}

	return x11.WindowOptions{
		Style:      popupStyle(cfg),
		Font:       cfg.Font,
		FontSize:   cfg.FontSize,
		Background: bg,
		Foreground: fg,
		CountColor: count,
	}, nil
}

func popupStyle(cfg *config.Config) popup.Style {
	return popup.Style{
		Mode:             popup.Mode(cfg.Position),
		Position:         popup.Point{X: cfg.PositionX, Y: cfg.PositionY},
		Anchor:           popup.Anchor(cfg.Anchor),
		MarginVertical:   cfg.MarginVertical,
		MarginHorizontal: cfg.MarginHorizontal,
	}
}
