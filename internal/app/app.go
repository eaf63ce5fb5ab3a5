// Package app is the daemon's main loop. It owns the history store, the
// navigation cursor and the popup, and carries out the actions produced by
// the chord recognizer.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/yiblet/halen/internal/chord"
	"github.com/yiblet/halen/internal/clipboard"
	"github.com/yiblet/halen/internal/config"
	"github.com/yiblet/halen/internal/history"
	"github.com/yiblet/halen/internal/popup"
	"github.com/yiblet/halen/internal/watcher"
)

// TickInterval is how often housekeeping runs in the main loop.
const TickInterval = 100 * time.Millisecond

// ErrKeysClosed is returned by Run when the key event source goes away,
// usually because the X connection was lost.
var ErrKeysClosed = errors.New("key event source closed")

// Watcher produces clipboard captures.
type Watcher interface {
	Run(ctx context.Context) error
	Captures() <-chan watcher.Capture
}

// Timing holds the daemon's delays. The zero value waits for nothing.
type Timing struct {
	// CommitDelay separates replacing the clipboard from pasting it.
	CommitDelay time.Duration

	// WatcherDelay and TapDelay stagger worker start-up.
	WatcherDelay time.Duration
	TapDelay     time.Duration

	// ShutdownTimeout bounds the wait for workers on exit.
	ShutdownTimeout time.Duration

	// PopupTimeout hides a popup left up without an active chord. Zero
	// disables it.
	PopupTimeout time.Duration
}

// DefaultTiming returns the delays used by the daemon.
func DefaultTiming() Timing {
	return Timing{
		CommitDelay:     50 * time.Millisecond,
		WatcherDelay:    watcher.StartupDelay,
		TapDelay:        200 * time.Millisecond,
		ShutdownTimeout: time.Second,
		PopupTimeout:    2 * time.Second,
	}
}

// Options wires an App.
type Options struct {
	Store      *history.Store
	Board      clipboard.Board
	Recognizer *chord.Recognizer
	Popup      popup.Popup

	// Keys delivers intercepted key events; Tap observes every key.
	Keys <-chan chord.KeyEvent
	Tap  chord.Tap

	// Watcher, Configs and Signals are optional.
	Watcher Watcher
	Configs <-chan *config.Config
	Signals <-chan os.Signal

	// OnConfig applies the parts of a reloaded config the app does not own,
	// such as popup styling.
	OnConfig func(*config.Config)

	Timing Timing
	Sleep  func(time.Duration)
}

// App is the daemon state. Everything except the worker goroutines runs on
// the goroutine calling Run.
type App struct {
	store    *history.Store
	board    clipboard.Board
	rec      *chord.Recognizer
	popup    popup.Popup
	keys     <-chan chord.KeyEvent
	tap      chord.Tap
	watcher  Watcher
	configs  <-chan *config.Config
	signals  <-chan os.Signal
	onConfig func(*config.Config)
	timing   Timing
	sleep    func(time.Duration)

	cursor     *history.Cursor
	actions    chan []chord.Action
	staleSince time.Time
}

func New(opts Options) *App {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &App{
		store:    opts.Store,
		board:    opts.Board,
		rec:      opts.Recognizer,
		popup:    opts.Popup,
		keys:     opts.Keys,
		tap:      opts.Tap,
		watcher:  opts.Watcher,
		configs:  opts.Configs,
		signals:  opts.Signals,
		onConfig: opts.OnConfig,
		timing:   opts.Timing,
		sleep:    sleep,
		cursor:   history.NewCursor(),
		actions:  make(chan []chord.Action, 8),
	}
}

// Cursor returns the navigation cursor.
func (a *App) Cursor() *history.Cursor {
	return a.cursor
}

// Run intercepts the paste key and serves events until ctx is done, a quit
// signal arrives or the key source closes.
func (a *App) Run(ctx context.Context) error {
	if err := a.rec.Start(); err != nil {
		return fmt.Errorf("failed to start chord recognizer: %w", err)
	}
	slog.Info("halen running", "history", a.store.Path(), "entries", a.store.Count())

	workerCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	captures := a.startWorkers(workerCtx, &wg)

	err := a.loop(ctx, captures)

	slog.Info("shutting down")
	cancel()
	a.rec.Stop()
	if err := a.popup.Hide(); err != nil {
		slog.Warn("failed to hide popup", "error", err)
	}
	a.waitWorkers(&wg)
	return err
}

func (a *App) startWorkers(ctx context.Context, wg *sync.WaitGroup) <-chan watcher.Capture {
	var captures <-chan watcher.Capture
	if a.watcher != nil {
		captures = a.watcher.Captures()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !a.delay(ctx, a.timing.WatcherDelay) {
				return
			}
			if err := a.watcher.Run(ctx); err != nil {
				slog.Error("clipboard watcher failed", "error", err)
			}
		}()
	}

	if a.tap != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !a.delay(ctx, a.timing.TapDelay) {
				return
			}
			slog.Debug("key tap started")
			err := a.tap.ObserveAllKeyEvents(ctx, func(ev chord.KeyEvent) {
				if actions := a.rec.Observe(ev); len(actions) > 0 {
					select {
					case a.actions <- actions:
					case <-ctx.Done():
					}
				}
			})
			if err != nil {
				slog.Error("key tap failed", "error", err)
			}
		}()
	}
	return captures
}

// delay waits d or until ctx is done, reporting whether to carry on.
func (a *App) delay(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (a *App) waitWorkers(wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	if a.timing.ShutdownTimeout <= 0 {
		<-done
		return
	}
	select {
	case <-done:
	case <-time.After(a.timing.ShutdownTimeout):
		slog.Warn("workers did not stop in time, abandoning them", "timeout", a.timing.ShutdownTimeout)
	}
}

func (a *App) loop(ctx context.Context, captures <-chan watcher.Capture) error {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	keys, configs := a.keys, a.configs
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-keys:
			if !ok {
				return ErrKeysClosed
			}
			a.perform(a.rec.HandleSuspended(ev))

		case actions := <-a.actions:
			a.perform(actions)

		case c, ok := <-captures:
			if !ok {
				captures = nil
				continue
			}
			a.capture(c)

		case sig := <-a.signals:
			if sig == syscall.SIGUSR1 {
				a.toggle()
				continue
			}
			slog.Info("received signal", "signal", sig)
			return nil

		case cfg, ok := <-configs:
			if !ok {
				configs = nil
				continue
			}
			a.reconfigure(cfg)

		case now := <-ticker.C:
			a.tick(now)
		}
	}
}

func (a *App) capture(c watcher.Capture) {
	source := history.SourceClipboard
	if c.Selection == clipboard.Primary {
		source = history.SourcePrimary
	}
	if a.store.AddEntry(c.Content, source) {
		a.cursor.Reset()
	}
}

func (a *App) toggle() {
	enabled := !a.rec.Enabled()
	a.perform(a.rec.SetEnabled(enabled))
	slog.Info("chord interception toggled", "enabled", enabled)
}

func (a *App) reconfigure(cfg *config.Config) {
	a.store.Reconfigure(cfg.MaxLines, cfg.MaxLineLength, cfg.HistoryLimit)
	a.timing.PopupTimeout = time.Duration(cfg.Timeout) * time.Second
	if a.onConfig != nil {
		a.onConfig(cfg)
	}
	slog.Info("configuration applied",
		"max_lines", cfg.MaxLines, "max_line_length", cfg.MaxLineLength, "history_limit", cfg.HistoryLimit)
}

// tick hides a popup that outlived its chord, e.g. after the modifier
// release was missed.
func (a *App) tick(now time.Time) {
	if a.timing.PopupTimeout <= 0 || !a.popup.IsShowing() || a.rec.State() == chord.Browsing {
		a.staleSince = time.Time{}
		return
	}
	if a.staleSince.IsZero() {
		a.staleSince = now
		return
	}
	if now.Sub(a.staleSince) >= a.timing.PopupTimeout {
		slog.Debug("hiding stale popup")
		a.hide()
		a.cursor.Reset()
		a.staleSince = time.Time{}
	}
}
