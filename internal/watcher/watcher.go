// Package watcher reports new clipboard content. It listens for selection
// owner changes and polls the owners as a fallback for missed events.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yiblet/halen/internal/clipboard"
	"github.com/yiblet/halen/internal/text"
)

const (
	// DefaultPollInterval is how often selection owners are checked when no
	// owner-change event arrives.
	DefaultPollInterval = 2 * time.Second

	// StartupDelay is how long a started source is given before it is
	// trusted to deliver events.
	StartupDelay = 100 * time.Millisecond
)

// OwnerEvent reports that a selection changed hands. Owner is zero when the
// selection has no owner.
type OwnerEvent struct {
	Selection clipboard.Selection
	Owner     uint32
}

// OwnerSource is the windowing-system side of the watcher.
type OwnerSource interface {
	// WatchOwners calls fn for every owner change of the given selections
	// until ctx is done.
	WatchOwners(ctx context.Context, selections []clipboard.Selection, fn func(OwnerEvent)) error

	// Owner returns the current owner of sel, zero if none.
	Owner(sel clipboard.Selection) (uint32, error)
}

// Capture is content read from a selection after it changed.
type Capture struct {
	Content   string
	Selection clipboard.Selection
}

// Options configures a Watcher.
type Options struct {
	// TrackPrimary records the PRIMARY selection as well as CLIPBOARD.
	TrackPrimary bool

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration
}

// Watcher turns selection changes into Captures.
type Watcher struct {
	board        clipboard.Board
	owners       OwnerSource
	trackPrimary bool
	pollInterval time.Duration

	captures  chan Capture
	last      map[clipboard.Selection]string
	lastOwner map[clipboard.Selection]uint32
}

// New creates a watcher reading content from board.
func New(board clipboard.Board, owners OwnerSource, opts Options) *Watcher {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{
		board:        board,
		owners:       owners,
		trackPrimary: opts.TrackPrimary,
		pollInterval: interval,
		captures:     make(chan Capture, 16),
		last:         make(map[clipboard.Selection]string),
		lastOwner:    make(map[clipboard.Selection]uint32),
	}
}

// Captures delivers new content. It is closed when Run returns.
func (w *Watcher) Captures() <-chan Capture {
	return w.captures
}

// Run watches until ctx is done. Owner changes of both selections are
// observed; PRIMARY content is only read when tracked.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.captures)

	events := make(chan OwnerEvent, 16)
	sourceErr := make(chan error, 1)
	go func() {
		sourceErr <- w.owners.WatchOwners(ctx, []clipboard.Selection{clipboard.Clipboard, clipboard.Primary}, func(ev OwnerEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
	}()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("clipboard watcher started", "poll_interval", w.pollInterval, "track_primary", w.trackPrimary)
	for {
		select {
		case <-ctx.Done():
			slog.Info("clipboard watcher stopped")
			return nil

		case err := <-sourceErr:
			sourceErr = nil
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("selection events unavailable, polling only", "error", err)
			}

		case ev := <-events:
			slog.Debug("selection owner changed", "selection", ev.Selection, "owner", ev.Owner)
			w.lastOwner[ev.Selection] = ev.Owner
			if ev.Owner != 0 {
				w.handle(ctx, ev.Selection)
			}

		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll catches owner changes whose events were missed.
func (w *Watcher) poll(ctx context.Context) {
	for _, sel := range []clipboard.Selection{clipboard.Clipboard, clipboard.Primary} {
		owner, err := w.owners.Owner(sel)
		if err != nil {
			slog.Debug("failed to query selection owner", "selection", sel, "error", err)
			continue
		}
		if owner == w.lastOwner[sel] {
			continue
		}
		slog.Debug("selection owner changed (poll)", "selection", sel, "from", w.lastOwner[sel], "to", owner)
		w.lastOwner[sel] = owner
		if owner != 0 {
			w.handle(ctx, sel)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, sel clipboard.Selection) {
	if sel == clipboard.Primary && !w.trackPrimary {
		slog.Debug("ignoring selection", "selection", sel)
		return
	}

	content, err := clipboard.ReadText(ctx, w.board, sel)
	if err != nil {
		slog.Debug("failed to get clipboard content", "selection", sel, "error", err)
		return
	}
	if content == w.last[sel] {
		slog.Debug("content unchanged, skipping save", "selection", sel)
		return
	}
	w.last[sel] = content

	if !text.HasNonWhitespace(content) {
		return
	}

	slog.Info("clipboard changed", "selection", sel, "content", text.Summary(content, 100))
	select {
	case w.captures <- Capture{Content: content, Selection: sel}:
	case <-ctx.Done():
	}
}
