package x11

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jezek/xgb/xfixes"
	"github.com/jezek/xgb/xproto"

	"github.com/yiblet/halen/internal/clipboard"
	"github.com/yiblet/halen/internal/watcher"
)

const selectionEvents = xfixes.SelectionEventMaskSetSelectionOwner |
	xfixes.SelectionEventMaskSelectionWindowDestroy |
	xfixes.SelectionEventMaskSelectionClientClose

// Owners implements watcher.OwnerSource with the XFIXES extension.
type Owners struct {
	d *Display
}

func (d *Display) Owners() *Owners {
	return &Owners{d: d}
}

func atomName(sel clipboard.Selection) string {
	return strings.ToUpper(string(sel))
}

func (o *Owners) initXFixes() error {
	o.d.mu.Lock()
	defer o.d.mu.Unlock()
	if o.d.xfixesOK {
		return nil
	}
	if err := xfixes.Init(o.d.conn); err != nil {
		return fmt.Errorf("XFIXES extension unavailable: %w", err)
	}
	// The server ignores XFIXES requests from clients that skipped this.
	if _, err := xfixes.QueryVersion(o.d.conn, 5, 0).Reply(); err != nil {
		return fmt.Errorf("failed to query XFIXES version: %w", err)
	}
	o.d.xfixesOK = true
	return nil
}

// WatchOwners reports owner changes of selections until ctx is done.
func (o *Owners) WatchOwners(ctx context.Context, selections []clipboard.Selection, fn func(watcher.OwnerEvent)) error {
	if err := o.initXFixes(); err != nil {
		return err
	}

	atoms := make(map[xproto.Atom]clipboard.Selection, len(selections))
	for _, sel := range selections {
		atom, err := o.d.internAtom(atomName(sel))
		if err != nil {
			return err
		}
		err = xfixes.SelectSelectionInputChecked(o.d.conn, o.d.root(), atom, selectionEvents).Check()
		if err != nil {
			return fmt.Errorf("failed to select %s owner events: %w", sel, err)
		}
		atoms[atom] = sel
	}
	slog.Info("watching selection owners", "selections", selections)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-o.d.done:
			return fmt.Errorf("X connection closed")
		case ev := <-o.d.selections:
			sel, ok := atoms[ev.Selection]
			if !ok {
				continue
			}
			fn(watcher.OwnerEvent{Selection: sel, Owner: uint32(ev.Owner)})
		}
	}
}

// Owner returns the window owning sel, 0 when unowned.
func (o *Owners) Owner(sel clipboard.Selection) (uint32, error) {
	atom, err := o.d.internAtom(atomName(sel))
	if err != nil {
		return 0, err
	}
	reply, err := xproto.GetSelectionOwner(o.d.conn, atom).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to get %s owner: %w", sel, err)
	}
	return uint32(reply.Owner), nil
}
