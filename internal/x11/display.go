// Package x11 binds the daemon to an X server: the paste chord key grabs,
// synthetic key injection, the key state tap, selection owner notifications
// and the popup window.
package x11

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xfixes"
	"github.com/jezek/xgb/xproto"

	"github.com/yiblet/halen/internal/chord"
	"github.com/yiblet/halen/internal/popup"
)

const (
	keyBuffer       = 64
	selectionBuffer = 16
)

// Display is one connection to the X server plus the goroutine that reads
// its events. Grabbed key events are delivered on Keys; selection owner
// changes and expose events are routed to the components that asked for
// them.
type Display struct {
	conn   *xgb.Conn
	setup  *xproto.SetupInfo
	screen *xproto.ScreenInfo

	keys       chan chord.KeyEvent
	selections chan xfixes.SelectionNotifyEvent
	done       chan struct{}

	mu       sync.Mutex
	windows  map[xproto.Window]*Window
	xfixesOK bool
	closed   bool
}

// Open connects to the display named by $DISPLAY.
func Open() (*Display, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	d := &Display{
		conn:       conn,
		setup:      setup,
		screen:     setup.DefaultScreen(conn),
		keys:       make(chan chord.KeyEvent, keyBuffer),
		selections: make(chan xfixes.SelectionNotifyEvent, selectionBuffer),
		done:       make(chan struct{}),
		windows:    make(map[xproto.Window]*Window),
	}
	slog.Info("connected to X server",
		"width", d.screen.WidthInPixels, "height", d.screen.HeightInPixels)

	go d.pump()
	return d, nil
}

// Close disconnects from the server. The event goroutine exits and Keys is
// closed.
func (d *Display) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.conn.Close()
	<-d.done
}

// Keys delivers grabbed key presses and releases. Each one must be passed
// back through AllowSuspendedEvent before the keyboard moves on.
func (d *Display) Keys() <-chan chord.KeyEvent {
	return d.keys
}

func (d *Display) root() xproto.Window {
	return d.screen.Root
}

// ScreenSize returns the default screen dimensions.
func (d *Display) ScreenSize() popup.Size {
	return popup.Size{Width: int(d.screen.WidthInPixels), Height: int(d.screen.HeightInPixels)}
}

// Pointer returns the mouse position, or the screen centre if it cannot be
// queried.
func (d *Display) Pointer() popup.Point {
	reply, err := xproto.QueryPointer(d.conn, d.root()).Reply()
	if err != nil || !reply.SameScreen {
		size := d.ScreenSize()
		return popup.Point{X: size.Width / 2, Y: size.Height / 2}
	}
	return popup.Point{X: int(reply.RootX), Y: int(reply.RootY)}
}

func (d *Display) pump() {
	defer close(d.done)
	defer close(d.keys)

	for {
		ev, xerr := d.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			slog.Debug("X connection closed, event loop exiting")
			return
		}
		if xerr != nil {
			slog.Warn("X protocol error", "error", xerr)
			continue
		}

		switch e := ev.(type) {
		case xproto.KeyPressEvent:
			d.keys <- chord.KeyEvent{Code: chord.KeyCode(e.Detail), Press: true, Time: uint32(e.Time)}
		case xproto.KeyReleaseEvent:
			d.keys <- chord.KeyEvent{Code: chord.KeyCode(e.Detail), Press: false, Time: uint32(e.Time)}
		case xfixes.SelectionNotifyEvent:
			select {
			case d.selections <- e:
			default:
				slog.Debug("dropping selection notification, watcher busy")
			}
		case xproto.ExposeEvent:
			if e.Count != 0 {
				continue
			}
			d.mu.Lock()
			w := d.windows[e.Window]
			d.mu.Unlock()
			if w != nil {
				w.redraw()
			}
		}
	}
}

func (d *Display) register(w *Window) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.windows[w.id] = w
}

func (d *Display) unregister(w *Window) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.windows, w.id)
}

func (d *Display) internAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(d.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern atom %s: %w", name, err)
	}
	return reply.Atom, nil
}
