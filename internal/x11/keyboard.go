package x11

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgb/xtest"

	"github.com/yiblet/halen/internal/chord"
)

// Keysyms of the chord keys.
const (
	keysymC        xproto.Keysym = 0x0063
	keysymD        xproto.Keysym = 0x0064
	keysymV        xproto.Keysym = 0x0076
	keysymX        xproto.Keysym = 0x0078
	keysymZ        xproto.Keysym = 0x007a
	keysymControlL xproto.Keysym = 0xffe3
	keysymControlR xproto.Keysym = 0xffe4
)

// grabModifiers are the Control combinations grabbed for every intercepted
// key, so Caps Lock and Num Lock do not defeat the grab.
var grabModifiers = []uint16{
	xproto.ModMaskControl,
	xproto.ModMaskControl | xproto.ModMaskLock,
	xproto.ModMaskControl | xproto.ModMask2,
	xproto.ModMaskControl | xproto.ModMaskLock | xproto.ModMask2,
}

// Keyboard implements chord.Input with passive key grabs on the root window
// and XTEST injection.
type Keyboard struct {
	d *Display

	xtestOnce sync.Once
	xtestErr  error
}

// Keyboard returns the chord input backed by d.
func (d *Display) Keyboard() *Keyboard {
	return &Keyboard{d: d}
}

func (k *Keyboard) InterceptKeyCode(code chord.KeyCode) error {
	for _, mods := range grabModifiers {
		err := xproto.GrabKeyChecked(k.d.conn, true, k.d.root(), mods, xproto.Keycode(code),
			xproto.GrabModeAsync, xproto.GrabModeSync).Check()
		if err != nil {
			return fmt.Errorf("failed to grab key %d with modifiers %#x: %w", code, mods, err)
		}
	}
	return nil
}

func (k *Keyboard) ReleaseKeyCode(code chord.KeyCode) error {
	for _, mods := range grabModifiers {
		err := xproto.UngrabKeyChecked(k.d.conn, xproto.Keycode(code), k.d.root(), mods).Check()
		if err != nil {
			return fmt.Errorf("failed to ungrab key %d with modifiers %#x: %w", code, mods, err)
		}
	}
	return nil
}

// AllowSuspendedEvent thaws the keyboard frozen by a synchronous grab.
func (k *Keyboard) AllowSuspendedEvent(ev chord.KeyEvent) error {
	err := xproto.AllowEventsChecked(k.d.conn, xproto.AllowSyncKeyboard, xproto.Timestamp(ev.Time)).Check()
	if err != nil {
		return fmt.Errorf("failed to allow events: %w", err)
	}
	return nil
}

func (k *Keyboard) initXTest() error {
	k.xtestOnce.Do(func() {
		if err := xtest.Init(k.d.conn); err != nil {
			k.xtestErr = fmt.Errorf("XTEST extension unavailable: %w", err)
		}
	})
	return k.xtestErr
}

func (k *Keyboard) fake(eventType byte, code chord.KeyCode) error {
	return xtest.FakeInputChecked(k.d.conn, eventType, byte(code), 0, k.d.root(), 0, 0, 0).Check()
}

func (k *Keyboard) InjectSyntheticKeyChord(codes ...chord.KeyCode) error {
	if err := k.initXTest(); err != nil {
		return err
	}

	for i, code := range codes {
		if err := k.fake(xproto.KeyPress, code); err != nil {
			// Release what was pressed so no key is left stuck down.
			for j := i - 1; j >= 0; j-- {
				k.fake(xproto.KeyRelease, codes[j])
			}
			return fmt.Errorf("failed to inject key press %d: %w", code, err)
		}
	}
	for i := len(codes) - 1; i >= 0; i-- {
		if err := k.fake(xproto.KeyRelease, codes[i]); err != nil {
			return fmt.Errorf("failed to inject key release %d: %w", codes[i], err)
		}
	}
	return nil
}

// Keymap resolves the chord keys (V paste, C prev, X cut, Z cancel, D delete,
// both Control keys) to this server's key codes.
func (d *Display) Keymap() (chord.Keymap, error) {
	first := d.setup.MinKeycode
	count := byte(d.setup.MaxKeycode - d.setup.MinKeycode + 1)
	reply, err := xproto.GetKeyboardMapping(d.conn, first, count).Reply()
	if err != nil {
		return chord.Keymap{}, fmt.Errorf("failed to get keyboard mapping: %w", err)
	}

	m := mapping{first: first, perCode: int(reply.KeysymsPerKeycode), keysyms: reply.Keysyms}
	keys := chord.Keymap{
		Paste:  m.lookup(keysymV),
		Prev:   m.lookup(keysymC),
		Cut:    m.lookup(keysymX),
		Cancel: m.lookup(keysymZ),
		Delete: m.lookup(keysymD),
	}
	for _, sym := range []xproto.Keysym{keysymControlL, keysymControlR} {
		if code := m.lookup(sym); code != 0 {
			keys.Modifiers = append(keys.Modifiers, code)
		}
	}

	if err := keys.Validate(); err != nil {
		return chord.Keymap{}, fmt.Errorf("keyboard mapping lacks chord keys: %w", err)
	}
	slog.Debug("resolved chord keys", "paste", keys.Paste, "modifiers", keys.Modifiers)
	return keys, nil
}

// mapping is a GetKeyboardMapping reply.
type mapping struct {
	first   xproto.Keycode
	perCode int
	keysyms []xproto.Keysym
}

// lookup returns the first key code producing sym in any column, or 0.
func (m mapping) lookup(sym xproto.Keysym) chord.KeyCode {
	if m.perCode <= 0 {
		return 0
	}
	for i, s := range m.keysyms {
		if s == sym {
			return chord.KeyCode(int(m.first) + i/m.perCode)
		}
	}
	return 0
}
