package chord

import (
	"context"
	"fmt"
	"slices"
)

// KeyCode is a hardware key code as reported by the windowing system.
type KeyCode uint8

// KeyEvent is a single key press or release.
type KeyEvent struct {
	Code  KeyCode
	Press bool

	// Time is the server timestamp of the event, passed back when a
	// suspended event is allowed through.
	Time uint32
}

// Input is the windowing-system side of key interception. Intercepted key
// codes are only intercepted while the modifier is held; their events are
// suspended until AllowSuspendedEvent is called.
type Input interface {
	InterceptKeyCode(code KeyCode) error
	ReleaseKeyCode(code KeyCode) error
	AllowSuspendedEvent(ev KeyEvent) error

	// InjectSyntheticKeyChord presses codes in order, then releases them in
	// reverse order.
	InjectSyntheticKeyChord(codes ...KeyCode) error
}

// Tap delivers every key event on the system, intercepted or not, until ctx
// is done.
type Tap interface {
	ObserveAllKeyEvents(ctx context.Context, fn func(KeyEvent)) error
}

// Role is what a key code means to the recognizer.
type Role int

const (
	RoleNone Role = iota
	RoleModifier
	RolePaste
	RolePrev
	RoleCut
	RoleCancel
	RoleDelete
)

func (r Role) String() string {
	switch r {
	case RoleModifier:
		return "modifier"
	case RolePaste:
		return "paste"
	case RolePrev:
		return "prev"
	case RoleCut:
		return "cut"
	case RoleCancel:
		return "cancel"
	case RoleDelete:
		return "delete"
	}
	return "none"
}

// Keymap assigns key codes to roles. Modifiers lists every code that counts
// as the chord modifier, e.g. both Control keys.
type Keymap struct {
	Paste     KeyCode
	Prev      KeyCode
	Cut       KeyCode
	Cancel    KeyCode
	Delete    KeyCode
	Modifiers []KeyCode
}

type binding struct {
	role Role
	code KeyCode
}

// Validate checks that every role has a code and no code has two roles.
func (k Keymap) Validate() error {
	if len(k.Modifiers) == 0 {
		return fmt.Errorf("no modifier key codes")
	}

	bindings := []binding{
		{RolePaste, k.Paste}, {RolePrev, k.Prev}, {RoleCut, k.Cut},
		{RoleCancel, k.Cancel}, {RoleDelete, k.Delete},
	}
	for _, m := range k.Modifiers {
		bindings = append(bindings, binding{RoleModifier, m})
	}

	seen := make(map[KeyCode]Role)
	for _, b := range bindings {
		if b.code == 0 {
			return fmt.Errorf("no key code for %s", b.role)
		}
		if other, ok := seen[b.code]; ok && other != b.role {
			return fmt.Errorf("key code %d assigned to both %s and %s", b.code, other, b.role)
		}
		seen[b.code] = b.role
	}
	return nil
}

// Role returns the role of code.
func (k Keymap) Role(code KeyCode) Role {
	switch {
	case slices.Contains(k.Modifiers, code):
		return RoleModifier
	case code == k.Paste:
		return RolePaste
	case code == k.Prev:
		return RolePrev
	case code == k.Cut:
		return RoleCut
	case code == k.Cancel:
		return RoleCancel
	case code == k.Delete:
		return RoleDelete
	}
	return RoleNone
}

// Navigation returns the codes intercepted only while browsing.
func (k Keymap) Navigation() []KeyCode {
	return []KeyCode{k.Prev, k.Cut, k.Cancel, k.Delete}
}

// Modifier returns the code used when injecting a synthetic chord.
func (k Keymap) Modifier() KeyCode {
	if len(k.Modifiers) == 0 {
		return 0
	}
	return k.Modifiers[0]
}
