// Package chord turns the raw key stream into clipboard history actions.
//
// Holding the modifier and pressing the paste key once behaves like a normal
// paste: the suspended key press is replayed when the modifier is released.
// A second paste press while the modifier is still held opens the history
// browser, where further paste presses step through entries and the
// navigation keys go back, cut, delete or cancel. Releasing the modifier
// commits the selected entry.
package chord

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ReplayDelay is how long a replayed paste is given to reach the focused
// window before the paste key is intercepted again.
const ReplayDelay = 100 * time.Millisecond

// State is the chord progress.
type State int

const (
	// Idle: no paste seen in the current chord.
	Idle State = iota
	// Armed: one suspended paste waits to be replayed on modifier release.
	Armed
	// Browsing: two or more pastes seen, navigation keys intercepted.
	Browsing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Browsing:
		return "browsing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Direction is the last navigation step taken while browsing.
type Direction int

const (
	DirectionNext Direction = iota
	DirectionPrev
)

func (d Direction) String() string {
	if d == DirectionPrev {
		return "prev"
	}
	return "next"
}

// ActionKind names what the consumer should do.
type ActionKind int

const (
	ActionShow ActionKind = iota + 1
	ActionNavigateNext
	ActionNavigatePrev
	ActionCut
	ActionDelete
	ActionCancel
	ActionReplaySinglePaste
	ActionCommit
)

func (k ActionKind) String() string {
	switch k {
	case ActionShow:
		return "show"
	case ActionNavigateNext:
		return "navigate-next"
	case ActionNavigatePrev:
		return "navigate-prev"
	case ActionCut:
		return "cut"
	case ActionDelete:
		return "delete"
	case ActionCancel:
		return "cancel"
	case ActionReplaySinglePaste:
		return "replay-single-paste"
	case ActionCommit:
		return "commit"
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// Action is emitted by the recognizer for the consumer to carry out.
type Action struct {
	Kind ActionKind

	// Paste is set on commits that should paste the selected entry. It is
	// false when the chord ended with a cut or cancel.
	Paste bool

	// Direction is the last navigation direction, used to pick the entry
	// shown after a delete.
	Direction Direction
}

// Recognizer is the chord state machine. Observe is driven by the tap
// goroutine; HandleSuspended, SetEnabled and Replay by the goroutine that
// receives intercepted key events. The mutex guards state only and is never
// held while talking to Input.
type Recognizer struct {
	input Input
	keys  Keymap
	delay time.Duration
	sleep func(time.Duration)

	mu           sync.Mutex
	state        State
	count        int
	lastAction   ActionKind
	direction    Direction
	cutPending   bool
	modifierHeld bool
	enabled      bool
	replaying    bool
}

// New creates a recognizer. Call Start to intercept the paste key.
func New(input Input, keys Keymap) *Recognizer {
	return &Recognizer{
		input:   input,
		keys:    keys,
		delay:   ReplayDelay,
		sleep:   time.Sleep,
		enabled: true,
	}
}

// SetReplayDelay overrides ReplayDelay and the sleep used to wait it out
// (for testing)
func (r *Recognizer) SetReplayDelay(delay time.Duration, sleep func(time.Duration)) {
	r.delay = delay
	if sleep != nil {
		r.sleep = sleep
	}
}

// plan collects the Input calls and actions decided under the lock.
type plan struct {
	actions   []Action
	intercept []KeyCode
	release   []KeyCode
}

func (p *plan) emit(a Action) {
	p.actions = append(p.actions, a)
}

func (r *Recognizer) apply(p plan) {
	for _, code := range p.release {
		if err := r.input.ReleaseKeyCode(code); err != nil {
			slog.Warn("failed to release key", "code", code, "error", err)
		}
	}
	for _, code := range p.intercept {
		if err := r.input.InterceptKeyCode(code); err != nil {
			slog.Warn("failed to intercept key", "code", code, "error", err)
		}
	}
}

// Start intercepts the paste key.
func (r *Recognizer) Start() error {
	if err := r.keys.Validate(); err != nil {
		return fmt.Errorf("invalid keymap: %w", err)
	}
	if err := r.input.InterceptKeyCode(r.keys.Paste); err != nil {
		return fmt.Errorf("failed to intercept paste key: %w", err)
	}
	slog.Info("paste key intercepted", "code", r.keys.Paste)
	return nil
}

// Stop releases every interception.
func (r *Recognizer) Stop() {
	r.mu.Lock()
	p := plan{release: []KeyCode{r.keys.Paste}}
	if r.state == Browsing {
		p.release = append(p.release, r.keys.Navigation()...)
	}
	r.reset()
	r.enabled = false
	r.mu.Unlock()

	r.apply(p)
}

// State returns the current chord state.
func (r *Recognizer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Count returns the number of paste presses in the current chord.
func (r *Recognizer) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Direction returns the last navigation direction.
func (r *Recognizer) Direction() Direction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.direction
}

// ResetDirection makes the next delete re-center as if the last step was
// navigate-next. Used when the history becomes empty.
func (r *Recognizer) ResetDirection() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direction = DirectionNext
}

// ModifierHeld reports whether the modifier is down as far as the key
// stream has shown.
func (r *Recognizer) ModifierHeld() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modifierHeld
}

// Enabled reports whether the recognizer is intercepting keys.
func (r *Recognizer) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// reset returns to Idle. The caller must release navigation interceptions.
func (r *Recognizer) reset() {
	if r.count > 0 {
		slog.Debug("resetting chord state", "count", r.count)
	}
	r.state = Idle
	r.count = 0
}

// Observe feeds one event from the system-wide key stream. Only modifier
// events matter here: releasing the modifier ends the chord.
func (r *Recognizer) Observe(ev KeyEvent) []Action {
	if r.keys.Role(ev.Code) != RoleModifier {
		return nil
	}

	r.mu.Lock()
	if !r.enabled || r.replaying {
		r.mu.Unlock()
		return nil
	}

	if ev.Press {
		r.modifierHeld = true
		r.mu.Unlock()
		return nil
	}
	r.modifierHeld = false

	var p plan
	switch r.state {
	case Idle:
		if r.cutPending {
			p.emit(Action{Kind: ActionCommit, Paste: false, Direction: r.direction})
		}
	case Armed:
		slog.Debug("modifier released after single paste, replaying")
		p.emit(Action{Kind: ActionReplaySinglePaste})
	case Browsing:
		slog.Debug("modifier released while browsing, committing", "count", r.count)
		p.release = r.keys.Navigation()
		p.emit(Action{Kind: ActionCommit, Paste: r.pasteOnCommit(), Direction: r.direction})
	}
	r.cutPending = false
	r.reset()
	r.mu.Unlock()

	r.apply(p)
	return p.actions
}

func (r *Recognizer) pasteOnCommit() bool {
	return r.lastAction != ActionCut && r.lastAction != ActionCancel
}

// HandleSuspended processes an intercepted key event and then allows the
// input layer to continue. Intercepted events never reach the focused
// window; a single paste is delivered later through Replay.
func (r *Recognizer) HandleSuspended(ev KeyEvent) []Action {
	p := r.decide(ev)
	r.apply(p)

	if err := r.input.AllowSuspendedEvent(ev); err != nil {
		slog.Warn("failed to allow suspended event", "code", ev.Code, "error", err)
	}
	return p.actions
}

func (r *Recognizer) decide(ev KeyEvent) plan {
	r.mu.Lock()
	defer r.mu.Unlock()

	var p plan
	if !r.enabled || r.replaying || !ev.Press {
		return p
	}

	role := r.keys.Role(ev.Code)
	if role == RolePaste {
		// The interception only fires with the modifier down, whatever the
		// tap has seen so far.
		r.modifierHeld = true
		r.count++
		switch {
		case r.count == 1:
			r.state = Armed
			r.cutPending = false
			r.lastAction = 0
			slog.Debug("first paste suspended, will replay on modifier release")
		case r.count == 2:
			r.state = Browsing
			p.intercept = r.keys.Navigation()
			r.record(&p, Action{Kind: ActionShow})
			slog.Debug("second paste, showing history")
		default:
			r.direction = DirectionNext
			r.record(&p, Action{Kind: ActionNavigateNext})
		}
		return p
	}

	if r.state != Browsing {
		return p
	}

	switch role {
	case RolePrev:
		r.direction = DirectionPrev
		r.record(&p, Action{Kind: ActionNavigatePrev})
	case RoleCut:
		r.record(&p, Action{Kind: ActionCut})
		p.release = r.keys.Navigation()
		r.cutPending = true
		r.reset()
	case RoleCancel:
		r.record(&p, Action{Kind: ActionCancel})
		p.release = r.keys.Navigation()
		r.reset()
	case RoleDelete:
		r.record(&p, Action{Kind: ActionDelete, Direction: r.direction})
	}
	return p
}

func (r *Recognizer) record(p *plan, a Action) {
	r.lastAction = a.Kind
	slog.Debug("chord action", "action", a.Kind, "count", r.count)
	p.emit(a)
}

// SetEnabled turns interception on or off. Disabling releases every
// interception and resets the chord, emitting a cancel if the history was
// being browsed and a replay if a single paste was suspended. Repeated calls
// with the same value do nothing.
func (r *Recognizer) SetEnabled(enabled bool) []Action {
	r.mu.Lock()
	if r.enabled == enabled {
		r.mu.Unlock()
		return nil
	}

	var p plan
	if enabled {
		p.intercept = []KeyCode{r.keys.Paste}
		slog.Info("enabling chord interception")
	} else {
		p.release = []KeyCode{r.keys.Paste}
		switch r.state {
		case Armed:
			r.lastAction = ActionReplaySinglePaste
			p.emit(Action{Kind: ActionReplaySinglePaste})
		case Browsing:
			p.release = append(p.release, r.keys.Navigation()...)
			r.lastAction = ActionCancel
			p.emit(Action{Kind: ActionCancel})
		}
		slog.Info("disabling chord interception")
	}
	r.cutPending = false
	r.reset()
	r.enabled = enabled
	r.mu.Unlock()

	r.apply(p)
	return p.actions
}

// Replay delivers a paste to the focused window. The paste key interception
// is lifted, a synthetic modifier+paste chord is injected, and after
// ReplayDelay the interception is restored. Input seen meanwhile is
// ignored so the synthetic events are not taken for a new chord.
func (r *Recognizer) Replay() error {
	r.mu.Lock()
	if r.replaying {
		r.mu.Unlock()
		return fmt.Errorf("replay already in progress")
	}
	r.replaying = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.replaying = false
		r.mu.Unlock()
	}()

	slog.Debug("replaying paste, monitoring paused")
	if err := r.input.ReleaseKeyCode(r.keys.Paste); err != nil {
		return fmt.Errorf("failed to release paste key for replay: %w", err)
	}

	injectErr := r.input.InjectSyntheticKeyChord(r.keys.Modifier(), r.keys.Paste)
	r.sleep(r.delay)

	if r.Enabled() {
		if err := r.input.InterceptKeyCode(r.keys.Paste); err != nil {
			return fmt.Errorf("failed to re-intercept paste key: %w", err)
		}
	}
	if injectErr != nil {
		return fmt.Errorf("failed to inject paste: %w", injectErr)
	}
	slog.Debug("paste replay completed, monitoring resumed")
	return nil
}

// Replaying reports whether a replay is in flight.
func (r *Recognizer) Replaying() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replaying
}
