package x11

import (
	"context"
	"fmt"
	"time"

	"github.com/jezek/xgb/xproto"

	"github.com/yiblet/halen/internal/chord"
)

// TapInterval is how often the key state is sampled.
const TapInterval = 10 * time.Millisecond

// Tap implements chord.Tap by sampling the server's key state and reporting
// every change as a press or release. Grabs do not hide keys from it.
type Tap struct {
	d        *Display
	interval time.Duration
}

func (d *Display) Tap() *Tap {
	return &Tap{d: d, interval: TapInterval}
}

func (t *Tap) ObserveAllKeyEvents(ctx context.Context, fn func(chord.KeyEvent)) error {
	prev, err := t.sample()
	if err != nil {
		return err
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cur, err := t.sample()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			diffKeys(prev, cur, fn)
			prev = cur
		}
	}
}

func (t *Tap) sample() ([]byte, error) {
	reply, err := xproto.QueryKeymap(t.d.conn).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query keymap: %w", err)
	}
	return reply.Keys, nil
}

// diffKeys reports every key whose bit differs between two key state
// vectors, releases before presses.
func diffKeys(prev, cur []byte, fn func(chord.KeyEvent)) {
	n := min(len(prev), len(cur))
	var presses []chord.KeyCode
	for i := range n {
		changed := prev[i] ^ cur[i]
		if changed == 0 {
			continue
		}
		for bit := range 8 {
			mask := byte(1) << bit
			if changed&mask == 0 {
				continue
			}
			code := chord.KeyCode(i*8 + bit)
			if cur[i]&mask != 0 {
				presses = append(presses, code)
			} else {
				fn(chord.KeyEvent{Code: code, Press: false})
			}
		}
	}
	for _, code := range presses {
		fn(chord.KeyEvent{Code: code, Press: true})
	}
}
