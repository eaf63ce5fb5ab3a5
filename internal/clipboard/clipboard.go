// Package clipboard defines the selection-aware clipboard used by the
// watcher, the history bootstrap and the commit path.
package clipboard

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Selection names one of the X11 clipboard-like buffers.
type Selection string

const (
	Clipboard Selection = "clipboard"
	Primary   Selection = "primary"
)

// ReadTimeout bounds a single clipboard read. A selection owner that never
// answers would otherwise stall the watcher.
const ReadTimeout = 500 * time.Millisecond

// String reports the selection name as stored in the history log.
func (s Selection) String() string {
	return strings.ToUpper(string(s))
}

// ParseSelection accepts "clipboard" or "primary" in any case.
func ParseSelection(name string) (Selection, error) {
	switch strings.ToLower(name) {
	case string(Clipboard):
		return Clipboard, nil
	case string(Primary):
		return Primary, nil
	}
	return "", fmt.Errorf("unknown selection %q", name)
}

// Board reads and writes text on a selection.
type Board interface {
	Read(ctx context.Context, sel Selection) (string, error)
	Write(ctx context.Context, sel Selection, content string) error
	IsSupported() bool
}

// ReadText reads sel with ReadTimeout applied and trailing newlines removed.
func ReadText(ctx context.Context, board Board, sel Selection) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ReadTimeout)
	defer cancel()

	content, err := board.Read(ctx, sel)
	if err != nil {
		return "", fmt.Errorf("failed to read %s selection: %w", sel, err)
	}
	return strings.TrimRight(content, "\r\n"), nil
}
