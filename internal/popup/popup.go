// Package popup holds the renderer-independent half of the history popup:
// the interface the daemon drives, the text layout and the window placement
// rules. The X11 window itself lives in internal/x11.
package popup

import (
	"fmt"
	"strings"
)

// StatusBar is drawn along the bottom edge of the popup.
const StatusBar = "V: Next | C: Prev | X: Cut | D: Delete | Z: Cancel"

// Popup is the on-screen history browser.
type Popup interface {
	Show(text string) error
	Update(text string) error
	Hide() error
	IsShowing() bool

	// SetPosition sets the entry index and history size shown in the
	// counter. It takes effect on the next Show or Update.
	SetPosition(index, count int)
}

// Counter renders the entry counter. The newest entry (index 0) is shown as
// count/count and the oldest as 1/count.
func Counter(index, count int) string {
	if index < 0 {
		index = 0
	}
	return fmt.Sprintf("%d/%d", count-index, count)
}

const tabWidth = 4

// Lines splits popup text into drawable lines. Tabs become spaces and
// carriage returns are dropped.
func Lines(text string) []string {
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\t", strings.Repeat(" ", tabWidth))
	lines := strings.Split(text, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
