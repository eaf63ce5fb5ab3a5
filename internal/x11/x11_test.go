package x11

import (
	"strings"
	"testing"

	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/assert"

	"github.com/yiblet/halen/internal/chord"
	"github.com/yiblet/halen/internal/clipboard"
)

func TestMappingLookup(t *testing.T) {
	// Two keysyms per code starting at code 8.
	m := mapping{
		first:   8,
		perCode: 2,
		keysyms: []xproto.Keysym{
			0, 0, // 8
			keysymV, 0x0056, // 9: v V
			keysymControlL, 0, // 10
			0, keysymControlR, // 11, second column
		},
	}

	assert.Equal(t, chord.KeyCode(9), m.lookup(keysymV))
	assert.Equal(t, chord.KeyCode(10), m.lookup(keysymControlL))
	assert.Equal(t, chord.KeyCode(11), m.lookup(keysymControlR))
	assert.Equal(t, chord.KeyCode(0), m.lookup(keysymZ))
	assert.Equal(t, chord.KeyCode(0), mapping{}.lookup(keysymV))
}

func TestDiffKeys(t *testing.T) {
	prev := make([]byte, 32)
	cur := make([]byte, 32)
	prev[4] = 1 << 5 // code 37 down
	cur[6] = 1 << 3  // code 51 down, 37 up

	var events []chord.KeyEvent
	diffKeys(prev, cur, func(ev chord.KeyEvent) { events = append(events, ev) })

	assert.Equal(t, []chord.KeyEvent{
		{Code: 37, Press: false},
		{Code: 51, Press: true},
	}, events)

	events = nil
	diffKeys(cur, cur, func(ev chord.KeyEvent) { events = append(events, ev) })
	assert.Empty(t, events)
}

func TestLatin1(t *testing.T) {
	assert.Equal(t, "caf\xe9", latin1("café"))
	assert.Equal(t, "a?b", latin1("a€b"))
	assert.Len(t, latin1(strings.Repeat("x", 400)), 255)
	assert.Equal(t, "", latin1(""))
}

func TestFontCandidates(t *testing.T) {
	assert.Equal(t, []string{
		"-*-terminus-medium-r-normal--14-*-*-*-*-*-iso8859-1",
		"terminus",
		FallbackFont,
	}, fontCandidates("terminus", 14))

	xlfd := "-misc-fixed-bold-r-normal--13-*-*-*-*-*-iso8859-1"
	assert.Equal(t, []string{xlfd, FallbackFont}, fontCandidates(xlfd, 12))
	assert.Equal(t, []string{FallbackFont}, fontCandidates("", 12))
}

func TestAtomName(t *testing.T) {
	assert.Equal(t, "CLIPBOARD", atomName(clipboard.Clipboard))
	assert.Equal(t, "PRIMARY", atomName(clipboard.Primary))
}
