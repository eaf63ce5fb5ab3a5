// Package text holds the pure content transforms used by the history log:
// single-line escaping, bounded display previews, content hashing and the
// small normalisation helpers the clipboard watcher relies on.
package text

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"
)

// ellipsis marks a line that was cut to fit MaxLineLength.
const ellipsis = "..."

// OverflowWriter receives the full content of entries that exceed the
// display bounds. cachefs.FS satisfies it.
type OverflowWriter interface {
	WriteFile(name string, data []byte, perm os.FileMode) error
}

// Formatter renders clipboard content into the bounded form stored in the
// history log.
type Formatter struct {
	MaxLines      int
	MaxLineLength int

	// Overflow is where full copies of oversized content are written.
	// When nil, oversized content is stored as a lossy preview.
	Overflow OverflowWriter
}

// NeedsTruncation reports whether content reaches MaxLines line breaks or
// holds a line longer than MaxLineLength characters.
func (f Formatter) NeedsTruncation(content string) bool {
	lines := 0
	lineLength := 0
	for _, r := range content {
		if r == '\n' {
			lines++
			lineLength = 0
			if lines >= f.MaxLines {
				return true
			}
			continue
		}
		lineLength++
		if lineLength > f.MaxLineLength {
			return true
		}
	}
	return false
}

// FormatForDisplay returns at most MaxLines lines of content, each cut to
// MaxLineLength characters, followed by a "(+N lines)" marker when lines
// were dropped.
func (f Formatter) FormatForDisplay(content string) string {
	if content == "" {
		return ""
	}

	lines := strings.Split(content, "\n")
	if strings.HasSuffix(content, "\n") {
		lines = lines[:len(lines)-1]
	}
	total := len(lines)

	shown := lines
	if len(shown) > f.MaxLines {
		shown = shown[:f.MaxLines]
	}

	var b strings.Builder
	for i, line := range shown {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.cutLine(line))
	}

	if remaining := total - len(shown); remaining > 0 {
		fmt.Fprintf(&b, "\n(+%d lines)", remaining)
	}
	return b.String()
}

func (f Formatter) cutLine(line string) string {
	if utf8.RuneCountInString(line) <= f.MaxLineLength {
		return line
	}
	runes := []rune(line)
	if f.MaxLineLength < len(ellipsis) {
		return string(runes[:f.MaxLineLength])
	}
	return string(runes[:f.MaxLineLength-len(ellipsis)]) + ellipsis
}

// OverflowMarker opens the overflow segment of a history log line.
const OverflowMarker = "[OVERFLOW:"

// HasOverflowMarker reports whether s starts with a complete overflow
// segment: the marker, 8 hex digits and a closing bracket.
func HasOverflowMarker(s string) bool {
	rest, ok := strings.CutPrefix(s, OverflowMarker)
	if !ok || len(rest) < 9 || rest[8] != ']' {
		return false
	}
	for i := 0; i < 8; i++ {
		c := rest[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// TruncateForStorage returns the form of content to store in the log and,
// for oversized content, the hash under which the full copy was written to
// the overflow target. Content within bounds comes back unchanged with an
// empty hash. Content that itself starts with an overflow segment is also
// written to the overflow target, so its log line carries a real segment
// ahead of the text; the preview is then the content unchanged.
func (f Formatter) TruncateForStorage(content string) (preview string, hash string) {
	truncate := f.NeedsTruncation(content)
	if !truncate && !HasOverflowMarker(content) {
		return content, ""
	}

	preview = content
	if truncate {
		preview = f.FormatForDisplay(content)
	}
	if f.Overflow == nil {
		return preview, ""
	}

	hash = HashString(content)
	if err := f.Overflow.WriteFile(hash, []byte(content), 0644); err != nil {
		slog.Warn("failed to create overflow file, falling back to truncation", "hash", hash, "error", err)
		return preview, ""
	}
	slog.Debug("created overflow file", "hash", hash, "bytes", len(content))
	return preview, hash
}
