package history

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yiblet/halen/internal/text"
)

// Source records which selection produced an entry.
type Source string

const (
	SourceClipboard Source = "CLIPBOARD"
	SourcePrimary   Source = "PRIMARY"
)

// TimestampLayout is the local-time format of entry timestamps, with
// millisecond precision.
const TimestampLayout = "2006-01-02 15:04:05.000"

const (
	metadataPrefix = "# HALEN_METADATA: "
	overflowPrefix = text.OverflowMarker
	minLineLength  = 10
)

// Entry is one captured clipboard snapshot.
type Entry struct {
	// Content is the stored display form. For overflowed entries it is a
	// bounded preview and the full text lives in the overflow file.
	Content string

	Timestamp string
	Source    Source

	// OverflowHash names the overflow file holding the full content, or is
	// empty when Content is complete.
	OverflowHash string
}

// Overflowed reports whether the entry's full content lives in an
// overflow file.
func (e Entry) Overflowed() bool {
	return e.OverflowHash != ""
}

// Metadata records the display bounds the stored previews were built with.
type Metadata struct {
	MaxLines      int
	MaxLineLength int
}

func (m Metadata) line() string {
	return fmt.Sprintf("%smax_lines=%d max_line_length=%d", metadataPrefix, m.MaxLines, m.MaxLineLength)
}

func parseMetadata(line string) (Metadata, bool) {
	rest, ok := strings.CutPrefix(line, metadataPrefix)
	if !ok {
		return Metadata{}, false
	}
	var m Metadata
	if _, err := fmt.Sscanf(rest, "max_lines=%d max_line_length=%d", &m.MaxLines, &m.MaxLineLength); err != nil {
		return Metadata{}, false
	}
	return m, true
}

var (
	errLineTooShort = errors.New("line too short")
	errLineFormat   = errors.New("missing timestamp or source")
)

// formatLine renders an entry as a single log line without the newline.
func formatLine(e Entry) string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(e.Timestamp)
	b.WriteString("] [")
	b.WriteString(string(e.Source))
	b.WriteString("] ")
	if e.OverflowHash != "" {
		b.WriteString(overflowPrefix)
		b.WriteString(e.OverflowHash)
		b.WriteString("] ")
	}
	b.WriteString(text.Escape(e.Content))
	return b.String()
}

// parseLine reads "[timestamp] [SOURCE] [OVERFLOW:hash] content". The
// overflow segment is optional and only recognised with an 8-hex hash.
func parseLine(line string) (Entry, error) {
	if len(line) < minLineLength {
		return Entry{}, errLineTooShort
	}
	if line[0] != '[' {
		return Entry{}, errLineFormat
	}

	tsEnd := strings.IndexByte(line, ']')
	if tsEnd < 0 || !strings.HasPrefix(line[tsEnd:], "] [") {
		return Entry{}, errLineFormat
	}
	srcStart := tsEnd + len("] [")
	srcLen := strings.IndexByte(line[srcStart:], ']')
	if srcLen <= 0 {
		return Entry{}, errLineFormat
	}

	entry := Entry{
		Timestamp: line[1:tsEnd],
		Source:    Source(line[srcStart : srcStart+srcLen]),
	}

	rest := line[srcStart+srcLen+1:]
	rest = strings.TrimPrefix(rest, " ")

	// Only the first segment is part of the line format; anything after it
	// is content.
	if text.HasOverflowMarker(rest) {
		hashed := rest[len(overflowPrefix):]
		entry.OverflowHash = hashed[:8]
		rest = strings.TrimPrefix(hashed[9:], " ")
	}

	entry.Content = text.Unescape(rest)
	return entry, nil
}

// record is one physical log line together with its parsed entry. Lines
// that fail to parse are kept so rewrites reproduce them unchanged.
type record struct {
	raw   string
	entry Entry
	valid bool
}
