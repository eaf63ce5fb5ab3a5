package text

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

type memOverflow struct {
	files map[string][]byte
	err   error
}

func (m *memOverflow) WriteFile(name string, data []byte, perm os.FileMode) error {
	if m.err != nil {
		return m.err
	}
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[name] = append([]byte(nil), data...)
	return nil
}

func numberedLines(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return strings.Join(lines, "\n")
}

func TestEscapeRoundTrip(t *testing.T) {
	tests := []string{
		"",
		"plain",
		"two\nlines",
		"tab\there",
		"windows\r\nline endings\r\n",
		"\n\n\t\r",
		"unicode ✓ and\tmore\n",
		`a lone \ backslash`,
	}

	for _, input := range tests {
		escaped := Escape(input)
		if strings.ContainsAny(escaped, "\n\r\t") {
			t.Errorf("Escape(%q) = %q still contains control characters", input, escaped)
		}
		if got := Unescape(escaped); got != input {
			t.Errorf("Unescape(Escape(%q)) = %q", input, got)
		}
	}
}

func TestUnescapeKeepsUnknownSequences(t *testing.T) {
	if got := Unescape(`C:\path\x`); got != `C:\path\x` {
		t.Errorf("Unescape kept = %q", got)
	}
	if got := Unescape(`trailing\`); got != `trailing\` {
		t.Errorf("Unescape trailing = %q", got)
	}
}

func TestHash(t *testing.T) {
	if got := Hash(""); got != 0x811c9dc5 {
		t.Errorf("Hash(\"\") = %08x, want 811c9dc5", got)
	}
	if got := Hash("a"); got != 0xe40c292c {
		t.Errorf("Hash(\"a\") = %08x, want e40c292c", got)
	}
	if got := HashString("a"); got != "e40c292c" {
		t.Errorf("HashString(\"a\") = %s", got)
	}
	if Hash("hello") != Hash("hello") {
		t.Error("Hash is not deterministic")
	}
	if HashString("hello") == HashString("hello!") {
		t.Error("distinct short inputs should not collide")
	}
}

func TestNeedsTruncation(t *testing.T) {
	f := Formatter{MaxLines: 3, MaxLineLength: 5}

	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"short", "abc", false},
		{"exact length", "abcde", false},
		{"long line", "abcdef", true},
		{"three lines", "a\nb\nc", false},
		{"three lines trailing newline", "a\nb\nc\n", true},
		{"four lines", "a\nb\nc\nd", true},
		{"long second line", "a\nbcdefg", true},
		{"runes count as characters", "ééééé", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.NeedsTruncation(tt.content); got != tt.want {
				t.Errorf("NeedsTruncation(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestFormatForDisplay(t *testing.T) {
	f := Formatter{MaxLines: 10, MaxLineLength: 80}

	got := f.FormatForDisplay(numberedLines(15))
	want := numberedLines(10) + "\n(+5 lines)"
	if got != want {
		t.Errorf("FormatForDisplay 15 lines =\n%s\nwant\n%s", got, want)
	}

	f = Formatter{MaxLines: 2, MaxLineLength: 8}
	got = f.FormatForDisplay("0123456789\nshort\n")
	if got != "01234...\nshort" {
		t.Errorf("FormatForDisplay cut = %q", got)
	}

	if got := f.FormatForDisplay(""); got != "" {
		t.Errorf("FormatForDisplay empty = %q", got)
	}
}

func TestFormatForDisplayNarrowLines(t *testing.T) {
	tests := []struct {
		maxLineLength int
		want          string
	}{
		{1, "a"},
		{2, "ab"},
		{3, "..."},
		{4, "a..."},
	}

	for _, tt := range tests {
		f := Formatter{MaxLines: 10, MaxLineLength: tt.maxLineLength}
		got := f.FormatForDisplay("abcdef")
		if got != tt.want {
			t.Errorf("MaxLineLength %d: FormatForDisplay = %q, want %q", tt.maxLineLength, got, tt.want)
		}
		if n := len([]rune(got)); n > tt.maxLineLength {
			t.Errorf("MaxLineLength %d: line has %d characters", tt.maxLineLength, n)
		}
	}
}

func TestHasOverflowMarker(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"[OVERFLOW:deadbeef] hello", true},
		{"[OVERFLOW:DEADBEEF]", true},
		{"[OVERFLOW:deadbee] hello", false},
		{"[OVERFLOW:deadbeefx] hello", false},
		{"[OVERFLOW:nothex!!] hello", false},
		{" [OVERFLOW:deadbeef] hello", false},
		{"hello", false},
	}

	for _, tt := range tests {
		if got := HasOverflowMarker(tt.in); got != tt.want {
			t.Errorf("HasOverflowMarker(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTruncateForStorageMarkerLikeContent(t *testing.T) {
	overflow := &memOverflow{}
	f := Formatter{MaxLines: 10, MaxLineLength: 80, Overflow: overflow}
	content := "[OVERFLOW:deadbeef] hello"

	preview, hash := f.TruncateForStorage(content)
	if preview != content {
		t.Errorf("preview = %q, want %q", preview, content)
	}
	if hash != HashString(content) {
		t.Errorf("hash = %q, want %q", hash, HashString(content))
	}
	if string(overflow.files[hash]) != content {
		t.Errorf("overflow file content mismatch")
	}
}

func TestTruncateForStorageWithinBounds(t *testing.T) {
	overflow := &memOverflow{}
	f := Formatter{MaxLines: 10, MaxLineLength: 80, Overflow: overflow}

	preview, hash := f.TruncateForStorage("hello")
	if preview != "hello" || hash != "" {
		t.Errorf("TruncateForStorage = (%q, %q), want (hello, \"\")", preview, hash)
	}
	if len(overflow.files) != 0 {
		t.Errorf("expected no overflow files, got %d", len(overflow.files))
	}
}

func TestTruncateForStorageOverflow(t *testing.T) {
	overflow := &memOverflow{}
	f := Formatter{MaxLines: 10, MaxLineLength: 80, Overflow: overflow}
	content := numberedLines(15)

	preview, hash := f.TruncateForStorage(content)
	if hash != HashString(content) {
		t.Errorf("hash = %q, want %q", hash, HashString(content))
	}
	if len(hash) != 8 {
		t.Errorf("hash length = %d, want 8", len(hash))
	}
	if !strings.HasSuffix(preview, "(+5 lines)") {
		t.Errorf("preview missing suffix: %q", preview)
	}
	if string(overflow.files[hash]) != content {
		t.Errorf("overflow file content mismatch")
	}
}

func TestTruncateForStorageWithoutOverflowDir(t *testing.T) {
	f := Formatter{MaxLines: 2, MaxLineLength: 80}

	preview, hash := f.TruncateForStorage("a\nb\nc")
	if hash != "" {
		t.Errorf("hash = %q, want empty", hash)
	}
	if preview != "a\nb\n(+1 lines)" {
		t.Errorf("preview = %q", preview)
	}
}

func TestTruncateForStorageOverflowWriteFails(t *testing.T) {
	f := Formatter{MaxLines: 2, MaxLineLength: 80, Overflow: &memOverflow{err: errors.New("disk full")}}

	preview, hash := f.TruncateForStorage("a\nb\nc")
	if hash != "" {
		t.Errorf("hash = %q, want empty on write failure", hash)
	}
	if !strings.Contains(preview, "(+1 lines)") {
		t.Errorf("preview = %q", preview)
	}
}

func TestHasNonWhitespace(t *testing.T) {
	if HasNonWhitespace(" \t\r\n ") {
		t.Error("whitespace-only content reported as non-whitespace")
	}
	if !HasNonWhitespace("  x ") {
		t.Error("content with a letter reported as whitespace")
	}
}

func TestSummary(t *testing.T) {
	if got := Summary("first\nsecond\tthird", 50); got != "first second third" {
		t.Errorf("Summary = %q", got)
	}
	if got := Summary(strings.Repeat("a", 60), 10); got != "aaaaaaa..." {
		t.Errorf("Summary long = %q", got)
	}
	if got := TrimTrailingNewlines("text\r\n\n"); got != "text" {
		t.Errorf("TrimTrailingNewlines = %q", got)
	}
}
