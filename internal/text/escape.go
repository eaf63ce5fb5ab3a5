package text

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

var escaper = strings.NewReplacer("\n", `\n`, "\r", `\r`, "\t", `\t`)

// Escape packs content into a single line by replacing newlines, carriage
// returns and tabs with their two-character backslash forms.
func Escape(content string) string {
	return escaper.Replace(content)
}

// Unescape reverses Escape. A backslash not followed by n, r or t is kept
// as is.
func Unescape(content string) string {
	if !strings.Contains(content, `\`) {
		return content
	}

	var b strings.Builder
	b.Grow(len(content))
	for i := 0; i < len(content); i++ {
		c := content[i]
		if c == '\\' && i+1 < len(content) {
			switch content[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case 'r':
				b.WriteByte('\r')
				i++
				continue
			case 't':
				b.WriteByte('\t')
				i++
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Hash returns the 32-bit FNV-1a hash of content. It addresses overflow
// files only and makes no collision guarantees.
func Hash(content string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(content))
	return h.Sum32()
}

// HashString formats Hash as the 8 lowercase hex digits used in file names
// and log lines.
func HashString(content string) string {
	return fmt.Sprintf("%08x", Hash(content))
}

// HasNonWhitespace reports whether content holds anything besides spaces,
// tabs and line breaks.
func HasNonWhitespace(content string) bool {
	for _, r := range content {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

// TrimTrailingNewlines strips trailing line breaks, as clipboard tools tend
// to append one.
func TrimTrailingNewlines(content string) string {
	return strings.TrimRight(content, "\r\n")
}

// Summary collapses content to one line of at most maxLen characters for
// log messages.
func Summary(content string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, content)
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	runes := []rune(cleaned)
	if len(runes) <= maxLen {
		return cleaned
	}
	if maxLen < len(ellipsis) {
		return strings.Repeat(".", maxLen)
	}
	return string(runes[:maxLen-len(ellipsis)]) + ellipsis
}
