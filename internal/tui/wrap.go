package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// WrapText wraps text to maxWidth columns, breaking on spaces when it can.
// Newlines in text always start a new line. Widths are counted in runes.
func WrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{}
	}

	var result []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.ReplaceAll(line, "\t", "    ")
		if utf8.RuneCountInString(line) <= maxWidth {
			result = append(result, line)
			continue
		}
		result = append(result, wrapLine(line, maxWidth)...)
	}
	return result
}

// wrapLine wraps a single over-long line. Words longer than maxWidth are cut.
func wrapLine(line string, maxWidth int) []string {
	var result []string
	var current strings.Builder
	width := 0

	flush := func() {
		result = append(result, current.String())
		current.Reset()
		width = 0
	}

	for _, word := range splitWords(line) {
		runes := []rune(word)
		if len(runes) > maxWidth {
			if width > 0 {
				flush()
			}
			for len(runes) > maxWidth {
				result = append(result, string(runes[:maxWidth]))
				runes = runes[maxWidth:]
			}
			current.WriteString(string(runes))
			width = len(runes)
			continue
		}

		needed := len(runes)
		if width > 0 {
			needed++
		}
		if width+needed > maxWidth {
			flush()
		} else if width > 0 {
			current.WriteByte(' ')
			width++
		}
		current.WriteString(word)
		width += len(runes)
	}

	if width > 0 {
		flush()
	}
	return result
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, unicode.IsSpace)
}

// truncate cuts s to at most width runes, marking the cut with "...".
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
