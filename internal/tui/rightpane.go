package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yiblet/halen/internal/history"
)

// RightPaneMsg represents messages that the right pane component handles
type RightPaneMsg interface {
	isRightPaneMsg()
}

type ScrollUpMsg struct{}

func (ScrollUpMsg) isRightPaneMsg() {}

type ScrollDownMsg struct {
	MaxScroll int
}

func (ScrollDownMsg) isRightPaneMsg() {}

type ScrollToTopMsg struct{}

func (ScrollToTopMsg) isRightPaneMsg() {}

type ScrollToBottomMsg struct {
	MaxScroll int
}

func (ScrollToBottomMsg) isRightPaneMsg() {}

type PageUpMsg struct{}

func (PageUpMsg) isRightPaneMsg() {}

type PageDownMsg struct {
	MaxScroll int
}

func (PageDownMsg) isRightPaneMsg() {}

type ResizeRightPaneMsg struct {
	Width  int
	Height int
}

func (ResizeRightPaneMsg) isRightPaneMsg() {}

// RightPaneModel holds the state for the content viewer.
type RightPaneModel struct {
	Width   int
	Height  int
	ViewPos int // First visible line
}

func NewRightPaneModel(width, height int) RightPaneModel {
	return RightPaneModel{Width: width, Height: height}
}

// availableHeight is the number of content lines that fit under the title.
func (r RightPaneModel) availableHeight() int {
	return max(r.Height-6, 1)
}

func (r RightPaneModel) textWidth() int {
	return max(r.Width-6, 1)
}

func (r *RightPaneModel) Update(msg RightPaneMsg) error {
	pageSize := max(r.availableHeight()/2, 1)
	switch m := msg.(type) {
	case ScrollUpMsg:
		if r.ViewPos > 0 {
			r.ViewPos--
		}
	case ScrollDownMsg:
		if r.ViewPos < m.MaxScroll {
			r.ViewPos++
		}
	case ScrollToTopMsg:
		r.ViewPos = 0
	case ScrollToBottomMsg:
		r.ViewPos = max(m.MaxScroll, 0)
	case PageUpMsg:
		r.ViewPos = max(r.ViewPos-pageSize, 0)
	case PageDownMsg:
		r.ViewPos = max(min(r.ViewPos+pageSize, m.MaxScroll), 0)
	case ResizeRightPaneMsg:
		r.Width = m.Width
		r.Height = m.Height
	}
	return nil
}

// maxScroll returns the largest useful ViewPos for lines.
func maxScroll(model RightPaneModel, lines []string) int {
	return max(len(lines)-model.availableHeight(), 0)
}

// RightPaneView renders the selected entry's full content. entry is nil when
// the history is empty.
func RightPaneView(model RightPaneModel, entry *history.Entry, index int, lines []string, pattern string, focused bool) (string, error) {
	borderColor := "62"
	if focused {
		borderColor = "205"
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(borderColor)).
		Padding(0, 1).
		Width(model.Width - 2).
		Height(model.Height - 4)

	var content strings.Builder
	if entry == nil {
		content.WriteString(lipgloss.NewStyle().Bold(true).Render("Content") + "\n\n")
		content.WriteString("History is empty")
		return style.Render(content.String()), nil
	}

	title := fmt.Sprintf("Entry [%d] %s %s", index, entry.Timestamp, entry.Source)
	if entry.Overflowed() {
		title += " overflow:" + entry.OverflowHash
	}
	if focused {
		title = "● " + title
	}
	height := model.availableHeight()
	if len(lines) > height {
		bottom := min(model.ViewPos+height, len(lines))
		title += fmt.Sprintf(" (%d-%d/%d)", model.ViewPos+1, bottom, len(lines))
	}
	content.WriteString(lipgloss.NewStyle().Bold(true).Render(truncate(title, model.Width-6)) + "\n\n")

	var re *regexp.Regexp
	if pattern != "" {
		re, _ = regexp.Compile("(?i)" + pattern)
	}

	end := min(model.ViewPos+height, len(lines))
	for i := model.ViewPos; i < end; i++ {
		content.WriteString(highlightMatches(lines[i], re) + "\n")
	}

	return style.Render(strings.TrimSuffix(content.String(), "\n")), nil
}

// highlightMatches marks every match of re in line.
func highlightMatches(line string, re *regexp.Regexp) string {
	if re == nil {
		return line
	}
	matches := re.FindAllStringIndex(line, -1)
	if len(matches) == 0 {
		return line
	}

	mark := lipgloss.NewStyle().
		Background(lipgloss.Color("11")).
		Foreground(lipgloss.Color("0"))

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(line[last:m[0]])
		b.WriteString(mark.Render(line[m[0]:m[1]]))
		last = m[1]
	}
	b.WriteString(line[last:])
	return b.String()
}
