package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yiblet/halen/internal/history"
)

// LeftPaneMsg represents messages that the left pane component handles
type LeftPaneMsg interface {
	isLeftPaneMsg()
}

type NavigateUpMsg struct{}

func (NavigateUpMsg) isLeftPaneMsg() {}

type NavigateDownMsg struct {
	MaxIndex int // Maximum valid index for bounds checking
}

func (NavigateDownMsg) isLeftPaneMsg() {}

type GoToTopMsg struct{}

func (GoToTopMsg) isLeftPaneMsg() {}

type GoToBottomMsg struct {
	MaxIndex int
}

func (GoToBottomMsg) isLeftPaneMsg() {}

type SelectItemMsg struct {
	Index    int
	MaxIndex int
}

func (SelectItemMsg) isLeftPaneMsg() {}

type ResizeLeftPaneMsg struct {
	Width  int
	Height int
}

func (ResizeLeftPaneMsg) isLeftPaneMsg() {}

// LeftPaneModel holds the state for the entry list.
type LeftPaneModel struct {
	Cursor int // Selected entry, 0 is the newest
	Offset int // First entry shown
	Width  int
	Height int
}

func NewLeftPaneModel(width, height int) LeftPaneModel {
	return LeftPaneModel{Width: width, Height: height}
}

// visibleRows is the number of entries that fit in the pane.
func (l LeftPaneModel) visibleRows() int {
	return max(l.Height-6, 1)
}

func (l *LeftPaneModel) Update(msg LeftPaneMsg) error {
	switch m := msg.(type) {
	case NavigateUpMsg:
		if l.Cursor > 0 {
			l.Cursor--
		}
	case NavigateDownMsg:
		if l.Cursor < m.MaxIndex {
			l.Cursor++
		}
	case GoToTopMsg:
		l.Cursor = 0
	case GoToBottomMsg:
		l.Cursor = max(m.MaxIndex, 0)
	case SelectItemMsg:
		if m.Index >= 0 && m.Index <= m.MaxIndex {
			l.Cursor = m.Index
		}
		// A shrinking list can leave the cursor past the end.
		l.Cursor = max(min(l.Cursor, m.MaxIndex), 0)
	case ResizeLeftPaneMsg:
		l.Width = m.Width
		l.Height = m.Height
	}
	l.scroll()
	return nil
}

// scroll keeps the cursor inside the visible window.
func (l *LeftPaneModel) scroll() {
	rows := l.visibleRows()
	if l.Cursor < l.Offset {
		l.Offset = l.Cursor
	}
	if l.Cursor >= l.Offset+rows {
		l.Offset = l.Cursor - rows + 1
	}
	l.Offset = max(l.Offset, 0)
}

// entryLabel is the one-line summary of an entry in the list.
func entryLabel(index int, e history.Entry, width int) string {
	marker := " "
	switch {
	case e.Overflowed():
		marker = "+"
	case e.Source == history.SourcePrimary:
		marker = "p"
	}
	preview := strings.Join(strings.Fields(e.Content), " ")
	prefix := fmt.Sprintf("%d%s ", index, marker)
	return prefix + truncate(preview, width-len(prefix))
}

// LeftPaneView renders the entry list as a pure function
func LeftPaneView(model LeftPaneModel, entries []history.Entry, matches map[int]bool, focused bool) (string, error) {
	borderColor := "62"
	if focused {
		borderColor = "205"
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(borderColor)).
		Padding(0, 1).
		Width(model.Width).
		Height(model.Height - 4)

	var content strings.Builder
	title := fmt.Sprintf("History (%d)", len(entries))
	if focused {
		title = "● " + title
	}
	content.WriteString(lipgloss.NewStyle().Bold(true).Render(title) + "\n\n")

	if len(entries) == 0 {
		content.WriteString("No entries")
		return style.Render(content.String()), nil
	}

	lineWidth := model.Width - 4
	end := min(model.Offset+model.visibleRows(), len(entries))
	for i := model.Offset; i < end; i++ {
		line := entryLabel(i, entries[i], lineWidth)
		switch {
		case i == model.Cursor:
			line = lipgloss.NewStyle().
				Background(lipgloss.Color("62")).
				Foreground(lipgloss.Color("230")).
				Width(lineWidth).
				Render(line)
		case matches[i]:
			line = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Render(line)
		}
		content.WriteString(line + "\n")
	}

	return style.Render(strings.TrimSuffix(content.String(), "\n")), nil
}
