// Package tui implements the interactive history browser: a list of
// entries next to the full content of the selected one, with search, copy
// and delete.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yiblet/halen/internal/clipboard"
	"github.com/yiblet/halen/internal/history"
)

// FlashDuration is how long status notifications stay up.
const FlashDuration = 2 * time.Second

// History is the part of history.Store the browser uses.
type History interface {
	Entries() []history.Entry
	EntryFullContent(index int) (string, bool)
	DeleteEntry(index int) bool
	Reload()
}

// PaneType represents which pane is focused
type PaneType int

const (
	LeftPane PaneType = iota
	RightPane
)

// UIMode represents the current modal state of the application
type UIMode int

const (
	NormalMode UIMode = iota
	SearchMode
	HelpMode
	DeleteMode
)

type flashExpiredMsg struct{}

// copiedMsg reports the result of a clipboard write.
type copiedMsg struct {
	Index int
	Bytes int
	Err   error
}

// AppModel orchestrates all sub-models
type AppModel struct {
	Width       int
	Height      int
	LeftWidth   int
	RightWidth  int
	ActivePane  PaneType
	CurrentMode UIMode

	LeftPane  LeftPaneModel
	RightPane RightPaneModel
	Search    SearchModel
	Modal     ModalModel
	Entries   []history.Entry

	FlashMessage string
	FlashExpiry  time.Time

	store   History
	board   clipboard.Board
	content map[int][]string // wrapped full content by entry index
	wrapAt  int
}

// NewAppModel creates a browser over store. Enter copies the selected entry
// to board.
func NewAppModel(store History, board clipboard.Board) *AppModel {
	const (
		defaultWidth      = 120
		defaultHeight     = 20
		defaultLeftWidth  = 40
		defaultRightWidth = defaultWidth - defaultLeftWidth - 3
	)

	a := &AppModel{
		Width:       defaultWidth,
		Height:      defaultHeight,
		LeftWidth:   defaultLeftWidth,
		RightWidth:  defaultRightWidth,
		ActivePane:  LeftPane,
		CurrentMode: NormalMode,
		LeftPane:    NewLeftPaneModel(defaultLeftWidth, defaultHeight),
		RightPane:   NewRightPaneModel(defaultRightWidth, defaultHeight),
		Search:      NewSearchModel(),
		Modal:       NewModalModel(),
		store:       store,
		board:       board,
	}
	a.refresh()
	return a
}

func (a *AppModel) Init() tea.Cmd {
	return nil
}

// Update handles app-level messages and routes to the sub-models.
func (a *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		return a.handleWindowResize(m)
	case tea.KeyMsg:
		return a.handleKeyPress(m)
	case copiedMsg:
		if m.Err != nil {
			return a, a.setFlashMessage(fmt.Sprintf("Copy failed: %v", m.Err), FlashDuration)
		}
		return a, a.setFlashMessage(fmt.Sprintf("Copied entry %d (%d bytes) to clipboard", m.Index, m.Bytes), FlashDuration)
	case flashExpiredMsg:
		if !time.Now().Before(a.FlashExpiry) {
			a.FlashMessage = ""
			a.FlashExpiry = time.Time{}
		}
	}
	return a, nil
}

func (a *AppModel) handleWindowResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	a.Width = msg.Width
	a.Height = msg.Height
	a.LeftWidth = min(max(msg.Width/3, 20), 60)
	a.RightWidth = max(msg.Width-a.LeftWidth-3, 10)

	paneHeight := max(msg.Height-2, 6)
	a.LeftPane.Update(ResizeLeftPaneMsg{Width: a.LeftWidth, Height: paneHeight})
	a.RightPane.Update(ResizeRightPaneMsg{Width: a.RightWidth, Height: paneHeight})
	a.clampViewPos()
	return a, nil
}

func (a *AppModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.CurrentMode {
	case SearchMode:
		return a.handleSearchModeKeys(msg)
	case HelpMode:
		return a.handleHelpModeKeys(key)
	case DeleteMode:
		return a.handleDeleteModeKeys(key)
	}
	return a.handleNormalModeKeys(key)
}

func (a *AppModel) handleSearchModeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.Search.Update(CancelSearchMsg{})
		a.CurrentMode = NormalMode
	case tea.KeyEnter:
		a.Search.Update(ExecuteSearchMsg{})
		if a.Search.Active {
			return a, nil
		}
		a.CurrentMode = NormalMode
		if a.Search.Pattern == "" {
			return a, nil
		}
		return a, a.applySearch()
	case tea.KeyBackspace:
		input := []rune(a.Search.Input)
		if len(input) > 0 {
			a.Search.Update(UpdateSearchInputMsg{Input: string(input[:len(input)-1])})
		}
	case tea.KeySpace:
		a.Search.Update(UpdateSearchInputMsg{Input: a.Search.Input + " "})
	case tea.KeyRunes:
		a.Search.Update(UpdateSearchInputMsg{Input: a.Search.Input + string(msg.Runes)})
	}
	return a, nil
}

// applySearch recomputes the matches for the current pattern and jumps to
// the first match at or after the cursor.
func (a *AppModel) applySearch() tea.Cmd {
	matches, err := findMatches(a.Entries, a.Search.Pattern)
	if err != nil {
		return a.setFlashMessage(fmt.Sprintf("Invalid pattern: %v", err), FlashDuration)
	}
	a.Search.SetMatches(matches, a.LeftPane.Cursor)
	if index, ok := a.Search.CurrentEntry(); ok {
		a.selectEntry(index)
		return nil
	}
	return a.setFlashMessage(fmt.Sprintf("Pattern not found: %s", a.Search.Pattern), FlashDuration)
}

func (a *AppModel) handleHelpModeKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return a, tea.Quit
	case "?", "z", "esc":
		a.CurrentMode = NormalMode
	}
	return a, nil
}

func (a *AppModel) handleDeleteModeKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y", "enter":
		a.Modal.Update(HideModalMsg{})
		a.CurrentMode = NormalMode
		return a, a.deleteSelected()
	case "n", "N", "esc", "q":
		a.Modal.Update(HideModalMsg{})
		a.CurrentMode = NormalMode
	}
	return a, nil
}

func (a *AppModel) handleNormalModeKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return a, tea.Quit
	case "esc":
		if a.Search.Pattern != "" {
			a.Search.Update(ClearSearchMsg{})
			return a, nil
		}
		return a, tea.Quit
	case "tab":
		if a.ActivePane == LeftPane {
			a.ActivePane = RightPane
		} else {
			a.ActivePane = LeftPane
		}
	case "h", "left":
		a.ActivePane = LeftPane
	case "l", "right":
		a.ActivePane = RightPane
	case "?", "z":
		a.CurrentMode = HelpMode
	case "/":
		a.Search.Update(StartSearchMsg{})
		a.CurrentMode = SearchMode
	case "n":
		return a, a.stepMatch(NextMatchMsg{})
	case "N":
		return a, a.stepMatch(PrevMatchMsg{})
	case "enter", "c", "y":
		return a, a.copySelected()
	case "d":
		entry, ok := a.selected()
		if !ok {
			return a, a.setFlashMessage("Nothing to delete", FlashDuration)
		}
		a.Modal.Update(ShowDeleteConfirmation(entry.Content, a.LeftPane.Cursor))
		a.CurrentMode = DeleteMode
	case "r":
		a.store.Reload()
		a.refresh()
		return a, a.setFlashMessage(fmt.Sprintf("Reloaded %d entries", len(a.Entries)), FlashDuration)
	case "ctrl+d", "pgdown":
		a.RightPane.Update(PageDownMsg{MaxScroll: a.maxScroll()})
	case "ctrl+u", "pgup":
		a.RightPane.Update(PageUpMsg{})
	default:
		if a.ActivePane == LeftPane {
			a.handleLeftPaneKeys(key)
		} else {
			a.handleRightPaneKeys(key)
		}
	}
	return a, nil
}

func (a *AppModel) handleLeftPaneKeys(key string) {
	last := len(a.Entries) - 1
	before := a.LeftPane.Cursor
	switch key {
	case "j", "down":
		a.LeftPane.Update(NavigateDownMsg{MaxIndex: last})
	case "k", "up":
		a.LeftPane.Update(NavigateUpMsg{})
	case "g", "home":
		a.LeftPane.Update(GoToTopMsg{})
	case "G", "end":
		a.LeftPane.Update(GoToBottomMsg{MaxIndex: last})
	}
	if a.LeftPane.Cursor != before {
		a.RightPane.Update(ScrollToTopMsg{})
	}
}

func (a *AppModel) handleRightPaneKeys(key string) {
	switch key {
	case "j", "down":
		a.RightPane.Update(ScrollDownMsg{MaxScroll: a.maxScroll()})
	case "k", "up":
		a.RightPane.Update(ScrollUpMsg{})
	case "g", "home":
		a.RightPane.Update(ScrollToTopMsg{})
	case "G", "end":
		a.RightPane.Update(ScrollToBottomMsg{MaxScroll: a.maxScroll()})
	}
}

func (a *AppModel) stepMatch(msg SearchMsg) tea.Cmd {
	if !a.Search.HasMatches() {
		if a.Search.Pattern == "" {
			return nil
		}
		return a.setFlashMessage(fmt.Sprintf("Pattern not found: %s", a.Search.Pattern), FlashDuration)
	}
	a.Search.Update(msg)
	if index, ok := a.Search.CurrentEntry(); ok {
		a.selectEntry(index)
	}
	return nil
}

func (a *AppModel) selectEntry(index int) {
	a.LeftPane.Update(SelectItemMsg{Index: index, MaxIndex: len(a.Entries) - 1})
	a.RightPane.Update(ScrollToTopMsg{})
}

func (a *AppModel) selected() (history.Entry, bool) {
	if a.LeftPane.Cursor < 0 || a.LeftPane.Cursor >= len(a.Entries) {
		return history.Entry{}, false
	}
	return a.Entries[a.LeftPane.Cursor], true
}

// copySelected writes the selected entry's full content to the CLIPBOARD.
func (a *AppModel) copySelected() tea.Cmd {
	index := a.LeftPane.Cursor
	content, ok := a.store.EntryFullContent(index)
	if !ok {
		return a.setFlashMessage("No entry selected", FlashDuration)
	}
	board := a.board
	return func() tea.Msg {
		err := board.Write(context.Background(), clipboard.Clipboard, content)
		return copiedMsg{Index: index, Bytes: len(content), Err: err}
	}
}

func (a *AppModel) deleteSelected() tea.Cmd {
	index := a.LeftPane.Cursor
	if !a.store.DeleteEntry(index) {
		return a.setFlashMessage(fmt.Sprintf("Failed to delete entry %d", index), FlashDuration)
	}
	a.refresh()
	return a.setFlashMessage(fmt.Sprintf("Deleted entry %d", index), FlashDuration)
}

// refresh reloads the entries from the store and drops cached content.
func (a *AppModel) refresh() {
	a.Entries = a.store.Entries()
	a.content = make(map[int][]string)
	a.LeftPane.Update(SelectItemMsg{Index: a.LeftPane.Cursor, MaxIndex: len(a.Entries) - 1})
	a.RightPane.Update(ScrollToTopMsg{})
	if a.Search.Pattern != "" {
		matches, err := findMatches(a.Entries, a.Search.Pattern)
		if err == nil {
			a.Search.SetMatches(matches, a.LeftPane.Cursor)
		}
	}
}

// selectedLines returns the wrapped full content of the selected entry.
func (a *AppModel) selectedLines() []string {
	width := a.RightPane.textWidth()
	if width != a.wrapAt {
		a.content = make(map[int][]string)
		a.wrapAt = width
	}

	index := a.LeftPane.Cursor
	if lines, ok := a.content[index]; ok {
		return lines
	}
	content, ok := a.store.EntryFullContent(index)
	if !ok {
		return nil
	}
	lines := WrapText(content, width)
	a.content[index] = lines
	return lines
}

func (a *AppModel) maxScroll() int {
	return maxScroll(a.RightPane, a.selectedLines())
}

func (a *AppModel) clampViewPos() {
	a.RightPane.ViewPos = min(a.RightPane.ViewPos, a.maxScroll())
}

// setFlashMessage shows message in the status line for duration.
func (a *AppModel) setFlashMessage(message string, duration time.Duration) tea.Cmd {
	a.FlashMessage = message
	a.FlashExpiry = time.Now().Add(duration)
	return tea.Tick(duration, func(time.Time) tea.Msg {
		return flashExpiredMsg{}
	})
}

func (a *AppModel) View() string {
	if a.Width == 0 {
		return "Initializing..."
	}
	if a.CurrentMode == HelpMode {
		return renderHelpView(a.Width, a.Height) + "\n\n" + a.renderStatusLine()
	}
	if a.Modal.Active {
		return ModalView(a.Modal, a.Width, a.Height)
	}
	return a.renderNormalView()
}

func (a *AppModel) renderNormalView() string {
	left, _ := LeftPaneView(a.LeftPane, a.Entries, a.Search.MatchSet(), a.ActivePane == LeftPane)

	var entry *history.Entry
	var lines []string
	if e, ok := a.selected(); ok {
		entry = &e
		lines = a.selectedLines()
	}
	right, _ := RightPaneView(a.RightPane, entry, a.LeftPane.Cursor, lines, a.Search.Pattern, a.ActivePane == RightPane)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, right) + "\n" + a.renderStatusLine()
}

func (a *AppModel) renderStatusLine() string {
	style := lipgloss.NewStyle().Width(a.Width)

	if a.FlashMessage != "" && time.Now().Before(a.FlashExpiry) {
		return style.Foreground(lipgloss.Color("10")).Render(a.FlashMessage)
	}

	var status string
	switch {
	case a.CurrentMode == SearchMode:
		status = "/" + a.Search.Input
		if a.Search.Error != "" {
			status += fmt.Sprintf(" (Error: %s)", a.Search.Error)
		} else {
			status += " (Enter to search, Esc to cancel)"
		}
	case a.Search.HasMatches():
		status = fmt.Sprintf("Pattern: %s - Match %d of %d (n/N to step, Esc to clear)",
			a.Search.Pattern, a.Search.CurrentMatch+1, len(a.Search.Matches))
	case a.CurrentMode == HelpMode:
		status = "Help - press ? to return, q to quit"
	default:
		status = "enter: copy | d: delete | /: search | ?: help | q: quit"
	}
	return style.Render(status)
}

const helpText = `halen - clipboard history browser

NAVIGATION:
  j, ↓        Next (older) entry, or scroll down in the content pane
  k, ↑        Previous (newer) entry, or scroll up
  g, G        First / last entry, or top / bottom of the content
  Ctrl+d/u    Page the content pane down / up
  Tab, h, l   Switch panes

SEARCH:
  /pattern    Find entries matching a case-insensitive regexp
  n, N        Next / previous matching entry
  Esc         Clear the search

ENTRIES:
  Enter, c    Copy the selected entry to the clipboard
  d           Delete the selected entry
  r           Reload the history from disk

LIST MARKERS:
  +           Full content stored in an overflow file
  p           Captured from the PRIMARY selection

  ?, z        Toggle this help
  q           Quit`

func renderHelpView(width, height int) string {
	lines := strings.Count(helpText, "\n") + 1
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(1).
		Width(max(width-4, 20)).
		Height(max(height-4, lines)).
		Render(helpText)
}
