package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ModalMsg represents messages that the modal component handles
type ModalMsg interface {
	isModalMsg()
}

type ShowModalMsg struct {
	Title   string
	Content string
	Options string
}

func (ShowModalMsg) isModalMsg() {}

type HideModalMsg struct{}

func (HideModalMsg) isModalMsg() {}

// ModalModel holds the state for modal dialogs
type ModalModel struct {
	Active  bool
	Title   string
	Content string
	Options string
	Width   int
}

func NewModalModel() ModalModel {
	return ModalModel{Width: 60}
}

func (m *ModalModel) Update(msg ModalMsg) error {
	switch msg := msg.(type) {
	case ShowModalMsg:
		m.Active = true
		m.Title = msg.Title
		m.Content = msg.Content
		m.Options = msg.Options
	case HideModalMsg:
		m.Active = false
		m.Title = ""
		m.Content = ""
		m.Options = ""
	}
	return nil
}

// ModalView renders the dialog centred in a window of the given size. The
// background is not drawn while a dialog is open.
func ModalView(model ModalModel, windowWidth, windowHeight int) string {
	width := min(model.Width, max(windowWidth-4, 20))

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(model.Title))
	if model.Content != "" {
		b.WriteString("\n\n" + model.Content)
	}
	if model.Options != "" {
		b.WriteString("\n\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(model.Options))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("196")).
		Padding(1, 2).
		Width(width).
		Render(b.String())

	return lipgloss.Place(windowWidth, windowHeight, lipgloss.Center, lipgloss.Center, box)
}

// ShowDeleteConfirmation builds the dialog asking to delete entry index.
func ShowDeleteConfirmation(preview string, index int) ShowModalMsg {
	preview = truncate(strings.Join(strings.Fields(preview), " "), 50)
	return ShowModalMsg{
		Title:   "Delete entry?",
		Content: fmt.Sprintf("Entry %d: %s", index, preview),
		Options: "y: delete   n/esc: cancel",
	}
}
