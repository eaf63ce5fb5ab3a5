package app

import (
	"context"
	"log/slog"

	"github.com/yiblet/halen/internal/chord"
	"github.com/yiblet/halen/internal/clipboard"
	"github.com/yiblet/halen/internal/history"
)

func (a *App) perform(actions []chord.Action) {
	for _, action := range actions {
		slog.Debug("performing action", "action", action.Kind)
		switch action.Kind {
		case chord.ActionShow:
			a.show()
		case chord.ActionNavigateNext:
			a.navigate(history.Next(a.cursor.Resolve(), a.store.Count()))
		case chord.ActionNavigatePrev:
			a.navigate(history.Prev(a.cursor.Resolve(), a.store.Count()))
		case chord.ActionCut:
			a.cut()
		case chord.ActionDelete:
			a.delete(action.Direction)
		case chord.ActionCancel:
			a.hide()
			a.cursor.Reset()
		case chord.ActionReplaySinglePaste:
			a.replay()
		case chord.ActionCommit:
			a.commit(action.Paste)
		}
	}
}

func (a *App) show() {
	count := a.store.Count()
	if count == 0 {
		slog.Info("history is empty, nothing to show")
		return
	}
	index := a.cursor.Resolve()
	if !a.cursor.Set(index, count) {
		index = 0
		a.cursor.Set(index, count)
	}
	a.render(index, count)
}

func (a *App) navigate(index int) {
	count := a.store.Count()
	if index == history.Unset || !a.cursor.Set(index, count) {
		return
	}
	a.render(index, count)
}

// render shows entry index in the popup, opening it if needed.
func (a *App) render(index, count int) {
	preview, ok := a.store.EntryTruncated(index)
	if !ok {
		slog.Warn("entry not available", "index", index)
		return
	}
	a.popup.SetPosition(index, count)

	var err error
	if a.popup.IsShowing() {
		err = a.popup.Update(preview)
	} else {
		err = a.popup.Show(preview)
	}
	if err != nil {
		slog.Warn("failed to display entry", "index", index, "error", err)
	}
}

func (a *App) hide() {
	if err := a.popup.Hide(); err != nil {
		slog.Warn("failed to hide popup", "error", err)
	}
}

// setClipboard puts the full content of entry index on the CLIPBOARD.
func (a *App) setClipboard(index int) bool {
	content, ok := a.store.EntryFullContent(index)
	if !ok {
		slog.Warn("no entry to place on the clipboard", "index", index)
		return false
	}
	if err := a.board.Write(context.Background(), clipboard.Clipboard, content); err != nil {
		slog.Error("failed to set clipboard", "error", err)
		return false
	}
	return true
}

// cut places the selected entry on the clipboard without pasting it.
func (a *App) cut() {
	index := a.cursor.Resolve()
	if a.setClipboard(index) {
		slog.Info("entry copied to clipboard", "index", index)
	}
	a.hide()
	a.cursor.Reset()
}

func (a *App) delete(direction chord.Direction) {
	index := a.cursor.Resolve()
	if !a.store.DeleteEntry(index) {
		slog.Warn("failed to delete entry", "index", index)
		return
	}

	count := a.store.Count()
	next := history.AfterDelete(index, count, direction == chord.DirectionNext)
	if next == history.Unset {
		slog.Info("history is now empty")
		a.hide()
		a.cursor.Reset()
		a.rec.ResetDirection()
		return
	}
	a.cursor.Set(next, count)
	a.render(next, count)
}

// commit ends a browsing chord. With paste set the selected entry replaces
// the clipboard and is pasted into the focused window; otherwise the chord
// ended in a cut that already updated the clipboard.
func (a *App) commit(paste bool) {
	a.hide()
	defer a.cursor.Reset()

	if !paste {
		return
	}
	if a.store.Count() == 0 {
		slog.Info("history is empty, nothing to paste")
		return
	}

	index := a.cursor.Resolve()
	if !a.setClipboard(index) {
		return
	}
	a.sleep(a.timing.CommitDelay)
	a.replay()
	slog.Info("pasted history entry", "index", index)
}

func (a *App) replay() {
	if err := a.rec.Replay(); err != nil {
		slog.Error("failed to replay paste", "error", err)
	}
}
