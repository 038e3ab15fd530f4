package views

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fpdash/fpboard/internal/dashboard"
	"github.com/fpdash/fpboard/internal/dataverse"
	"github.com/fpdash/fpboard/internal/db"
	"github.com/fpdash/fpboard/internal/mapper"
	"github.com/fpdash/fpboard/internal/placeholder"
)

var now = time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func newBackend(t *testing.T) (*dashboard.Service, *dataverse.Memory) {
	t.Helper()
	src := placeholder.NewSource(now)
	return &dashboard.Service{Loader: &mapper.Loader{Src: src}, Now: clock, Offline: true}, src
}

func newStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends keys in order and returns the command from the last one
func press(m tea.Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(keyPress(k))
	}
	return cmd
}

// deliver runs cmd and feeds its message back, returning the follow-up
func deliver(t *testing.T, m tea.Model, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	_, next := m.Update(cmd())
	return next
}
