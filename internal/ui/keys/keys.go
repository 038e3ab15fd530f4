package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keybindings for the application
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	MoveLeft  key.Binding
	MoveRight key.Binding
	Enter     key.Binding
	Back      key.Binding
	Quit      key.Binding
	Tab       key.Binding
	NextView  key.Binding
	Help      key.Binding
	Refresh   key.Binding

	// Board
	Edit    key.Binding
	Save    key.Binding
	Search  key.Binding
	Status  key.Binding
	Project key.Binding
	Mode    key.Binding
	Toggle  key.Binding
	Users   key.Binding
	Me      key.Binding

	// Site views
	Site       key.Binding
	Department key.Binding
	Milestones key.Binding
	Category   key.Binding
	Horizon    key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev lane"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next lane"),
		),
		MoveLeft: key.NewBinding(
			key.WithKeys("shift+left", "<"),
			key.WithHelp("<", "move left"),
		),
		MoveRight: key.NewBinding(
			key.WithKeys("shift+right", ">"),
			key.WithHelp(">", "move right"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("↵", "select"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		NextView: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next view"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r", "ctrl+r"),
			key.WithHelp("r", "refresh"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Status: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "status"),
		),
		Project: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "project"),
		),
		Mode: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "board/list"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "expand"),
		),
		Users: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "view user"),
		),
		Me: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "my tasks"),
		),
		Site: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "site"),
		),
		Department: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "department"),
		),
		Milestones: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "milestones"),
		),
		Category: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "category"),
		),
		Horizon: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "range"),
		),
	}
}
