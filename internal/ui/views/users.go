package views

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fpdash/fpboard/internal/dashboard"
	"github.com/fpdash/fpboard/internal/mapper"
	"github.com/fpdash/fpboard/internal/models"
	"github.com/fpdash/fpboard/internal/ui/keys"
	"github.com/fpdash/fpboard/internal/ui/styles"
)

type userItem struct {
	user models.User
}

func (i userItem) Title() string       { return i.user.Name }
func (i userItem) Description() string { return i.user.Email }
func (i userItem) FilterValue() string { return i.user.Name }

type userDelegate struct {
	styles *styles.Styles
	width  int
}

func (d userDelegate) Height() int                               { return 2 }
func (d userDelegate) Spacing() int                              { return 0 }
func (d userDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d userDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	u, ok := item.(userItem)
	if !ok {
		return
	}

	width := max(d.width-4, 20)
	nameStyle := d.styles.ListItem.Width(width)
	mailStyle := d.styles.ListItem.Foreground(styles.Current.ForegroundDim).Width(width)
	if index == m.Index() {
		nameStyle = d.styles.ListSelected.Width(width)
		mailStyle = d.styles.ListSelected.Foreground(styles.Current.ForegroundDim).Width(width)
	}

	chip := lipgloss.NewStyle().Foreground(styles.Current.Accent).Render(models.Initials(u.user.Name))
	fmt.Fprintf(w, "%s\n%s", nameStyle.Render(chip+"  "+u.Title()), mailStyle.Render("    "+u.Description()))
}

type usersFoundMsg struct {
	gen   uint64
	users []models.User
	err   error
}

// UserSelected is sent when a user is picked to view the board as
type UserSelected struct {
	User models.User
}

type pickerClosed struct{}

// UserPicker searches the directory as the user types
type UserPicker struct {
	backend  Backend
	input    textinput.Model
	list     list.Model
	delegate *userDelegate
	styles   *styles.Styles
	keys     keys.KeyMap
	gen      dashboard.Generation

	searching bool
	err       error
}

// NewUserPicker creates an empty picker
func NewUserPicker(backend Backend) *UserPicker {
	s := styles.NewStyles()

	input := textinput.New()
	input.Placeholder = "Search people..."
	input.CharLimit = 100

	delegate := &userDelegate{styles: s, width: 60}
	l := list.New([]list.Item{}, delegate, 60, 12)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return &UserPicker{
		backend:  backend,
		input:    input,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
	}
}

// Open clears the previous search and focuses the input
func (p *UserPicker) Open() tea.Cmd {
	p.gen.Next()
	p.input.Reset()
	p.list.SetItems(nil)
	p.searching = false
	p.err = nil
	return p.input.Focus()
}

// SetSize fits the result list to the terminal
func (p *UserPicker) SetSize(width, height int) {
	w := clamp(styles.ContentWidth(width)-8, 24, 60)
	p.delegate.width = w
	p.input.Width = w - 4
	p.list.SetSize(w, clamp(height-10, 4, 20))
}

// Update handles keys and search results
func (p *UserPicker) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case usersFoundMsg:
		if !p.gen.Current(msg.gen) {
			return nil
		}
		p.searching = false
		p.err = msg.err
		items := make([]list.Item, 0, len(msg.users))
		for _, u := range msg.users {
			items = append(items, userItem{user: u})
		}
		return p.list.SetItems(items)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Back):
			p.input.Blur()
			return func() tea.Msg { return pickerClosed{} }

		case key.Matches(msg, p.keys.Enter):
			item, ok := p.list.SelectedItem().(userItem)
			if !ok {
				return nil
			}
			p.input.Blur()
			return func() tea.Msg { return UserSelected{User: item.user} }

		// arrows only; letters go to the search box
		case msg.Type == tea.KeyUp:
			p.list.CursorUp()
			return nil

		case msg.Type == tea.KeyDown:
			p.list.CursorDown()
			return nil
		}

		before := p.input.Value()
		var cmd tea.Cmd
		p.input, cmd = p.input.Update(msg)
		if p.input.Value() == before {
			return cmd
		}
		return tea.Batch(cmd, p.search(p.input.Value()))
	}
	return nil
}

// search starts a lookup for term. Every keystroke supersedes the previous
// lookup, including ones too short to send.
func (p *UserPicker) search(term string) tea.Cmd {
	gen := p.gen.Next()
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < mapper.MinSearchLength {
		p.searching = false
		p.list.SetItems(nil)
		return nil
	}
	p.searching = true
	backend := p.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		users, err := backend.SearchUsers(ctx, term)
		return usersFoundMsg{gen: gen, users: users, err: err}
	}
}

// View renders the picker box
func (p *UserPicker) View() string {
	s := p.styles

	var results string
	switch {
	case p.err != nil:
		results = lipgloss.NewStyle().Foreground(styles.Current.Error).Render("Search failed: " + p.err.Error())
	case p.searching:
		results = s.TitleMuted.Render("Searching...")
	case len(p.list.Items()) == 0:
		results = s.TitleMuted.Render(fmt.Sprintf("Type at least %d letters", mapper.MinSearchLength))
	default:
		results = p.list.View()
	}

	return s.FilterBar.Render(lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("View tasks for"),
		"",
		s.InputFocused.Render(p.input.View()),
		"",
		results,
		"",
		s.TitleMuted.Render("↑↓: select • ↵: view • Esc: cancel"),
	))
}
