package ui

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fpdash/fpboard/internal/db"
	"github.com/fpdash/fpboard/internal/models"
	"github.com/fpdash/fpboard/internal/ui/keys"
	"github.com/fpdash/fpboard/internal/ui/views"
	"github.com/fpdash/fpboard/internal/utilization"
)

// Currently active view
type View int

const (
	ViewTasks View = iota
	ViewTimeline
	ViewResources
	viewCount
)

var viewNames = [viewCount]string{"tasks", "timeline", "resources"}

func (v View) String() string {
	if v >= 0 && v < viewCount {
		return viewNames[v]
	}
	return "unknown"
}

// ParseView reads a saved view name
func ParseView(s string) (View, bool) {
	for i, n := range viewNames {
		if n == s {
			return View(i), true
		}
	}
	return ViewTasks, false
}

// Store keeps preferences between runs
type Store interface {
	views.Settings
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Options wires the app
type Options struct {
	Backend    views.Backend
	Store      Store // optional
	Self       models.User
	Start      View
	Resume     bool // open the view used last instead of Start
	Range      string
	Classifier utilization.Classifier
	Now        func() time.Time
}

type page interface {
	tea.Model
	Capturing() bool
}

type App struct {
	store   Store
	keys    keys.KeyMap
	current View
	pages   [viewCount]page
	started [viewCount]bool
	width   int
	height  int
}

// Creates a new application
func NewApp(opts Options) *App {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	a := &App{
		store:   opts.Store,
		keys:    keys.DefaultKeyMap(),
		current: opts.Start,
	}
	if opts.Resume && opts.Store != nil {
		// Check for last opened view
		if last, err := opts.Store.GetSetting(db.KeyLastView); err == nil {
			if v, ok := ParseView(last); ok {
				a.current = v
			}
		}
	}

	a.pages[ViewTasks] = views.NewBoardView(opts.Backend, opts.Self)
	a.pages[ViewTimeline] = views.NewTimelineView(opts.Backend, opts.Store, utilization.HorizonForRange(opts.Range), now)
	a.pages[ViewResources] = views.NewResourceView(opts.Backend, opts.Store, opts.Range, opts.Classifier, now)
	return a
}

// Current is the view on screen
func (a *App) Current() View { return a.current }

func (a *App) Init() tea.Cmd {
	return a.show(a.current)
}

// show switches view, loading it the first time it is shown
func (a *App) show(v View) tea.Cmd {
	a.current = v
	if a.store != nil {
		if err := a.store.SetSetting(db.KeyLastView, v.String()); err != nil {
			slog.Warn("save last view", "error", err)
		}
	}

	var cmds []tea.Cmd
	if !a.started[v] {
		a.started[v] = true
		cmds = append(cmds, a.pages[v].Init())
	}
	if a.width > 0 {
		cmds = append(cmds, func() tea.Msg {
			return tea.WindowSizeMsg{Width: a.width, Height: a.height}
		})
	}
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case tea.KeyMsg:
		p := a.pages[a.current]
		if !p.Capturing() && key.Matches(msg, a.keys.NextView) {
			return a, a.show((a.current + 1) % viewCount)
		}
		_, cmd := p.Update(msg)
		return a, cmd
	}

	// Everything else reaches every view; each drops what is not its own
	var cmds []tea.Cmd
	for _, p := range a.pages {
		_, cmd := p.Update(msg)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (a *App) View() string {
	return a.pages[a.current].View()
}
