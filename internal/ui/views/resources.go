package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fpdash/fpboard/internal/dashboard"
	"github.com/fpdash/fpboard/internal/models"
	"github.com/fpdash/fpboard/internal/ui/keys"
	"github.com/fpdash/fpboard/internal/ui/styles"
	"github.com/fpdash/fpboard/internal/utilization"
)

// Ranges offered by the range key, in order
var Ranges = []string{"12months", "24months", "all"}

// ResourceView lists each person's load at a site with a weekly heat strip
type ResourceView struct {
	backend    Backend
	styles     *styles.Styles
	keys       keys.KeyMap
	now        func() time.Time
	classifier utilization.Classifier

	width  int
	height int

	filter   siteFilter
	rangeIdx int
	gen      dashboard.Generation
	started  bool
	loading  bool
	site     *dashboard.Site
	err      error

	searchInput textinput.Model
	searching   bool
	cursor      int
	detail      bool
}

// NewResourceView creates the utilization view for the saved site
func NewResourceView(backend Backend, settings Settings, rangeName string, classifier utilization.Classifier, now func() time.Time) *ResourceView {
	search := textinput.New()
	search.Placeholder = "Search people..."
	search.CharLimit = 100

	v := &ResourceView{
		backend:     backend,
		styles:      styles.NewStyles(),
		keys:        keys.DefaultKeyMap(),
		now:         now,
		classifier:  classifier,
		filter:      newSiteFilter(settings),
		searchInput: search,
	}
	for i, r := range Ranges {
		if r == rangeName {
			v.rangeIdx = i
		}
	}
	return v
}

type resourcesLoadedMsg struct {
	gen  uint64
	site dashboard.Site
	err  error
}

func (v *ResourceView) Init() tea.Cmd {
	v.started = true
	return v.load()
}

// Capturing reports whether keys are going to the search box
func (v *ResourceView) Capturing() bool { return v.searching }

func (v *ResourceView) load() tea.Cmd {
	gen := v.gen.Next()
	v.loading = true
	backend := v.backend
	opts := dashboard.SiteOptions{
		Site:       v.filter.site,
		Horizon:    utilization.HorizonForRange(Ranges[v.rangeIdx]),
		Classifier: v.classifier,
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		site, err := backend.SiteData(ctx, opts)
		return resourcesLoadedMsg{gen: gen, site: site, err: err}
	}
}

func (v *ResourceView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case resourcesLoadedMsg:
		if !v.gen.Current(msg.gen) {
			return v, nil
		}
		v.loading = false
		v.err = msg.err
		if msg.err == nil {
			v.site = &msg.site
		}
		v.clampCursor()
		return v, nil

	case SiteChanged:
		if v.filter.set(msg.Site) && v.started {
			return v, v.load()
		}
		return v, nil

	case tea.KeyMsg:
		if v.searching {
			switch {
			case key.Matches(msg, v.keys.Back), key.Matches(msg, v.keys.Enter):
				v.searching = false
				v.searchInput.Blur()
				return v, nil
			}
			var cmd tea.Cmd
			v.searchInput, cmd = v.searchInput.Update(msg)
			v.clampCursor()
			return v, cmd
		}
		return v.updateKeys(msg)
	}
	return v, nil
}

func (v *ResourceView) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Refresh):
		return v, v.load()

	case key.Matches(msg, v.keys.Back):
		v.detail = false
		return v, nil

	case key.Matches(msg, v.keys.Search):
		v.searching = true
		v.detail = false
		return v, v.searchInput.Focus()

	case key.Matches(msg, v.keys.Site):
		site := v.filter.nextSite()
		v.cursor = 0
		return v, tea.Batch(v.load(), func() tea.Msg { return SiteChanged{Site: site} })

	case key.Matches(msg, v.keys.Department):
		if v.site != nil {
			v.filter.nextDepartment(v.site.Departments)
			v.clampCursor()
		}
		return v, nil

	case key.Matches(msg, v.keys.Horizon):
		v.rangeIdx = (v.rangeIdx + 1) % len(Ranges)
		return v, v.load()

	case key.Matches(msg, v.keys.Up):
		v.cursor = max(v.cursor-1, 0)
		return v, nil

	case key.Matches(msg, v.keys.Down):
		v.cursor++
		v.clampCursor()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		v.detail = !v.detail && len(v.Resources()) > 0
		return v, nil
	}
	return v, nil
}

// Resources are the rows for the current filters. Utilization is relative
// to the rows shown.
func (v *ResourceView) Resources() []models.Resource {
	if v.site == nil {
		return nil
	}
	site := v.site.Department(v.filter.department(v.site.Departments))
	return utilization.FilterResources(site.Resources, utilization.Filter{Search: v.searchInput.Value()})
}

func (v *ResourceView) clampCursor() {
	v.cursor = clamp(v.cursor, 0, max(len(v.Resources())-1, 0))
}

func (v *ResourceView) View() string {
	s := v.styles
	var b strings.Builder
	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")

	rs := v.Resources()
	switch {
	case v.err != nil:
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Current.Error).Render(v.err.Error()))
	case v.site == nil:
		b.WriteString(s.TitleMuted.Render("Loading resources..."))
	case len(rs) == 0:
		b.WriteString(s.TitleMuted.Render("No resources match the filters."))
	case v.detail:
		b.WriteString(v.renderDetail(rs[v.cursor]))
	default:
		b.WriteString(v.renderTable(rs))
	}

	b.WriteString("\n")
	k := s.HelpKey.Render
	b.WriteString(s.Help.Render(fmt.Sprintf("%s details • %s site • %s department • %s range • %s search • %s refresh • %s next view • %s quit",
		k("↵"), k("s"), k("d"), k("g"), k("/"), k("r"), k("tab"), k("q"))))
	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *ResourceView) renderHeader() string {
	s := v.styles
	title := "Resource Utilization: " + v.filter.site
	if v.loading {
		title += " (loading)"
	}
	var departments []string
	if v.site != nil {
		departments = v.site.Departments
	}

	searchStyle := s.Input
	if v.searching {
		searchStyle = s.InputFocused
	}
	filters := lipgloss.JoinHorizontal(lipgloss.Center,
		searchStyle.Width(24).Render(v.searchInput.View()), "  ",
		s.Button.Render("Department: "+v.filter.departmentLabel(departments)),
		s.Button.Render("Range: "+Ranges[v.rangeIdx]),
	)

	lines := []string{s.Title.Render(title), filters}
	if v.site != nil {
		if src := renderSource(s, v.site.Source); src != "" {
			lines = append(lines, src)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (v *ResourceView) renderTable(rs []models.Resource) string {
	s := v.styles
	width := styles.ContentWidth(v.width)
	const fixed = 22 + 20 + 6 + 8 + 6 + 6 + 6
	strip := max(width-fixed-6, 0)

	head := fmt.Sprintf("%-22s%-20s%6s%8s%6s%6s%6s  %s", "Name", "Department", "Tasks", "Overdue", "Week", "Open", "Load", "Weeks")
	lines := []string{s.TitleMuted.Render(head)}

	visible := max(v.height-14, 1)
	start := scrollWindow(v.cursor, visible, len(rs))
	for i := start; i < min(start+visible, len(rs)); i++ {
		r := rs[i]
		text := fmt.Sprintf("%-22s%-20s%6d%8d%6d%6d%5d%%",
			truncate(r.Name, 21), truncate(r.Department, 19),
			r.TotalTasks, r.OverdueTasks, r.DueThisWeek, r.ActiveTasks, r.Utilization)
		style := s.ListItem
		if i == v.cursor {
			style = s.ListSelected
		}
		lines = append(lines, style.Render(text)+"  "+heatStrip(r.Weeks, strip))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// heatStrip draws one cell per week, coloured by level, dimmed when idle
func heatStrip(weeks []models.UtilizationWeek, width int) string {
	cells := make([]cell, 0, min(len(weeks), width))
	for _, w := range weeks {
		if len(cells) == width {
			break
		}
		c := cell{r: '■', color: styles.LevelColor(w.Level)}
		if w.ActiveTasks == 0 {
			c = cell{r: '·', color: styles.Current.Border}
		}
		cells = append(cells, c)
	}
	return renderCells(cells)
}

func (v *ResourceView) renderDetail(r models.Resource) string {
	s := v.styles
	bd := utilization.GroupByProject(r, v.now())

	lines := []string{
		s.Title.Render(r.Name),
		s.TitleMuted.Render(fmt.Sprintf("%s • %s • %s", r.Email, r.Department, r.Site)),
		"",
		fmt.Sprintf("%d underway • %d starting next month • %d in the next 3 months • %d due this week • %d overdue",
			bd.UnderwayNow, bd.StartingNextMonth, bd.StartingNext3Months, r.DueThisWeek, r.OverdueTasks),
		"",
	}
	for _, p := range bd.Projects {
		header := fmt.Sprintf("%s (%d)", p.ProjectName, len(p.Tasks))
		if p.OverdueTasks > 0 {
			header += lipgloss.NewStyle().Foreground(styles.Current.Error).Render(fmt.Sprintf(" %d overdue", p.OverdueTasks))
		}
		lines = append(lines, s.HelpKey.Render(header))
		for _, t := range p.Tasks {
			status := lipgloss.NewStyle().Foreground(styles.StatusColor(t.Status)).Render(t.Status.String())
			lines = append(lines, fmt.Sprintf("    %s  %s  %d%%  %s → %s",
				status, t.Title, t.Percent(), shortDate(t.StartDate), shortDate(t.EndDate)))
		}
	}
	lines = append(lines, "", s.TitleMuted.Render("Esc: back to the list"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
