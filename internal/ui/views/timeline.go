package views

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fpdash/fpboard/internal/dashboard"
	"github.com/fpdash/fpboard/internal/models"
	"github.com/fpdash/fpboard/internal/timeline"
	"github.com/fpdash/fpboard/internal/ui/keys"
	"github.com/fpdash/fpboard/internal/ui/styles"
	"github.com/fpdash/fpboard/internal/utilization"
)

const nameColumn = 28

var milestoneCategories = []models.Category{
	models.CategoryGeneralOperations,
	models.CategorySupplyChain,
	models.CategoryDTIT,
	models.CategoryHumanResources,
}

// TimelineView draws the site's projects as bars over a 24 month window,
// one swimlane per department
type TimelineView struct {
	backend Backend
	styles  *styles.Styles
	keys    keys.KeyMap
	now     func() time.Time
	horizon utilization.Horizon

	width  int
	height int

	filter  siteFilter
	gen     dashboard.Generation
	started bool
	loading bool
	site    *dashboard.Site
	err     error

	showMilestones bool
	categoryIdx    int // 0 = all categories
	scroll         int
}

// NewTimelineView creates the timeline for the saved site
func NewTimelineView(backend Backend, settings Settings, horizon utilization.Horizon, now func() time.Time) *TimelineView {
	return &TimelineView{
		backend:        backend,
		styles:         styles.NewStyles(),
		keys:           keys.DefaultKeyMap(),
		now:            now,
		horizon:        horizon,
		filter:         newSiteFilter(settings),
		showMilestones: true,
	}
}

type timelineLoadedMsg struct {
	gen  uint64
	site dashboard.Site
	err  error
}

func (v *TimelineView) Init() tea.Cmd {
	v.started = true
	return v.load()
}

// Capturing is always false; the timeline has no text fields
func (v *TimelineView) Capturing() bool { return false }

func (v *TimelineView) load() tea.Cmd {
	gen := v.gen.Next()
	v.loading = true
	backend := v.backend
	opts := dashboard.SiteOptions{Site: v.filter.site, Horizon: v.horizon}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		site, err := backend.SiteData(ctx, opts)
		return timelineLoadedMsg{gen: gen, site: site, err: err}
	}
}

func (v *TimelineView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case timelineLoadedMsg:
		if !v.gen.Current(msg.gen) {
			return v, nil
		}
		v.loading = false
		v.err = msg.err
		if msg.err == nil {
			v.site = &msg.site
		}
		v.scroll = 0
		return v, nil

	case SiteChanged:
		if v.filter.set(msg.Site) && v.started {
			return v, v.load()
		}
		return v, nil

	case tea.KeyMsg:
		return v.updateKeys(msg)
	}
	return v, nil
}

func (v *TimelineView) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Refresh):
		return v, v.load()

	case key.Matches(msg, v.keys.Site):
		site := v.filter.nextSite()
		return v, tea.Batch(v.load(), func() tea.Msg { return SiteChanged{Site: site} })

	case key.Matches(msg, v.keys.Department):
		if v.site != nil {
			v.filter.nextDepartment(v.site.Departments)
			v.scroll = 0
		}
		return v, nil

	case key.Matches(msg, v.keys.Milestones):
		v.showMilestones = !v.showMilestones
		return v, nil

	case key.Matches(msg, v.keys.Category):
		v.categoryIdx = (v.categoryIdx + 1) % (len(milestoneCategories) + 1)
		return v, nil

	case key.Matches(msg, v.keys.Up):
		v.scroll = max(v.scroll-1, 0)
		return v, nil

	case key.Matches(msg, v.keys.Down):
		v.scroll++
		return v, nil
	}
	return v, nil
}

func (v *TimelineView) milestoneFilter() timeline.MilestoneFilter {
	if v.categoryIdx <= 0 || v.categoryIdx > len(milestoneCategories) {
		return timeline.MilestoneFilter{}
	}
	c := milestoneCategories[v.categoryIdx-1]
	return timeline.MilestoneFilter{Category: &c}
}

// Layout is the timeline for the current filters
func (v *TimelineView) Layout() (timeline.View, bool) {
	if v.site == nil {
		return timeline.View{}, false
	}
	site := v.site.Department(v.filter.department(v.site.Departments))
	return timeline.Layout(site.Tasks, site.Resources, v.now(), timeline.Options{
		Milestones:     v.milestoneFilter(),
		ShowMilestones: v.showMilestones,
	})
}

func (v *TimelineView) View() string {
	s := v.styles
	var b strings.Builder
	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")

	switch {
	case v.err != nil:
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Current.Error).Render(v.err.Error()))
	case v.site == nil:
		b.WriteString(s.TitleMuted.Render("Loading projects..."))
	default:
		if tl, ok := v.Layout(); ok {
			b.WriteString(v.renderTimeline(tl))
		} else {
			b.WriteString(s.TitleMuted.Render("No projects with start and end dates."))
		}
	}

	b.WriteString("\n")
	k := s.HelpKey.Render
	b.WriteString(s.Help.Render(fmt.Sprintf("%s site • %s department • %s milestones • %s category • %s scroll • %s refresh • %s next view • %s quit",
		k("s"), k("d"), k("m"), k("c"), k("↑↓"), k("r"), k("tab"), k("q"))))
	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *TimelineView) renderHeader() string {
	s := v.styles
	title := "Project Timeline: " + v.filter.site
	if v.loading {
		title += " (loading)"
	}

	var departments []string
	if v.site != nil {
		departments = v.site.Departments
	}
	milestones := "Off"
	if v.showMilestones {
		milestones = v.milestoneFilter().Label()
	}
	filters := lipgloss.JoinHorizontal(lipgloss.Center,
		s.Button.Render("Site: "+v.filter.site),
		s.Button.Render("Department: "+v.filter.departmentLabel(departments)),
		s.Button.Render("Milestones: "+milestones),
	)

	lines := []string{s.Title.Render(title), filters}
	if v.site != nil {
		if src := renderSource(s, v.site.Source); src != "" {
			lines = append(lines, src)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

type cell struct {
	r     rune
	color lipgloss.Color
}

// renderCells styles runs of same-coloured cells together
func renderCells(cells []cell) string {
	var b strings.Builder
	for i := 0; i < len(cells); {
		j := i
		var run []rune
		for j < len(cells) && cells[j].color == cells[i].color {
			run = append(run, cells[j].r)
			j++
		}
		if cells[i].color == "" {
			b.WriteString(string(run))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(cells[i].color).Render(string(run)))
		}
		i = j
	}
	return b.String()
}

func blank(width int) []cell {
	cells := make([]cell, width)
	for i := range cells {
		cells[i] = cell{r: ' '}
	}
	return cells
}

// place writes text into cells at col unless it would overrun the
// previous label or the track end; it returns the next free column
func place(cells []cell, col, free int, text string, color lipgloss.Color) int {
	r := []rune(text)
	if col < free || col+len(r) > len(cells) {
		return free
	}
	for i, c := range r {
		cells[col+i] = cell{r: c, color: color}
	}
	return col + len(r) + 1
}

func (v *TimelineView) renderTimeline(tl timeline.View) string {
	t := styles.Current
	track := max(styles.ContentWidth(v.width)-nameColumn-8, 24)
	pad := strings.Repeat(" ", nameColumn+1)

	years, months, counts := blank(track), blank(track), blank(track)
	free := 0
	for _, y := range tl.Years {
		free = place(years, timeline.Columns(y.Offset, track), free, strconv.Itoa(y.Year), t.Primary)
	}
	monthFree, countFree := 0, 0
	for i, m := range tl.Months {
		col := timeline.Columns(m.Offset, track)
		label := m.Short
		if cols := timeline.Columns(m.Offset+m.Width, track) - col; cols < len(label)+1 {
			label = label[:1]
		}
		monthFree = place(months, col, monthFree, label, t.ForegroundDim)
		if i < len(tl.Counts) && tl.Counts[i] > 0 {
			countFree = place(counts, col, countFree, strconv.Itoa(tl.Counts[i]), t.Accent)
		}
	}

	lines := []string{
		pad + renderCells(years),
		pad + renderCells(months),
		pad + renderCells(counts),
	}

	for _, lane := range tl.Lanes {
		lines = append(lines, v.styles.LaneHeader.UnsetMarginBottom().Foreground(t.Secondary).
			Render(fmt.Sprintf("%s (%d)", lane.Department, len(lane.Rows))))
		for _, row := range lane.Rows {
			lines = append(lines, v.renderRow(tl, row, track)...)
		}
	}

	visible := max(v.height-14, 4)
	v.scroll = clamp(v.scroll, 0, max(len(lines)-visible, 0))
	end := min(v.scroll+visible, len(lines))
	return strings.Join(lines[v.scroll:end], "\n")
}

// renderRow draws one project. Milestones staggered up or down go on their
// own line above or below the bar.
func (v *TimelineView) renderRow(tl timeline.View, row timeline.Row, track int) []string {
	t := styles.Current
	bar := blank(track)
	for i := range bar {
		bar[i] = cell{r: '·', color: t.Border}
	}
	from := timeline.Columns(row.Offset, track)
	to := timeline.Columns(row.Offset+row.Width, track)
	done := from + (to-from+1)*row.Completion/100
	for i := from; i <= to && i < track; i++ {
		color := t.Primary
		if i < done {
			color = t.Success
		}
		bar[i] = cell{r: '█', color: color}
	}
	if tl.ShowToday {
		bar[timeline.Columns(tl.Today, track)] = cell{r: '│', color: t.Error}
	}

	above, below := blank(track), blank(track)
	var hasAbove, hasBelow bool
	for _, m := range row.Markers {
		if m.Percent < 0 || m.Percent > 100 {
			continue
		}
		c := cell{r: '◆', color: styles.CategoryColor(&m.Category)}
		col := timeline.Columns(m.Percent, track)
		switch {
		case m.Stagger < 0:
			above[col], hasAbove = c, true
		case m.Stagger > 0:
			below[col], hasBelow = c, true
		default:
			bar[col] = c
		}
	}

	name := fmt.Sprintf("%-*s", nameColumn, truncate(row.Name, nameColumn))
	pad := strings.Repeat(" ", nameColumn+1)
	var out []string
	if hasAbove {
		out = append(out, pad+renderCells(above))
	}
	out = append(out, name+" "+renderCells(bar)+fmt.Sprintf(" %3d%%", row.Completion))
	if hasBelow {
		out = append(out, pad+renderCells(below))
	}
	return out
}
