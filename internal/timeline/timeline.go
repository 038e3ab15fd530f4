// Package timeline lays out project bars, month and year bands, milestone
// markers and department swimlanes on a 24 month window. All positions are
// percentages of the window; Columns maps them onto a terminal width.
package timeline

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fpdash/fpboard/internal/models"
)

const (
	// WindowMonths is the length of the visible window
	WindowMonths = 24

	// markers this far outside the window are still drawn
	markerSlack = 10

	// markers closer than this to the previous one are staggered
	staggerDistance = 2.0
)

// Span is one project's extent over all of its tasks
type Span struct {
	ID         string
	Name       string
	Department string
	Start      time.Time
	End        time.Time
	Tasks      []models.Task
}

// DepartmentLookup maps project ids to the department of the first resource
// seen working on them
func DepartmentLookup(resources []models.Resource) map[string]string {
	out := make(map[string]string)
	for _, r := range resources {
		dept := r.Department
		if dept == "" {
			dept = models.Unknown
		}
		for _, t := range r.Tasks {
			if _, ok := out[t.ProjectID]; !ok {
				out[t.ProjectID] = dept
			}
		}
	}
	return out
}

// ProjectSpans aggregates tasks by project. Projects without both a start
// and an end date over their tasks are left out.
func ProjectSpans(tasks []models.Task, departments map[string]string) []Span {
	type acc struct {
		span       Span
		start, end *time.Time
	}
	var order []string
	byID := make(map[string]*acc)
	for _, t := range tasks {
		a, ok := byID[t.ProjectID]
		if !ok {
			dept := departments[t.ProjectID]
			if dept == "" {
				dept = models.Unknown
			}
			a = &acc{span: Span{ID: t.ProjectID, Name: t.ProjectName, Department: dept}}
			byID[t.ProjectID] = a
			order = append(order, t.ProjectID)
		}
		a.span.Tasks = append(a.span.Tasks, t)
		if t.StartDate != nil && (a.start == nil || t.StartDate.Before(*a.start)) {
			a.start = t.StartDate
		}
		if t.EndDate != nil && (a.end == nil || t.EndDate.After(*a.end)) {
			a.end = t.EndDate
		}
	}

	spans := make([]Span, 0, len(order))
	for _, id := range order {
		a := byID[id]
		if a.start == nil || a.end == nil {
			continue
		}
		a.span.Start, a.span.End = *a.start, *a.end
		spans = append(spans, a.span)
	}
	return spans
}

// Window is the visible date range
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow starts on the first day of the month of the earliest span start
// and ends on the last day of the 24th month. ok is false with no spans.
func NewWindow(spans []Span) (w Window, ok bool) {
	if len(spans) == 0 {
		return Window{}, false
	}
	earliest := spans[0].Start
	for _, s := range spans[1:] {
		if s.Start.Before(earliest) {
			earliest = s.Start
		}
	}
	start := time.Date(earliest.Year(), earliest.Month(), 1, 0, 0, 0, 0, earliest.Location())
	return Window{Start: start, End: start.AddDate(0, WindowMonths, -1)}, true
}

func (w Window) span() time.Duration { return w.End.Sub(w.Start) }

// Percent positions t on the window; values outside [0, 100] are off-screen
func (w Window) Percent(t time.Time) float64 {
	total := w.span()
	if total <= 0 {
		return 0
	}
	return float64(t.Sub(w.Start)) / float64(total) * 100
}

// Month is one header band
type Month struct {
	Label  string // full month name
	Short  string
	Year   int
	Start  time.Time
	End    time.Time
	Offset float64
	Width  float64
}

// Months returns the month bands from the window start through its end.
// A band runs from the first to the last day of its month, so the last day
// itself is not part of the width.
func Months(w Window) []Month {
	var out []Month
	for cur := w.Start; !cur.After(w.End); cur = cur.AddDate(0, 1, 0) {
		end := cur.AddDate(0, 1, -1)
		if end.After(w.End) {
			end = w.End
		}
		off := w.Percent(cur)
		out = append(out, Month{
			Label:  cur.Month().String(),
			Short:  cur.Format("Jan"),
			Year:   cur.Year(),
			Start:  cur,
			End:    end,
			Offset: off,
			Width:  w.Percent(end) - off,
		})
	}
	return out
}

// Year is a band over consecutive months of the same year
type Year struct {
	Year   int
	Offset float64
	Width  float64
}

// Years groups month bands by calendar year. Each band ends where the next
// year's first month starts; the last ends with the last month.
func Years(months []Month) []Year {
	var out []Year
	for i, m := range months {
		if i == 0 || m.Year != months[i-1].Year {
			if n := len(out); n > 0 {
				out[n-1].Width = m.Offset - out[n-1].Offset
			}
			out = append(out, Year{Year: m.Year, Offset: m.Offset})
		}
	}
	if n := len(out); n > 0 {
		last := months[len(months)-1]
		out[n-1].Width = last.Offset + last.Width - out[n-1].Offset
	}
	return out
}

// MonthCounts counts the spans overlapping each month band
func MonthCounts(months []Month, spans []Span) []int {
	counts := make([]int, len(months))
	for i, m := range months {
		for _, s := range spans {
			if !s.Start.After(m.End) && !s.End.Before(m.Start) {
				counts[i]++
			}
		}
	}
	return counts
}

// Today returns the position of the start of now's day, and whether it is
// inside the window
func Today(w Window, now time.Time) (float64, bool) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	p := w.Percent(day)
	return p, p >= 0 && p <= 100
}

// Bar is a span positioned on the window
type Bar struct {
	Span
	Offset     float64
	Width      float64
	Completion int
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

// Bars positions each span, clipped to the visible window
func Bars(w Window, spans []Span) []Bar {
	out := make([]Bar, 0, len(spans))
	for _, s := range spans {
		left := clamp(w.Percent(s.Start))
		right := clamp(w.Percent(s.End))
		out = append(out, Bar{
			Span:       s,
			Offset:     left,
			Width:      math.Max(0, right-left),
			Completion: Completion(s.Tasks),
		})
	}
	return out
}

// Completion is the rounded mean percent complete over tasks that are not
// cancelled; 0 when there are none
func Completion(tasks []models.Task) int {
	sum, n := 0, 0
	for _, t := range tasks {
		if t.Status == models.StatusCancelled {
			continue
		}
		sum += t.Percent()
		n++
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}

// MilestoneFilter selects milestone categories. A nil Category shows all;
// uncategorized milestones are always shown.
type MilestoneFilter struct {
	Category *models.Category
}

func (f MilestoneFilter) allows(t models.Task) bool {
	return f.Category == nil || t.Category == nil || *t.Category == *f.Category
}

// Label names the filter for the picker
func (f MilestoneFilter) Label() string {
	if f.Category == nil {
		return "All"
	}
	return f.Category.String()
}

// Marker is a milestone positioned on the window. Stagger is a row offset
// of -1, 0 or 1 used when markers crowd together.
type Marker struct {
	Task     models.Task
	Category models.Category
	Percent  float64
	Stagger  int
}

// Milestones positions a span's milestone tasks that have a start date
func Milestones(w Window, s Span, f MilestoneFilter) []Marker {
	var out []Marker
	for _, t := range s.Tasks {
		if !t.IsMilestone() || t.StartDate == nil || !f.allows(t) {
			continue
		}
		p := w.Percent(*t.StartDate)
		if p < -markerSlack || p > 100+markerSlack {
			continue
		}
		m := Marker{Task: t, Percent: p}
		if t.Category != nil {
			m.Category = *t.Category
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Percent < out[j].Percent })
	for i := 1; i < len(out); i++ {
		if math.Abs(out[i].Percent-out[i-1].Percent) < staggerDistance {
			out[i].Stagger = i%3 - 1
		}
	}
	return out
}

// Lane is one department's projects
type Lane struct {
	Department string
	Spans      []Span
}

// Swimlanes groups spans by department. Lanes are sorted by name with
// Unknown last; projects within a lane by start date.
func Swimlanes(spans []Span) []Lane {
	idx := make(map[string]int)
	var lanes []Lane
	for _, s := range spans {
		i, ok := idx[s.Department]
		if !ok {
			i = len(lanes)
			idx[s.Department] = i
			lanes = append(lanes, Lane{Department: s.Department})
		}
		lanes[i].Spans = append(lanes[i].Spans, s)
	}
	for i := range lanes {
		sort.SliceStable(lanes[i].Spans, func(a, b int) bool {
			return lanes[i].Spans[a].Start.Before(lanes[i].Spans[b].Start)
		})
	}
	sort.SliceStable(lanes, func(i, j int) bool {
		a, b := lanes[i].Department, lanes[j].Department
		if (a == models.Unknown) != (b == models.Unknown) {
			return b == models.Unknown
		}
		return strings.ToLower(a) < strings.ToLower(b)
	})
	return lanes
}

// Options controls what Layout includes
type Options struct {
	Milestones     MilestoneFilter
	ShowMilestones bool
}

// Row is one project line in a lane
type Row struct {
	Bar
	Markers []Marker
}

// LaneView is a laid out lane
type LaneView struct {
	Department string
	Rows       []Row
}

// View is everything needed to draw the timeline
type View struct {
	Window    Window
	Months    []Month
	Years     []Year
	Counts    []int
	Today     float64
	ShowToday bool
	Lanes     []LaneView
}

// Layout builds the full view from all tasks and the filtered resources
// that supply department names. ok is false when no project has dates.
func Layout(tasks []models.Task, resources []models.Resource, now time.Time, opts Options) (View, bool) {
	spans := ProjectSpans(tasks, DepartmentLookup(resources))
	w, ok := NewWindow(spans)
	if !ok {
		return View{}, false
	}
	v := View{Window: w, Months: Months(w)}
	v.Years = Years(v.Months)
	v.Counts = MonthCounts(v.Months, spans)
	v.Today, v.ShowToday = Today(w, now)

	for _, lane := range Swimlanes(spans) {
		lv := LaneView{Department: lane.Department}
		for _, b := range Bars(w, lane.Spans) {
			row := Row{Bar: b}
			if opts.ShowMilestones {
				row.Markers = Milestones(w, b.Span, opts.Milestones)
			}
			lv.Rows = append(lv.Rows, row)
		}
		v.Lanes = append(v.Lanes, lv)
	}
	return v, true
}

// Columns maps a window percentage onto a track of width cells
func Columns(percent float64, width int) int {
	if width <= 0 {
		return 0
	}
	c := int(math.Round(clamp(percent) / 100 * float64(width)))
	return min(c, width-1)
}
