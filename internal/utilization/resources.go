package utilization

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fpdash/fpboard/internal/models"
)

// BuildResources creates one resource per known user with at least one
// task. Department and site are the most frequent values over the user's
// task projects; the first value seen wins a tie.
func BuildResources(tasks []models.Task, meta map[string]models.ProjectMeta, users map[string]models.User, now time.Time, h Horizon) []models.Resource {
	byUser := make(map[string][]models.Task)
	var order []string
	for _, t := range tasks {
		if _, ok := users[t.AssigneeID]; !ok || t.AssigneeID == "" {
			continue
		}
		if _, seen := byUser[t.AssigneeID]; !seen {
			order = append(order, t.AssigneeID)
		}
		byUser[t.AssigneeID] = append(byUser[t.AssigneeID], t)
	}

	resources := make([]models.Resource, 0, len(order))
	for _, id := range order {
		u := users[id]
		own := byUser[id]
		r := models.Resource{
			ID:        u.ID,
			Name:      u.Name,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			Tasks:     own,
		}

		var depts, sites modal
		for _, t := range own {
			m, ok := meta[t.ProjectID]
			if !ok {
				m = models.ProjectMeta{Department: models.Unknown, Site: models.Unknown}
			}
			depts.add(m.Department)
			sites.add(m.Site)

			if IsOverdue(t, now) {
				r.OverdueTasks++
			}
			if IsDueThisWeek(t, now) {
				r.DueThisWeek++
			}
			if t.Status.Open() {
				r.ActiveTasks++
			}
		}
		r.Department = depts.value()
		r.Site = sites.value()
		r.TotalTasks = len(own)
		r.Weeks = Weekly(own, h, 0, now)
		resources = append(resources, r)
	}

	sort.SliceStable(resources, func(i, j int) bool {
		return strings.ToLower(resources[i].Name) < strings.ToLower(resources[j].Name)
	})
	return resources
}

// modal tracks the most frequent label, first seen winning ties
type modal struct {
	counts map[string]int
	best   string
	top    int
}

func (m *modal) add(label string) {
	if label == "" {
		label = models.Unknown
	}
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[label]++
	if m.counts[label] > m.top {
		m.top = m.counts[label]
		m.best = label
	}
}

func (m *modal) value() string {
	if m.best == "" {
		return models.Unknown
	}
	return m.best
}

// Relative rescales each resource's active count to its share of the
// group's total, in whole percent. An empty total gives 0 for everyone.
func Relative(resources []models.Resource) []models.Resource {
	total := 0
	for _, r := range resources {
		total += r.ActiveTasks
	}
	out := make([]models.Resource, len(resources))
	for i, r := range resources {
		r.Utilization = 0
		if total > 0 {
			r.Utilization = int(math.Round(float64(r.ActiveTasks) / float64(total) * 100))
		}
		out[i] = r
	}
	return out
}

// Filter narrows the resource list. Empty or "all" fields match anything.
type Filter struct {
	Site       string
	Department string
	Search     string
}

func matches(want, got string) bool {
	if want == "" || strings.EqualFold(want, "all") {
		return true
	}
	if got == "" {
		got = models.Unknown
	}
	return want == got
}

// FilterResources applies f and then rescales utilization within the
// filtered set
func FilterResources(resources []models.Resource, f Filter) []models.Resource {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	var out []models.Resource
	for _, r := range resources {
		if !matches(f.Site, r.Site) || !matches(f.Department, r.Department) {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(r.Name), term) {
			continue
		}
		out = append(out, r)
	}
	return Relative(out)
}

// ProjectGroup is one project's slice of a resource's tasks
type ProjectGroup struct {
	ProjectID    string
	ProjectName  string
	Tasks        []models.Task
	OverdueTasks int
}

// Breakdown is a resource's work split by project with timing counts
type Breakdown struct {
	Resource            models.Resource
	Projects            []ProjectGroup
	UnderwayNow         int
	StartingNextMonth   int
	StartingNext3Months int
}

// GroupByProject splits a resource's tasks by project, sorted by name
func GroupByProject(r models.Resource, now time.Time) Breakdown {
	b := Breakdown{Resource: r}
	idx := make(map[string]int)
	for _, t := range r.Tasks {
		i, ok := idx[t.ProjectID]
		if !ok {
			i = len(b.Projects)
			idx[t.ProjectID] = i
			b.Projects = append(b.Projects, ProjectGroup{ProjectID: t.ProjectID, ProjectName: t.ProjectName})
		}
		b.Projects[i].Tasks = append(b.Projects[i].Tasks, t)
		if IsOverdue(t, now) {
			b.Projects[i].OverdueTasks++
		}
		if IsUnderway(t) {
			b.UnderwayNow++
		}
		if StartsNextMonth(t, now) {
			b.StartingNextMonth++
		}
		if StartsWithinThreeMonths(t, now) {
			b.StartingNext3Months++
		}
	}
	sort.SliceStable(b.Projects, func(i, j int) bool {
		return strings.ToLower(b.Projects[i].ProjectName) < strings.ToLower(b.Projects[j].ProjectName)
	})
	return b
}

// Breakdowns groups every resource, busiest first by total tasks
func Breakdowns(resources []models.Resource, now time.Time) []Breakdown {
	out := make([]Breakdown, 0, len(resources))
	for _, r := range resources {
		out = append(out, GroupByProject(r, now))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Resource.TotalTasks > out[j].Resource.TotalTasks
	})
	return out
}
