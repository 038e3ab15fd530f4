// Package aggregate groups tasks into projects and computes the counters the
// board and summary views show.
package aggregate

import (
	"math"
	"sort"
	"strings"

	"github.com/fpdash/fpboard/internal/models"
)

// Options carries what GroupByProject needs beyond the tasks themselves
type Options struct {
	ViewerID string
	Meta     map[string]models.ProjectMeta
}

// Counters are the status totals over a set of tasks
type Counters struct {
	Total      int
	Completed  int
	InProgress int
	NotStarted int
}

func (c *Counters) add(t models.Task) {
	c.Total++
	switch t.Status {
	case models.StatusWorkComplete:
		c.Completed++
	case models.StatusInProgress:
		c.InProgress++
	case models.StatusNotStarted:
		c.NotStarted++
	}
}

// GroupByProject groups tasks by project id, sorted by display name without
// regard to case. Cancelled tasks count toward Total only.
func GroupByProject(tasks []models.Task, opts Options) []models.Project {
	byID := make(map[string]*models.Project)
	var order []string

	for _, t := range tasks {
		p, ok := byID[t.ProjectID]
		if !ok {
			p = newProject(t, opts)
			byID[t.ProjectID] = p
			order = append(order, t.ProjectID)
		}
		p.Tasks = append(p.Tasks, t)

		p.TotalTasks++
		switch t.Status {
		case models.StatusWorkComplete:
			p.CompletedTasks++
		case models.StatusInProgress:
			p.InProgressTasks++
		case models.StatusNotStarted:
			p.NotStartedTasks++
		}
	}

	projects := make([]models.Project, 0, len(order))
	for _, id := range order {
		projects = append(projects, *byID[id])
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return strings.ToLower(projects[i].Name) < strings.ToLower(projects[j].Name)
	})
	return projects
}

func newProject(t models.Task, opts Options) *models.Project {
	p := &models.Project{ID: t.ProjectID, Name: t.ProjectName}
	meta, ok := opts.Meta[t.ProjectID]
	if !ok {
		return p
	}
	if meta.Number != "" {
		title := meta.Title
		if title == "" {
			title = t.ProjectName
		}
		p.Name = meta.Number + " | " + title
	}
	p.Number = meta.Number
	p.Department = meta.Department
	p.Site = meta.Site
	p.Status = meta.Status
	p.OwnerID = meta.OwnerID
	p.OwnerName = meta.OwnerName
	p.IsOwner = meta.OwnerID != "" && opts.ViewerID != "" && strings.EqualFold(meta.OwnerID, opts.ViewerID)
	return p
}

// Summarize counts a flat task list
func Summarize(tasks []models.Task) Counters {
	var c Counters
	for _, t := range tasks {
		c.add(t)
	}
	return c
}

// Flatten returns every task of every project in project order
func Flatten(projects []models.Project) []models.Task {
	var tasks []models.Task
	for _, p := range projects {
		tasks = append(tasks, p.Tasks...)
	}
	return tasks
}

// Filter narrows the board's task list. Zero values match everything.
type Filter struct {
	Status    *models.TaskStatus
	ProjectID string
	Search    string
}

// Apply returns the tasks that match every set field
func (f Filter) Apply(tasks []models.Task) []models.Task {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	var out []models.Task
	for _, t := range tasks {
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.ProjectID != "" && t.ProjectID != f.ProjectID {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(t.Title), term) &&
			!strings.Contains(strings.ToLower(t.Description), term) &&
			!strings.Contains(strings.ToLower(t.ProjectName), term) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Stats is the summary strip over the viewer's work
type Stats struct {
	Counters
	Open              int
	ProjectsOwned     int
	ProjectsInvolved  int
	WeightedCompleted int // mean percent complete, rounded
}

// Overview computes the summary strip for a grouped task list
func Overview(projects []models.Project) Stats {
	var s Stats
	sum, n := 0, 0
	for _, p := range projects {
		s.ProjectsInvolved++
		if p.IsOwner {
			s.ProjectsOwned++
		}
		for _, t := range p.Tasks {
			s.add(t)
			if t.Status.Open() {
				s.Open++
			}
			sum += t.Percent()
			n++
		}
	}
	if n > 0 {
		s.WeightedCompleted = int(math.Round(float64(sum) / float64(n)))
	}
	return s
}
