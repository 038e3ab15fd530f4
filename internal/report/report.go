// Package report writes plain text summaries of the board, the resource
// utilization and the project timeline.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/fpdash/fpboard/internal/aggregate"
	"github.com/fpdash/fpboard/internal/dashboard"
	"github.com/fpdash/fpboard/internal/models"
	"github.com/fpdash/fpboard/internal/timeline"
	"github.com/fpdash/fpboard/internal/utilization"
)

// Section headers
const (
	HeaderOverview  = "Overview"
	HeaderProjects  = "Projects"
	HeaderResources = "Resource utilization"
	HeaderTimeline  = "Project timeline"
)

func newTable(headers ...string) *table.Table {
	return table.New().Border(lipgloss.NormalBorder()).Headers(headers...)
}

func date(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("Jan 2, 2006")
}

// PrintSource notes when the data is not live
func PrintSource(out io.Writer, src dashboard.Source) {
	switch src.Origin {
	case dashboard.Snapshot:
		fmt.Fprintf(out, "Showing data saved %s\n", src.SavedAt.Local().Format("Jan 2 15:04"))
	case dashboard.Placeholder:
		fmt.Fprintln(out, "Showing sample data")
	}
	if src.Err != nil {
		fmt.Fprintf(out, "Warning: %v\n", src.Err)
	}
}

// PrintOverview prints the board counters for viewer
func PrintOverview(out io.Writer, viewer models.User, s aggregate.Stats) {
	fmt.Fprintf(out, "\n%s for %s\n", HeaderOverview, viewer.Label())
	fmt.Fprintf(out, "    • Total tasks: %d\n", s.Total)
	fmt.Fprintf(out, "    • Open: %d\n", s.Open)
	fmt.Fprintf(out, "    • Completed: %d\n", s.Completed)
	fmt.Fprintf(out, "    • Completion: %d%%\n", s.WeightedCompleted)
	fmt.Fprintf(out, "    • Projects owned: %d of %d\n", s.ProjectsOwned, s.ProjectsInvolved)
}

// PrintProjects lists each project with its counters and tasks
func PrintProjects(out io.Writer, projects []models.Project) {
	if len(projects) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s\n", HeaderProjects)
	for _, p := range projects {
		owner := ""
		if p.IsOwner {
			owner = " (owner)"
		}
		fmt.Fprintf(out, "    • %s%s: %d tasks, %d done, %d in progress, %d not started\n",
			p.Name, owner, p.TotalTasks, p.CompletedTasks, p.InProgressTasks, p.NotStartedTasks)
		for _, t := range p.Tasks {
			fmt.Fprintf(out, "        ◦ [%s] %s (%d%%) %s → %s\n",
				t.Status, t.Title, t.Percent(), date(t.StartDate), date(t.EndDate))
		}
	}
}

// PrintResources prints one row per resource
func PrintResources(out io.Writer, resources []models.Resource) {
	fmt.Fprintf(out, "\n%s\n", HeaderResources)
	if len(resources) == 0 {
		fmt.Fprintln(out, "    No resources match the filters")
		return
	}
	t := newTable("Name", "Department", "Site", "Tasks", "Overdue", "Due this week", "Active", "Load")
	for _, r := range resources {
		t.Row(r.Name, r.Department, r.Site,
			fmt.Sprint(r.TotalTasks), fmt.Sprint(r.OverdueTasks), fmt.Sprint(r.DueThisWeek),
			fmt.Sprint(r.ActiveTasks), fmt.Sprintf("%d%%", r.Utilization))
	}
	fmt.Fprintln(out, t.Render())
}

// PrintBreakdowns prints each resource's projects and upcoming work
func PrintBreakdowns(out io.Writer, bs []utilization.Breakdown) {
	for _, b := range bs {
		fmt.Fprintf(out, "\n%s: %d underway, %d starting next month, %d in the next 3 months\n",
			b.Resource.Name, b.UnderwayNow, b.StartingNextMonth, b.StartingNext3Months)
		for _, p := range b.Projects {
			overdue := ""
			if p.OverdueTasks > 0 {
				overdue = fmt.Sprintf(", %d overdue", p.OverdueTasks)
			}
			fmt.Fprintf(out, "    • %s: %d tasks%s\n", p.ProjectName, len(p.Tasks), overdue)
		}
	}
}

// PrintTimeline draws each lane as text bars over width columns
func PrintTimeline(out io.Writer, v timeline.View, width int) {
	fmt.Fprintf(out, "\n%s %s to %s\n", HeaderTimeline,
		v.Window.Start.Format("Jan 2006"), v.Window.End.Format("Jan 2006"))
	for _, lane := range v.Lanes {
		fmt.Fprintf(out, "\n%s (%d)\n", lane.Department, len(lane.Rows))
		for _, row := range lane.Rows {
			fmt.Fprintf(out, "    %-32s %s %3d%%\n", truncate(row.Name, 32), bar(row, width, v), row.Completion)
		}
	}
}

func bar(row timeline.Row, width int, v timeline.View) string {
	if width <= 0 {
		return ""
	}
	cells := []rune(strings.Repeat("·", width))
	from := timeline.Columns(row.Offset, width)
	to := timeline.Columns(row.Offset+row.Width, width)
	for i := from; i <= to && i < width; i++ {
		cells[i] = '█'
	}
	for _, m := range row.Markers {
		if m.Percent >= 0 && m.Percent <= 100 {
			cells[timeline.Columns(m.Percent, width)] = '◆'
		}
	}
	if v.ShowToday {
		cells[timeline.Columns(v.Today, width)] = '│'
	}
	return string(cells)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
