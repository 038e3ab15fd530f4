package aggregate

import (
	"testing"

	"github.com/fpdash/fpboard/internal/models"
)

func pct(n int) *int { return &n }

func sampleTasks() []models.Task {
	return []models.Task{
		{ID: "1", Title: "Survey pit wall", ProjectID: "b", ProjectName: "beta", Status: models.StatusInProgress, PercentComplete: pct(50)},
		{ID: "2", Title: "Order liners", ProjectID: "a", ProjectName: "Alpha", Status: models.StatusWorkComplete, PercentComplete: pct(100)},
		{ID: "3", Title: "Commission pump", ProjectID: "a", ProjectName: "Alpha", Status: models.StatusNotStarted},
		{ID: "4", Title: "Old request", ProjectID: "b", ProjectName: "beta", Status: models.StatusCancelled},
		{ID: "5", Title: "Draft budget", Description: "capex for liners", ProjectID: "c", ProjectName: "Charlie", Status: models.StatusInProgress, PercentComplete: pct(20)},
	}
}

func TestGroupByProject(t *testing.T) {
	meta := map[string]models.ProjectMeta{
		"a": {Number: "FP-7", Title: "Alpha Plant", OwnerID: "U1", Department: "Processing"},
		"b": {OwnerID: "someone-else"},
	}
	projects := GroupByProject(sampleTasks(), Options{ViewerID: "u1", Meta: meta})
	if len(projects) != 3 {
		t.Fatalf("got %d projects", len(projects))
	}

	names := []string{projects[0].Name, projects[1].Name, projects[2].Name}
	want := []string{"beta", "Charlie", "FP-7 | Alpha Plant"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("order = %v, want %v", names, want)
			break
		}
	}

	alpha := projects[2]
	if !alpha.IsOwner || alpha.Department != "Processing" {
		t.Errorf("alpha = %+v", alpha)
	}
	if alpha.TotalTasks != 2 || alpha.CompletedTasks != 1 || alpha.NotStartedTasks != 1 {
		t.Errorf("alpha counters = %+v", alpha)
	}
	beta := projects[0]
	if beta.IsOwner {
		t.Error("beta is owned by someone else")
	}
	if beta.TotalTasks != 2 || beta.InProgressTasks != 1 || beta.CompletedTasks+beta.NotStartedTasks != 0 {
		t.Errorf("cancelled task should only count toward total: %+v", beta)
	}

	anon := GroupByProject(sampleTasks(), Options{Meta: meta})
	for _, p := range anon {
		if p.IsOwner {
			t.Errorf("no viewer, but %s marked owned", p.Name)
		}
	}
}

func TestCountersMatchFlatList(t *testing.T) {
	tasks := sampleTasks()
	projects := GroupByProject(tasks, Options{})

	var sum Counters
	for _, p := range projects {
		sum.Total += p.TotalTasks
		sum.Completed += p.CompletedTasks
		sum.InProgress += p.InProgressTasks
		sum.NotStarted += p.NotStartedTasks
	}
	if global := Summarize(tasks); sum != global {
		t.Errorf("per-project sum %+v != global %+v", sum, global)
	}

	again := GroupByProject(Flatten(projects), Options{})
	if Summarize(Flatten(again)) != Summarize(tasks) {
		t.Error("regrouping changed the counters")
	}
}

func TestFilter(t *testing.T) {
	tasks := sampleTasks()
	status := models.StatusInProgress
	tests := []struct {
		name string
		f    Filter
		want int
	}{
		{"none", Filter{}, 5},
		{"status", Filter{Status: &status}, 2},
		{"project", Filter{ProjectID: "a"}, 2},
		{"search title", Filter{Search: "PUMP"}, 1},
		{"search description and title", Filter{Search: "liners"}, 2},
		{"search project", Filter{Search: "charlie"}, 1},
		{"combined", Filter{Status: &status, Search: "survey"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(tt.f.Apply(tasks)); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOverview(t *testing.T) {
	meta := map[string]models.ProjectMeta{"a": {OwnerID: "u1"}}
	s := Overview(GroupByProject(sampleTasks(), Options{ViewerID: "u1", Meta: meta}))
	if s.Total != 5 || s.Open != 3 || s.Completed != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.ProjectsInvolved != 3 || s.ProjectsOwned != 1 {
		t.Errorf("project stats = %+v", s)
	}
	// (50 + 100 + 0 + 0 + 20) / 5
	if s.WeightedCompleted != 34 {
		t.Errorf("weighted = %d, want 34", s.WeightedCompleted)
	}
}
