package utilization

import (
	"testing"
	"time"

	"github.com/fpdash/fpboard/internal/models"
)

// Wednesday
var now = time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC)

func day(offset int) *time.Time {
	d := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	return &d
}

func TestWeekBounds(t *testing.T) {
	start := WeekStart(now)
	if start.Weekday() != time.Sunday || start.Day() != 8 || start.Hour() != 0 {
		t.Errorf("WeekStart = %v", start)
	}
	end := WeekEnd(start)
	if end.Weekday() != time.Saturday || end.Day() != 14 || end.Hour() != 23 {
		t.Errorf("WeekEnd = %v", end)
	}
	if !WeekStart(start).Equal(start) {
		t.Error("WeekStart of a Sunday should be itself")
	}
}

func TestIsOverdue(t *testing.T) {
	tests := []struct {
		name string
		task models.Task
		want bool
	}{
		{"not started, start and end past", models.Task{Status: models.StatusNotStarted, StartDate: day(-10), EndDate: day(-2)}, true},
		{"not started, start past only", models.Task{Status: models.StatusNotStarted, StartDate: day(-1), EndDate: day(5)}, true},
		{"in progress, start past", models.Task{Status: models.StatusInProgress, StartDate: day(-1), EndDate: day(5)}, false},
		{"in progress, end past", models.Task{Status: models.StatusInProgress, EndDate: day(-1)}, true},
		{"complete", models.Task{Status: models.StatusWorkComplete, EndDate: day(-30)}, false},
		{"undated", models.Task{Status: models.StatusNotStarted}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOverdue(tt.task, now); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimingMetrics(t *testing.T) {
	dueSat := models.Task{Status: models.StatusInProgress, EndDate: day(3)}
	dueNextSun := models.Task{Status: models.StatusInProgress, EndDate: day(4)}
	if !IsDueThisWeek(dueSat, now) || IsDueThisWeek(dueNextSun, now) {
		t.Error("due this week boundaries wrong")
	}

	july := models.Task{Status: models.StatusNotStarted, StartDate: day(25)}
	if !StartsNextMonth(july, now) {
		t.Error("July 6 start should be next month")
	}
	inProgress := july
	inProgress.Status = models.StatusInProgress
	if StartsNextMonth(inProgress, now) || StartsWithinThreeMonths(inProgress, now) {
		t.Error("started work is not upcoming")
	}
	if !StartsWithinThreeMonths(july, now) {
		t.Error("July start is within three months")
	}
	late := models.Task{Status: models.StatusNotStarted, StartDate: day(100)}
	if StartsWithinThreeMonths(late, now) {
		t.Error("September 19 is past the three month window")
	}
}

func TestHorizon(t *testing.T) {
	if HorizonForRange("12months").Resolve(nil, now) != 52 || HorizonForRange("24months").Resolve(nil, now) != 104 {
		t.Error("fixed ranges wrong")
	}
	all := HorizonForRange("all")
	if all.Resolve(nil, now) != MinWeeks {
		t.Error("all with no dates should be the minimum")
	}
	far := []models.Task{{EndDate: day(700)}}
	if got := all.Resolve(far, now); got != 100 {
		t.Errorf("all horizon = %d, want 100", got)
	}
}

func TestWeekly(t *testing.T) {
	tasks := []models.Task{
		{ID: "range", Status: models.StatusInProgress, StartDate: day(7), EndDate: day(20)},
		{ID: "end-only", Status: models.StatusNotStarted, EndDate: day(10)},
		{ID: "start-only", Status: models.StatusNotStarted, StartDate: day(30)},
		{ID: "undated", Status: models.StatusNotStarted},
		{ID: "done", Status: models.StatusWorkComplete, StartDate: day(-5), EndDate: day(100)},
		{ID: "cancelled", Status: models.StatusCancelled},
	}
	weeks := Weekly(tasks, Weeks(12), 0, now)
	if len(weeks) != 12 {
		t.Fatalf("got %d weeks", len(weeks))
	}
	// week 0: Jun 8-14   end-only, undated
	// week 1: Jun 15-21  range, end-only, undated
	// week 2: Jun 22-28  range, undated
	// week 3: Jun 29-Jul 5  range, undated
	// week 4: Jul 6-12   start-only, undated
	// week 8: Aug 3-9    start-only
	want := map[int]int{0: 2, 1: 3, 2: 2, 3: 2, 4: 2, 7: 2, 8: 1, 11: 1}
	for i, n := range want {
		if weeks[i].ActiveTasks != n {
			t.Errorf("week %d (%s): %d active, want %d", i, weeks[i].Start.Format("Jan 2"), weeks[i].ActiveTasks, n)
		}
	}
	for _, w := range weeks {
		if w.Level != models.LevelNormal {
			t.Errorf("default level = %s", w.Level)
		}
	}

	back := Weekly(tasks, Weeks(2), -1, now)
	if !back[0].Start.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("offset -1 first week = %v", back[0].Start)
	}
}

func TestBuildResources(t *testing.T) {
	users := map[string]models.User{
		"u1": {ID: "u1", Name: "Zoe Banda"},
		"u2": {ID: "u2", Name: "Abel Tesfaye"},
		"u3": {ID: "u3", Name: "Idle Person"},
	}
	meta := map[string]models.ProjectMeta{
		"p1": {Department: "Processing", Site: "Geita"},
		"p2": {Department: "Geology", Site: "Geita"},
		"p3": {Department: "Geology", Site: "Obuasi"},
	}
	tasks := []models.Task{
		{ID: "1", AssigneeID: "u1", ProjectID: "p1", Status: models.StatusInProgress, EndDate: day(-1)},
		{ID: "2", AssigneeID: "u1", ProjectID: "p2", Status: models.StatusNotStarted, EndDate: day(2)},
		{ID: "3", AssigneeID: "u1", ProjectID: "p3", Status: models.StatusNotStarted},
		{ID: "4", AssigneeID: "u2", ProjectID: "p1", Status: models.StatusWorkComplete},
		{ID: "5", AssigneeID: "u2", ProjectID: "p2", Status: models.StatusNotStarted},
		{ID: "6", AssigneeID: "", ProjectID: "p2", Status: models.StatusNotStarted},
	}
	rs := BuildResources(tasks, meta, users, now, Weeks(4))
	if len(rs) != 2 || rs[0].Name != "Abel Tesfaye" {
		t.Fatalf("resources = %+v", rs)
	}
	zoe := rs[1]
	if zoe.Department != "Geology" || zoe.Site != "Geita" {
		t.Errorf("modal dept/site = %s/%s", zoe.Department, zoe.Site)
	}
	if zoe.TotalTasks != 3 || zoe.OverdueTasks != 1 || zoe.DueThisWeek != 2 || zoe.ActiveTasks != 3 {
		t.Errorf("zoe = %+v", zoe)
	}
	abel := rs[0]
	// one project each: tie keeps the first seen
	if abel.Department != "Processing" {
		t.Errorf("tie should keep first seen, got %s", abel.Department)
	}
	if len(abel.Weeks) != 4 {
		t.Errorf("weeks = %d", len(abel.Weeks))
	}
}

func TestRelative(t *testing.T) {
	rs := Relative([]models.Resource{{ActiveTasks: 1}, {ActiveTasks: 1}, {ActiveTasks: 1}})
	sum := 0
	for _, r := range rs {
		sum += r.Utilization
	}
	if sum < 100-len(rs) || sum > 100+len(rs) {
		t.Errorf("sum = %d", sum)
	}

	rs = Relative([]models.Resource{{ActiveTasks: 0}, {ActiveTasks: 10}})
	if rs[0].Utilization != 0 || rs[1].Utilization != 100 {
		t.Errorf("got %d, %d", rs[0].Utilization, rs[1].Utilization)
	}
	for _, r := range Relative([]models.Resource{{}, {}}) {
		if r.Utilization != 0 {
			t.Error("zero total should give zero")
		}
	}
}

func TestFilterResources(t *testing.T) {
	rs := []models.Resource{
		{Name: "Dana Reyes", Site: "Geita", Department: "Processing", ActiveTasks: 3},
		{Name: "Kofi Mensah", Site: "Geita", Department: "Geology", ActiveTasks: 1},
		{Name: "Ama Owusu", Site: "Obuasi", Department: "Geology", ActiveTasks: 4},
	}
	got := FilterResources(rs, Filter{Site: "Geita", Department: "all"})
	if len(got) != 2 || got[0].Utilization != 75 || got[1].Utilization != 25 {
		t.Errorf("site filter = %+v", got)
	}
	got = FilterResources(rs, Filter{Search: "OWU"})
	if len(got) != 1 || got[0].Utilization != 100 {
		t.Errorf("search = %+v", got)
	}
}

func TestGroupByProject(t *testing.T) {
	r := models.Resource{
		TotalTasks: 3,
		Tasks: []models.Task{
			{ProjectID: "b", ProjectName: "Bravo", Status: models.StatusInProgress},
			{ProjectID: "a", ProjectName: "alpha", Status: models.StatusNotStarted, StartDate: day(25)},
			{ProjectID: "b", ProjectName: "Bravo", Status: models.StatusNotStarted, EndDate: day(-3)},
		},
	}
	b := GroupByProject(r, now)
	if len(b.Projects) != 2 || b.Projects[0].ProjectName != "alpha" {
		t.Fatalf("projects = %+v", b.Projects)
	}
	if b.Projects[1].OverdueTasks != 1 || len(b.Projects[1].Tasks) != 2 {
		t.Errorf("bravo = %+v", b.Projects[1])
	}
	if b.UnderwayNow != 1 || b.StartingNextMonth != 1 || b.StartingNext3Months != 1 {
		t.Errorf("timing = %d/%d/%d", b.UnderwayNow, b.StartingNextMonth, b.StartingNext3Months)
	}
}

func TestApplyLevels(t *testing.T) {
	rs := []models.Resource{
		{Weeks: []models.UtilizationWeek{{ActiveTasks: 1}, {ActiveTasks: 4}}},
		{Weeks: []models.UtilizationWeek{{ActiveTasks: 3}, {ActiveTasks: 0}}},
	}
	above := ClassifierFunc(func(active int, mean float64) models.UtilizationLevel {
		if float64(active) > mean {
			return models.LevelHigh
		}
		return models.LevelLow
	})
	ApplyLevels(rs, above)
	if rs[0].Weeks[0].Level != models.LevelLow || rs[0].Weeks[1].Level != models.LevelHigh || rs[1].Weeks[0].Level != models.LevelHigh {
		t.Errorf("levels = %+v", rs)
	}
}
