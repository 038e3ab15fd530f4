package views

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fpdash/fpboard/internal/placeholder"
	"github.com/fpdash/fpboard/internal/utilization"
)

func TestSiteFilter(t *testing.T) {
	store := newStore(t)
	f := newSiteFilter(store)
	if f.site != "Iduapriem" {
		t.Errorf("default site = %q", f.site)
	}

	if got := f.nextSite(); got != "Obuasi" {
		t.Errorf("next site = %q", got)
	}
	if saved, _ := store.SelectedSite(); saved != "Obuasi" {
		t.Errorf("saved site = %q", saved)
	}

	depts := []string{"Finance", "Geology"}
	f.nextDepartment(depts)
	if f.department(depts) != "Finance" {
		t.Errorf("department = %q", f.department(depts))
	}
	f.nextDepartment(depts)
	f.nextDepartment(depts)
	if f.departmentLabel(depts) != "All" {
		t.Errorf("label = %q", f.departmentLabel(depts))
	}

	f.nextDepartment(depts)
	if f.set("Obuasi") || f.deptIdx != 1 {
		t.Error("setting the same site should change nothing")
	}
	if !f.set("Geita") || f.deptIdx != 0 {
		t.Error("a new site should reset the department")
	}
}

func geitaStore(t *testing.T) Settings {
	store := newStore(t)
	if err := store.SetSelectedSite(placeholder.Site); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestTimelineView(t *testing.T) {
	svc, _ := newBackend(t)
	v := NewTimelineView(svc, geitaStore(t), utilization.Weeks(4), clock)
	v.Update(tea.WindowSizeMsg{Width: 140, Height: 60})
	deliver(t, v, v.Init())

	tl, ok := v.Layout()
	if !ok {
		t.Fatal("no layout")
	}
	rows, markers := 0, 0
	for _, lane := range tl.Lanes {
		rows += len(lane.Rows)
		for _, r := range lane.Rows {
			markers += len(r.Markers)
		}
	}
	if rows != 4 || markers == 0 {
		t.Errorf("rows = %d, markers = %d", rows, markers)
	}

	out := v.View()
	for _, want := range []string{"Project Timeline: Geita", "2025", "Mill Throughput Uplift", "Milestones: All"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}

	press(v, "m")
	tl, _ = v.Layout()
	for _, lane := range tl.Lanes {
		for _, r := range lane.Rows {
			if len(r.Markers) != 0 {
				t.Error("milestones should be hidden")
			}
		}
	}
	press(v, "m", "c")
	if !strings.Contains(v.View(), "Milestones: General Operations") {
		t.Error("category filter not shown")
	}
}

func TestTimelineDepartment(t *testing.T) {
	svc, _ := newBackend(t)
	v := NewTimelineView(svc, geitaStore(t), utilization.Weeks(4), clock)
	deliver(t, v, v.Init())

	press(v, "d")
	if got := v.filter.department(v.site.Departments); got != "Digital Technology" {
		t.Fatalf("department = %q", got)
	}
	tl, ok := v.Layout()
	if !ok {
		t.Fatal("no layout")
	}
	var names []string
	for _, lane := range tl.Lanes {
		for _, r := range lane.Rows {
			names = append(names, r.Name)
		}
	}
	if len(names) != 1 || names[0] != "Fleet Telemetry Rollout" {
		t.Errorf("rows = %v", names)
	}
}

func TestTimelineSiteChange(t *testing.T) {
	svc, _ := newBackend(t)
	store := geitaStore(t)
	v := NewTimelineView(svc, store, utilization.Weeks(4), clock)
	deliver(t, v, v.Init())

	cmd := press(v, "s")
	if v.filter.site != "Sukari" {
		t.Fatalf("site = %q", v.filter.site)
	}
	if saved, _ := store.SelectedSite(); saved != "Sukari" {
		t.Errorf("saved = %q", saved)
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok || len(batch) != 2 {
		t.Fatalf("expected a load and a site change, got %T", cmd())
	}
	if changed, ok := batch[1]().(SiteChanged); !ok || changed.Site != "Sukari" {
		t.Errorf("second message = %+v", changed)
	}
	v.Update(batch[0]())
	if _, ok := v.Layout(); ok {
		t.Error("Sukari has no sample projects")
	}
	if !strings.Contains(v.View(), "No projects with start and end dates") {
		t.Error("empty timeline message missing")
	}

	// a change made in another view reloads this one
	_, reload := v.Update(SiteChanged{Site: placeholder.Site})
	deliver(t, v, reload)
	if _, ok := v.Layout(); !ok || v.filter.site != placeholder.Site {
		t.Error("timeline should follow the site change")
	}
}

func TestResourceView(t *testing.T) {
	svc, _ := newBackend(t)
	v := NewResourceView(svc, geitaStore(t), "12months", nil, clock)
	v.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	deliver(t, v, v.Init())

	rs := v.Resources()
	if len(rs) != 6 {
		t.Fatalf("resources = %d", len(rs))
	}
	if len(rs[0].Weeks) != 52 {
		t.Errorf("weeks = %d", len(rs[0].Weeks))
	}
	if out := v.View(); !strings.Contains(out, "Resource Utilization: Geita") || !strings.Contains(out, "Jane Smith") {
		t.Error("table not rendered")
	}

	press(v, "/", "j", "a", "n", "e", "enter")
	rs = v.Resources()
	if len(rs) != 1 || rs[0].Utilization != 100 {
		t.Fatalf("search = %+v", rs)
	}
	press(v, "enter")
	if !v.detail || !strings.Contains(v.View(), "underway") {
		t.Error("detail not shown")
	}
	press(v, "esc")
	if v.detail {
		t.Error("esc should close the detail")
	}

	cmd := press(v, "g")
	deliver(t, v, cmd)
	if Ranges[v.rangeIdx] != "24months" || len(v.Resources()[0].Weeks) != 104 {
		t.Errorf("range = %s, weeks = %d", Ranges[v.rangeIdx], len(v.Resources()[0].Weeks))
	}
}

func TestResourceDepartment(t *testing.T) {
	svc, _ := newBackend(t)
	v := NewResourceView(svc, geitaStore(t), "12months", nil, clock)
	deliver(t, v, v.Init())

	for range v.site.Departments {
		press(v, "d")
		dept := v.filter.department(v.site.Departments)
		sum := 0
		for _, r := range v.Resources() {
			if r.Department != dept {
				t.Errorf("%s in %s shown under %s", r.Name, r.Department, dept)
			}
			sum += r.Utilization
		}
		if sum != 0 && (sum < 97 || sum > 103) {
			t.Errorf("%s utilization sums to %d", dept, sum)
		}
	}
}
