package export

import (
	"bytes"
	"context"
	"slices"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fpdash/fpboard/internal/dashboard"
	"github.com/fpdash/fpboard/internal/mapper"
	"github.com/fpdash/fpboard/internal/placeholder"
	"github.com/fpdash/fpboard/internal/timeline"
	"github.com/fpdash/fpboard/internal/utilization"
)

var now = time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC)

func service() *dashboard.Service {
	return &dashboard.Service{
		Loader: &mapper.Loader{Src: placeholder.NewSource(now)},
		Now:    func() time.Time { return now },
	}
}

func reopen(t *testing.T, f *excelize.File) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	f.Close()
	out, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { out.Close() })
	return out
}

func TestBoardWorkbook(t *testing.T) {
	b := service().MyTasks(context.Background(), placeholder.Viewer())
	f, err := BoardWorkbook(b)
	if err != nil {
		t.Fatal(err)
	}
	f = reopen(t, f)

	if got := f.GetSheetList(); !slices.Equal(got, []string{SheetTasks, SheetProjects}) {
		t.Fatalf("sheets = %v", got)
	}
	rows, err := f.GetRows(SheetTasks)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != len(b.Tasks)+1 {
		t.Errorf("task rows = %d, want %d", len(rows), len(b.Tasks)+1)
	}
	if rows[0][0] != "Project" || rows[0][8] != "Category" {
		t.Errorf("header = %v", rows[0])
	}
	if v, _ := f.GetCellValue(SheetTasks, "B2"); v != b.Tasks[0].Title {
		t.Errorf("B2 = %q, want %q", v, b.Tasks[0].Title)
	}

	projects, _ := f.GetRows(SheetProjects)
	if len(projects) != len(b.Projects)+1 {
		t.Errorf("project rows = %d", len(projects))
	}
}

func TestSiteWorkbook(t *testing.T) {
	site, err := service().SiteData(context.Background(), dashboard.SiteOptions{Site: placeholder.Site, Horizon: utilization.Weeks(4)})
	if err != nil {
		t.Fatal(err)
	}
	v, _ := timeline.Layout(site.Tasks, site.Resources, now, timeline.Options{ShowMilestones: true})
	f, err := SiteWorkbook(site, v)
	if err != nil {
		t.Fatal(err)
	}
	f = reopen(t, f)

	if got := f.GetSheetList(); !slices.Equal(got, []string{SheetTasks, SheetResources, SheetTimeline}) {
		t.Fatalf("sheets = %v", got)
	}

	res, _ := f.GetRows(SheetResources)
	if len(res) != len(site.Resources)+1 {
		t.Fatalf("resource rows = %d", len(res))
	}
	// nine summary columns then one per week
	if len(res[0]) != 9+4 || res[0][9] != "2025-06-08" {
		t.Errorf("resource header = %v", res[0])
	}

	tl, _ := f.GetRows(SheetTimeline)
	if len(tl) != 5 {
		t.Errorf("timeline rows = %d, want 4 projects and a header", len(tl))
	}
}
