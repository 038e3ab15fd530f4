// Package export writes board and site data to an Excel workbook.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fpdash/fpboard/internal/dashboard"
	"github.com/fpdash/fpboard/internal/models"
	"github.com/fpdash/fpboard/internal/timeline"
)

// Sheet names
const (
	SheetTasks     = "Tasks"
	SheetProjects  = "Projects"
	SheetResources = "Resources"
	SheetTimeline  = "Timeline"
)

var taskHeaders = []string{
	"Project", "Task", "Status", "Percent Complete", "Start Date", "End Date",
	"Assigned To", "Type", "Category",
}

// BoardWorkbook exports the My Tasks board
func BoardWorkbook(b dashboard.Board) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := writeTasks(f, b.Tasks); err != nil {
		f.Close()
		return nil, err
	}

	rows := [][]any{}
	for _, p := range b.Projects {
		rows = append(rows, []any{
			p.Name, p.Department, p.Site, p.Status, p.OwnerName,
			p.TotalTasks, p.CompletedTasks, p.InProgressTasks, p.NotStartedTasks,
		})
	}
	headers := []string{"Project", "Department", "Site", "Status", "Owner", "Total", "Completed", "In Progress", "Not Started"}
	if err := writeSheet(f, SheetProjects, headers, rows); err != nil {
		f.Close()
		return nil, err
	}
	return finish(f)
}

// SiteWorkbook exports a site's tasks, resource utilization and timeline
func SiteWorkbook(s dashboard.Site, v timeline.View) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := writeTasks(f, s.Tasks); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeResources(f, s.Resources); err != nil {
		f.Close()
		return nil, err
	}

	var rows [][]any
	for _, lane := range v.Lanes {
		for _, r := range lane.Rows {
			rows = append(rows, []any{
				lane.Department, r.Name, r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly),
				len(r.Tasks), r.Completion, len(r.Markers),
			})
		}
	}
	headers := []string{"Department", "Project", "Start", "End", "Tasks", "Completion %", "Milestones"}
	if err := writeSheet(f, SheetTimeline, headers, rows); err != nil {
		f.Close()
		return nil, err
	}
	return finish(f)
}

func writeTasks(f *excelize.File, tasks []models.Task) error {
	rows := make([][]any, 0, len(tasks))
	for _, t := range tasks {
		kind, category := "Task", ""
		if t.IsMilestone() {
			kind = "Milestone"
		}
		if t.Category != nil {
			category = t.Category.String()
		}
		rows = append(rows, []any{
			t.ProjectName, t.Title, t.Status.String(), t.Percent(),
			cellDate(t.StartDate), cellDate(t.EndDate), t.AssigneeName, kind, category,
		})
	}
	return writeSheet(f, SheetTasks, taskHeaders, rows)
}

// writeResources puts the weekly active counts after the summary columns,
// one column per week headed by its Sunday
func writeResources(f *excelize.File, resources []models.Resource) error {
	headers := []string{"Name", "Email", "Department", "Site", "Total", "Overdue", "Due This Week", "Active", "Utilization %"}
	if len(resources) > 0 {
		for _, w := range resources[0].Weeks {
			headers = append(headers, w.Start.Format(time.DateOnly))
		}
	}
	rows := make([][]any, 0, len(resources))
	for _, r := range resources {
		row := []any{r.Name, r.Email, r.Department, r.Site, r.TotalTasks, r.OverdueTasks, r.DueThisWeek, r.ActiveTasks, r.Utilization}
		for _, w := range r.Weeks {
			row = append(row, w.ActiveTasks)
		}
		rows = append(rows, row)
	}
	return writeSheet(f, SheetResources, headers, rows)
}

func cellDate(t *time.Time) any {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("error creating sheet %s: %w", sheet, err)
	}

	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FED7AA"}, Pattern: 1},
	})
	if err == nil {
		f.SetRowStyle(sheet, 1, 1, headerStyle)
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("error writing %s row %d: %w", sheet, r+2, err)
		}
	}

	if last, err := excelize.ColumnNumberToName(len(headers)); err == nil {
		f.SetColWidth(sheet, "A", last, 18)
	}
	return nil
}

// finish drops the default sheet and activates the first one written
func finish(f *excelize.File) (*excelize.File, error) {
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, err
	}
	if idx, err := f.GetSheetIndex(SheetTasks); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}
	return f, nil
}
