package views

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fpdash/fpboard/internal/dataverse"
	"github.com/fpdash/fpboard/internal/kanban"
	"github.com/fpdash/fpboard/internal/models"
	"github.com/fpdash/fpboard/internal/placeholder"
)

func loadedBoard(t *testing.T) (*BoardView, *dataverse.Memory) {
	t.Helper()
	svc, src := newBackend(t)
	v := NewBoardView(svc, placeholder.Viewer())
	v.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	deliver(t, v, v.Init())
	if v.board == nil {
		t.Fatal("board not loaded")
	}
	return v, src
}

func laneCounts(v *BoardView) []int {
	cols := kanban.Columns(v.visible())
	var out []int
	for _, l := range kanban.Lanes {
		out = append(out, len(cols[l]))
	}
	return out
}

func TestBoardLoad(t *testing.T) {
	v, _ := loadedBoard(t)
	if got := laneCounts(v); got[0] != 3 || got[1] != 1 || got[2] != 1 {
		t.Errorf("lane counts = %v, want [3 1 1]", got)
	}
	if v.data.Stats.Total != 6 {
		t.Errorf("stats total = %d", v.data.Stats.Total)
	}
	out := v.View()
	for _, want := range []string{"My Tasks", "Not Started (3)", "In Progress (1)", "Completed (1)"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestBoardMove(t *testing.T) {
	v, src := loadedBoard(t)

	cmd := press(v, "l", ">")
	task, _ := v.selected()
	if task.Title != "Trial new SAG mill liners" || task.Status != models.StatusWorkComplete || task.Percent() != 100 {
		t.Fatalf("optimistic task = %s %s %d%%", task.Title, task.Status, task.Percent())
	}
	if v.lane != 2 {
		t.Errorf("cursor should follow the task, lane = %d", v.lane)
	}

	deliver(t, v, cmd)
	if v.toast == nil || !v.toast.Success || v.toast.Message != "Task moved to Completed (100%)" {
		t.Errorf("toast = %+v", v.toast)
	}
	if n := len(src.Updates()); n != 1 {
		t.Errorf("updates = %d", n)
	}

	// completed tasks stay put
	if cmd := press(v, "<"); cmd == nil || v.toast.Success {
		t.Errorf("moving a completed task should fail, toast = %+v", v.toast)
	}
}

func TestBoardMoveRollback(t *testing.T) {
	v, src := loadedBoard(t)
	src.FailUpdate = func(entity, id string) error { return errors.New("503") }

	before, _ := v.selected()
	cmd := press(v, ">")
	if got, _ := v.board.Task(before.ID); got.Status != models.StatusInProgress {
		t.Fatalf("optimistic status = %s", got.Status)
	}

	deliver(t, v, cmd)
	got, _ := v.board.Task(before.ID)
	if got.Status != models.StatusNotStarted || got.Percent() != 0 {
		t.Errorf("rolled back task = %s %d%%", got.Status, got.Percent())
	}
	if v.toast == nil || v.toast.Success || v.toast.Message != "Failed to move task. Please try again." {
		t.Errorf("toast = %+v", v.toast)
	}
	if sel, _ := v.selected(); sel.ID != before.ID {
		t.Errorf("cursor on %q, want %q", sel.Title, before.Title)
	}

	// the failed edit is offered again
	press(v, "e")
	if !v.editing || v.inputs[fieldPercent].Value() != "50" {
		t.Errorf("editing = %v, percent = %q", v.editing, v.inputs[fieldPercent].Value())
	}
}

func TestBoardEdit(t *testing.T) {
	v, src := loadedBoard(t)

	press(v, "l", "e")
	if !v.editing || v.inputs[fieldPercent].Value() != "65" {
		t.Fatalf("editing = %v, percent = %q", v.editing, v.inputs[fieldPercent].Value())
	}
	v.inputs[fieldStart].SetValue("2025-13-40")
	if cmd := press(v, "ctrl+s"); cmd != nil || v.editErr != "start date must be YYYY-MM-DD" {
		t.Errorf("bad date: err = %q", v.editErr)
	}

	v.inputs[fieldStart].SetValue("2025-06-01")
	v.inputs[fieldPercent].SetValue("100")
	cmd := press(v, "ctrl+s")
	if v.editing {
		t.Fatalf("form still open: %q", v.editErr)
	}
	deliver(t, v, cmd)
	if v.toast == nil || v.toast.Message != "Task updated successfully!" {
		t.Errorf("toast = %+v", v.toast)
	}
	updates := src.Updates()
	if len(updates) != 1 {
		t.Fatalf("updates = %d", len(updates))
	}
	if updates[0].Patch["cr725_startdate"] != "2025-06-01" {
		t.Errorf("patch = %v", updates[0].Patch)
	}

	// a completed task keeps its status
	press(v, "e")
	v.inputs[fieldPercent].SetValue("40")
	press(v, "ctrl+s")
	if !v.editing || v.editErr != "Completed tasks cannot change status" {
		t.Errorf("editing = %v, err = %q", v.editing, v.editErr)
	}
	press(v, "esc")
	if v.editing {
		t.Error("esc should close the form")
	}
}

func TestBoardSaveFailureReopensForm(t *testing.T) {
	v, src := loadedBoard(t)
	src.FailUpdate = func(entity, id string) error { return errors.New("503") }

	press(v, "l", "e")
	task, _ := v.selected()
	v.inputs[fieldStart].SetValue("2025-06-02")
	cmd := press(v, "ctrl+s")
	if v.editing {
		t.Fatalf("form still open: %q", v.editErr)
	}

	deliver(t, v, cmd)
	if !v.editing || v.editID != task.ID {
		t.Fatalf("editing = %v on %q, want the form for %q", v.editing, v.editID, task.ID)
	}
	if got := v.inputs[fieldStart].Value(); got != "2025-06-02" {
		t.Errorf("start = %q, want the value that failed", got)
	}
	if got := v.inputs[fieldPercent].Value(); got != "65" {
		t.Errorf("percent = %q", got)
	}
	if v.toast == nil || v.toast.Success || v.toast.Message != "Failed to update task. Please try again." {
		t.Errorf("toast = %+v", v.toast)
	}
	if got, _ := v.board.Task(task.ID); !got.StartDate.Equal(*task.StartDate) {
		t.Errorf("start not rolled back: %v", got.StartDate)
	}

	// retrying from the reopened form writes only the dates
	src.FailUpdate = nil
	deliver(t, v, press(v, "ctrl+s"))
	updates := src.Updates()
	if len(updates) != 1 {
		t.Fatalf("updates = %d", len(updates))
	}
	if _, ok := updates[0].Patch[dataverse.FieldTaskPercent]; ok {
		t.Errorf("unchanged percent written: %v", updates[0].Patch)
	}
	if updates[0].Patch[dataverse.FieldTaskStart] != "2025-06-02" {
		t.Errorf("patch = %v", updates[0].Patch)
	}
}

func TestBoardFilters(t *testing.T) {
	v, _ := loadedBoard(t)

	press(v, "s")
	if v.status == nil || *v.status != models.StatusNotStarted {
		t.Fatalf("status filter = %v", v.status)
	}
	if got := laneCounts(v); got[0] != 3 || got[1] != 0 || got[2] != 0 {
		t.Errorf("lane counts = %v", got)
	}
	press(v, "s", "s", "s", "s")
	if v.status != nil {
		t.Errorf("status filter should cycle back to all, got %v", v.status)
	}

	press(v, "/", "l", "i", "n", "e", "r", "enter")
	if v.searching || len(v.visible()) != 1 {
		t.Errorf("search left %d tasks", len(v.visible()))
	}
	press(v, "esc")
	if len(v.visible()) != 6 {
		t.Errorf("esc should clear the search, %d tasks", len(v.visible()))
	}

	press(v, "p")
	p, ok := v.projectFilter()
	if !ok {
		t.Fatal("no project filter")
	}
	for _, task := range v.visible() {
		if task.ProjectID != p.ID {
			t.Errorf("task %q is outside %s", task.Title, p.Name)
		}
	}
}

func TestBoardProjectList(t *testing.T) {
	v, _ := loadedBoard(t)
	press(v, "v")
	if v.mode != ModeProjects {
		t.Fatal("mode not switched")
	}
	rows := v.projectRows()
	if rows[0].task != nil {
		t.Fatal("first row should be a project")
	}
	total := len(rows)

	press(v, "space")
	if got := len(v.projectRows()); got != total-len(rows[0].project.Tasks) {
		t.Errorf("collapsed rows = %d", got)
	}
	press(v, "enter")
	if len(v.projectRows()) != total {
		t.Error("enter on a project should expand it")
	}

	press(v, "down")
	if _, ok := v.selected(); !ok {
		t.Error("a task row should be selectable")
	}
	if out := v.View(); !strings.Contains(out, "(owner)") {
		t.Error("owned projects should be marked")
	}
}

func TestBoardSwitchUser(t *testing.T) {
	v, _ := loadedBoard(t)
	jane := models.User{ID: placeholder.ID("user:jane"), Name: "Jane Smith"}

	_, cmd := v.Update(UserSelected{User: jane})
	deliver(t, v, cmd)
	if v.Viewer().ID != jane.ID || len(v.board.Tasks()) != 2 {
		t.Fatalf("viewer = %s, tasks = %d", v.Viewer().Name, len(v.board.Tasks()))
	}
	if !v.data.Projects[0].IsOwner {
		t.Error("ownership should follow the viewed user")
	}
	if !strings.Contains(v.View(), "Tasks for Jane Smith") {
		t.Error("title should name the viewed user")
	}

	deliver(t, v, press(v, "m"))
	if v.Viewer().ID != placeholder.Viewer().ID {
		t.Error("m should return to my tasks")
	}
}

func TestBoardDropsStaleLoads(t *testing.T) {
	v, _ := loadedBoard(t)
	v.viewer = models.User{ID: placeholder.ID("user:jane")}
	stale := v.load()
	v.viewer = placeholder.Viewer()
	fresh := v.load()

	v.Update(fresh())
	v.Update(stale())
	if v.data.Viewer.ID != placeholder.Viewer().ID || v.loading {
		t.Errorf("stale load applied: viewer %s", v.data.Viewer.ID)
	}
}

func TestBoardCapturing(t *testing.T) {
	v, _ := loadedBoard(t)
	if v.Capturing() {
		t.Fatal("idle board should not capture keys")
	}
	press(v, "/")
	if !v.Capturing() {
		t.Error("search should capture keys")
	}
	press(v, "esc", "?")
	if !v.Capturing() || !strings.Contains(v.View(), "Keyboard Shortcuts") {
		t.Error("help popup should show")
	}
}
