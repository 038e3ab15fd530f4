package mapper

import (
	"context"
	"errors"
	"testing"

	"github.com/fpdash/fpboard/internal/dataverse"
	"github.com/fpdash/fpboard/internal/models"
)

const (
	geita   = 747870003
	sukari  = 747870016
	mining  = 747870011
	finance = 747870004
)

func project(id, title, number string, site, dept int, closed bool) dataverse.Record {
	return dataverse.Record{
		dataverse.FieldProjectID:         id,
		dataverse.FieldProjectTitle:      title,
		dataverse.FieldProjectNumber:     number,
		dataverse.FieldProjectSite:       float64(site),
		dataverse.FieldProjectDepartment: float64(dept),
		dataverse.FieldProjectClosed:     closed,
		dataverse.FieldProjectFAP:        true,
		dataverse.FieldStateCode:         float64(0),
		dataverse.FieldProjectOwner:      "owner-1",
	}
}

func task(id, projectID string, state int) dataverse.Record {
	return dataverse.Record{
		dataverse.FieldTaskID:      id,
		dataverse.FieldTaskName:    "Task " + id,
		dataverse.FieldTaskState:   float64(state),
		dataverse.FieldTaskProject: projectID,
		dataverse.FieldTaskStart:   "2024-02-01",
		dataverse.FieldTaskEnd:     "2024-03-15",
	}
}

func assign(taskID, userID string) dataverse.Record {
	return dataverse.Record{
		dataverse.FieldAssignmentID:   "a-" + taskID + "-" + userID,
		dataverse.FieldAssignmentTask: taskID,
		dataverse.FieldAssignmentUser: userID,
	}
}

func user(id, name string) dataverse.Record {
	return dataverse.Record{
		dataverse.FieldUserID:       id,
		dataverse.FieldUserFullName: name,
		dataverse.FieldUserDisabled: false,
	}
}

func fixture() *dataverse.Memory {
	m := dataverse.NewMemory(2)
	m.Add(dataverse.EntityProject,
		project("p-alpha", "Alpha", "FP-001", geita, mining, false),
		project("p-beta", "Beta", "", geita, finance, false),
		project("p-closed", "Closed", "FP-003", geita, mining, true),
		project("p-sukari", "Gamma", "FP-004", sukari, mining, false),
	)
	m.Add(dataverse.EntityTask,
		task("t1", "p-alpha", 1),
		task("t2", "p-alpha", 0),
		task("t3", "p-beta", 2),
		task("t4", "p-beta", 3),
		task("t5", "p-closed", 0),
		task("t6", "p-sukari", 1),
	)
	m.Add(dataverse.EntityAssignment,
		assign("t1", "u-dana"),
		assign("t2", "u-dana"),
		assign("t3", "u-kofi"),
		assign("t4", "u-dana"),
		assign("t5", "u-dana"),
		assign("t6", "u-kofi"),
	)
	m.Add(dataverse.EntityUser,
		user("u-dana", "Dana Reyes"),
		user("u-kofi", "Kofi Mensah"),
	)
	return m
}

func TestDecodeTask(t *testing.T) {
	r := task("t1", "p-alpha", 1)
	r[dataverse.FieldTaskPercent] = float64(40)
	r[dataverse.FieldTaskType] = float64(1)
	r[dataverse.FieldTaskCategory] = float64(2)
	r[dataverse.FieldTaskState] = float64(9)

	got, ok := DecodeTask(r)
	if !ok {
		t.Fatal("DecodeTask rejected a valid record")
	}
	if got.Status != models.StatusNotStarted {
		t.Errorf("unknown state code should decode as NotStarted, got %v", got.Status)
	}
	if got.Percent() != 40 || !got.IsMilestone() || *got.Category != models.CategoryDTIT {
		t.Errorf("decoded %+v", got)
	}
	if got.StartDate == nil || got.StartDate.Month() != 2 {
		t.Errorf("start = %v", got.StartDate)
	}
	if _, ok := DecodeTask(dataverse.Record{}); ok {
		t.Error("record without id should be rejected")
	}
}

func TestDecodeUserFallbackName(t *testing.T) {
	u := DecodeUser(dataverse.Record{
		dataverse.FieldUserID:    "u1",
		dataverse.FieldUserFirst: "Ama",
		dataverse.FieldUserLast:  "Owusu",
	})
	if u.Name != "Ama Owusu" {
		t.Errorf("Name = %q", u.Name)
	}
}

func TestIndexAssignments(t *testing.T) {
	recs := []dataverse.Record{
		assign("t1", "u1"),
		assign("t1", "u1"),
		assign("t2", "u1"),
		assign("t2", "u2"),
		assign("t2", "u1"),
		{dataverse.FieldAssignmentTaskOld: "t3", dataverse.FieldAssignmentUser: "u3"},
	}
	ix, diags := IndexAssignments(recs)
	if rid, ok := ix.Resource("t1"); !ok || rid != "u1" {
		t.Errorf("t1 -> %q, %v", rid, ok)
	}
	if _, ok := ix.Resource("t2"); ok {
		t.Error("conflicting task t2 should not be indexed")
	}
	if rid, _ := ix.Resource("t3"); rid != "u3" {
		t.Errorf("legacy column not read, t3 -> %q", rid)
	}
	if len(diags) != 1 || diags[0].Kind != ConflictingAssignment || diags[0].TaskID != "t2" {
		t.Errorf("diags = %v", diags)
	}
	if ix.Len() != 2 {
		t.Errorf("Len = %d", ix.Len())
	}
}

func TestMapTasks(t *testing.T) {
	in := Input{
		Tasks: []dataverse.Record{
			task("t1", "p-alpha", 0),
			task("t2", "p-alpha", 1),
			task("t3", "", 0),
			task("t4", "p-ghost", 0),
		},
		Assignments: []dataverse.Record{assign("t1", "u-dana")},
		Users:       []dataverse.Record{user("u-dana", "Dana Reyes")},
		Projects:    []dataverse.Record{project("p-alpha", "Alpha", "FP-001", geita, mining, false)},
	}
	res := MapTasks(in)
	if len(res.Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(res.Tasks))
	}
	if res.Tasks[0].AssigneeName != "Dana Reyes" || res.Tasks[0].ProjectName != "Alpha" {
		t.Errorf("t1 = %+v", res.Tasks[0])
	}
	if res.Tasks[1].AssigneeName != UnassignedLabel || res.Tasks[1].AssigneeID != "" {
		t.Errorf("t2 should be unassigned, got %+v", res.Tasks[1])
	}
	missing := 0
	for _, d := range res.Diagnostics {
		if d.Kind == MissingProject {
			missing++
		}
	}
	if missing != 2 {
		t.Errorf("got %d missing project diagnostics, want 2", missing)
	}
	if res.Projects["p-alpha"].Site != "Geita" {
		t.Errorf("project meta = %+v", res.Projects["p-alpha"])
	}
}

func TestLoaderMyTasks(t *testing.T) {
	l := &Loader{Src: fixture()}
	res, err := l.MyTasks(context.Background(), "u-dana")
	if err != nil {
		t.Fatal(err)
	}
	ids := map[string]bool{}
	for _, tk := range res.Tasks {
		ids[tk.ID] = true
	}
	// t3 belongs to Kofi, t5 sits on a closed project
	for _, want := range []string{"t1", "t2", "t4"} {
		if !ids[want] {
			t.Errorf("missing task %s", want)
		}
	}
	if ids["t3"] || ids["t5"] || len(res.Tasks) != 3 {
		t.Errorf("unexpected tasks %v", ids)
	}
	var inactive bool
	for _, d := range res.Diagnostics {
		inactive = inactive || (d.Kind == InactiveProject && d.TaskID == "t5")
	}
	if !inactive {
		t.Error("expected inactive project diagnostic for t5")
	}
}

func TestLoaderMyTasksPartialFailure(t *testing.T) {
	m := fixture()
	m.FailRetrieve[dataverse.EntityUser] = errors.New("throttled")
	l := &Loader{Src: m}
	res, err := l.MyTasks(context.Background(), "u-dana")
	if err == nil {
		t.Fatal("expected the users stage error")
	}
	if len(res.Tasks) != 3 {
		t.Fatalf("later stages should still map tasks, got %d", len(res.Tasks))
	}
	for _, tk := range res.Tasks {
		if tk.AssigneeID != "u-dana" || tk.AssigneeName != UnassignedLabel {
			t.Errorf("task %s: assignee %q / %q", tk.ID, tk.AssigneeID, tk.AssigneeName)
		}
	}
}

func TestLoaderSiteData(t *testing.T) {
	l := &Loader{Src: fixture()}
	res, err := l.SiteData(context.Background(), "Geita", "")
	if err != nil {
		t.Fatal(err)
	}
	// t4 is cancelled, t5 is on a closed project, t6 is at another site
	if len(res.Tasks) != 3 {
		t.Errorf("got %d tasks, want 3", len(res.Tasks))
	}
	if len(res.Users) != 2 {
		t.Errorf("got %d users, want 2", len(res.Users))
	}

	res, err = l.SiteData(context.Background(), "Geita", "Finance")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tasks) != 1 || res.Tasks[0].ID != "t3" {
		t.Errorf("department filter returned %v", res.Tasks)
	}

	if _, err := l.SiteData(context.Background(), "Atlantis", ""); !errors.Is(err, ErrUnknownSite) {
		t.Errorf("unknown site error = %v", err)
	}
}

func TestSearchUsers(t *testing.T) {
	l := &Loader{Src: fixture()}
	ctx := context.Background()
	users, err := l.SearchUsers(ctx, "k")
	if err != nil || users != nil {
		t.Errorf("short term should return nothing, got %v, %v", users, err)
	}
	users, err = l.SearchUsers(ctx, "men")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].ID != "u-kofi" {
		t.Errorf("got %v", users)
	}
}

func TestUserLookups(t *testing.T) {
	m := fixture()
	m.Add(dataverse.EntityUser, dataverse.Record{
		dataverse.FieldUserID:       "u-ama",
		dataverse.FieldUserFullName: "Ama Owusu",
		dataverse.FieldUserDomain:   "ama@example.com",
	})
	l := &Loader{Src: m}
	ctx := context.Background()

	u, err := l.UserByEmail(ctx, "AMA@example.com")
	if err != nil || u.ID != "u-ama" {
		t.Errorf("UserByEmail = %+v, %v", u, err)
	}
	if _, err := l.UserByEmail(ctx, "nobody@example.com"); !errors.Is(err, dataverse.ErrNotFound) {
		t.Errorf("missing user error = %v", err)
	}
	if u, err := l.UserByID(ctx, "u-kofi"); err != nil || u.Name != "Kofi Mensah" {
		t.Errorf("UserByID = %+v, %v", u, err)
	}
}
