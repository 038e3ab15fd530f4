package mapper

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/fpdash/fpboard/internal/dataverse"
	"github.com/fpdash/fpboard/internal/models"
)

// UnassignedLabel is shown for tasks without a resolvable assignee
const UnassignedLabel = "Unassigned"

// DiagnosticKind classifies dropped or degraded data
type DiagnosticKind string

const (
	MissingProject        DiagnosticKind = "missing_project"
	InactiveProject       DiagnosticKind = "inactive_project"
	ConflictingAssignment DiagnosticKind = "conflicting_assignment"
)

// Diagnostic records a row the mapper filtered or degraded
type Diagnostic struct {
	Kind   DiagnosticKind
	TaskID string
	Detail string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: task %s: %s", d.Kind, d.TaskID, d.Detail)
}

// AssignmentIndex maps a task id to its single resource id
type AssignmentIndex struct {
	byTask     map[string]string
	conflicted map[string]bool
}

// Resource returns the resource assigned to a task
func (ix AssignmentIndex) Resource(taskID string) (string, bool) {
	id, ok := ix.byTask[taskID]
	return id, ok
}

// ResourceIDs lists the distinct assigned resources
func (ix AssignmentIndex) ResourceIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, rid := range ix.byTask {
		if !seen[rid] {
			seen[rid] = true
			ids = append(ids, rid)
		}
	}
	return ids
}

// Len is the number of tasks with a valid assignment
func (ix AssignmentIndex) Len() int { return len(ix.byTask) }

// IndexAssignments builds the task to resource function. A repeated identical
// link is harmless; a task linked to two resources is removed from the index.
func IndexAssignments(records []dataverse.Record) (AssignmentIndex, []Diagnostic) {
	ix := AssignmentIndex{
		byTask:     make(map[string]string),
		conflicted: make(map[string]bool),
	}
	var diags []Diagnostic
	for _, r := range records {
		taskID := assignmentTask(r)
		resID := r.String(dataverse.FieldAssignmentUser)
		if taskID == "" || resID == "" || ix.conflicted[taskID] {
			continue
		}
		prev, ok := ix.byTask[taskID]
		if !ok {
			ix.byTask[taskID] = resID
			continue
		}
		if strings.EqualFold(prev, resID) {
			continue
		}
		delete(ix.byTask, taskID)
		ix.conflicted[taskID] = true
		diags = append(diags, Diagnostic{
			Kind:   ConflictingAssignment,
			TaskID: taskID,
			Detail: fmt.Sprintf("assigned to both %s and %s", prev, resID),
		})
	}
	return ix, diags
}

// Input is the raw rows of one load
type Input struct {
	Tasks       []dataverse.Record
	Assignments []dataverse.Record
	Users       []dataverse.Record
	Projects    []dataverse.Record
}

// Result is the normalized output of MapTasks
type Result struct {
	Tasks       []models.Task
	Projects    map[string]models.ProjectMeta
	Users       map[string]models.User
	Diagnostics []Diagnostic
}

// MapTasks decodes every row and resolves each task's assignee through the
// assignment index. Tasks without a project are dropped with a diagnostic.
func MapTasks(in Input) Result {
	res := Result{
		Projects: make(map[string]models.ProjectMeta, len(in.Projects)),
		Users:    make(map[string]models.User, len(in.Users)),
	}
	for _, r := range in.Projects {
		if id, meta := DecodeProject(r); id != "" {
			res.Projects[id] = meta
		}
	}
	for _, r := range in.Users {
		if u := DecodeUser(r); u.ID != "" {
			res.Users[u.ID] = u
		}
	}

	ix, diags := IndexAssignments(in.Assignments)
	res.Diagnostics = append(res.Diagnostics, diags...)

	for _, r := range in.Tasks {
		t, ok := DecodeTask(r)
		if !ok {
			continue
		}
		if meta, ok := res.Projects[t.ProjectID]; ok && meta.Title != "" {
			t.ProjectName = meta.Title
		}
		if t.ProjectID == "" || t.ProjectName == "" {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Kind:   MissingProject,
				TaskID: t.ID,
				Detail: "no resolvable project reference",
			})
			continue
		}

		t.AssigneeName = UnassignedLabel
		if rid, ok := ix.Resource(t.ID); ok {
			t.AssigneeID = rid
			if u, ok := res.Users[rid]; ok {
				t.AssigneeName = u.Name
			}
		}
		res.Tasks = append(res.Tasks, t)
	}

	for _, d := range res.Diagnostics {
		slog.Debug("mapper diagnostic", "kind", d.Kind, "task", d.TaskID, "detail", d.Detail)
	}
	return res
}
