package mapper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/fpdash/fpboard/internal/dataverse"
	"github.com/fpdash/fpboard/internal/models"
)

// ErrUnknownSite is returned for a site label with no option code
var ErrUnknownSite = errors.New("unknown site")

// MinSearchLength is the shortest accepted user search term
const MinSearchLength = 2

var (
	taskSelect = []string{
		dataverse.FieldTaskID, dataverse.FieldTaskName, dataverse.FieldTaskNote,
		dataverse.FieldTaskState, dataverse.FieldTaskStart, dataverse.FieldTaskEnd,
		dataverse.FieldTaskPercent, dataverse.FieldTaskProject, dataverse.FieldTaskCreatedOn,
		dataverse.FieldTaskType, dataverse.FieldTaskCategory,
	}
	assignmentSelect = []string{
		dataverse.FieldAssignmentID, dataverse.FieldAssignmentTask,
		dataverse.FieldAssignmentTaskOld, dataverse.FieldAssignmentUser,
	}
	userSelect = []string{
		dataverse.FieldUserID, dataverse.FieldUserFullName, dataverse.FieldUserFirst,
		dataverse.FieldUserLast, dataverse.FieldUserEmail,
	}
	projectSelect = []string{
		dataverse.FieldProjectID, dataverse.FieldProjectTitle, dataverse.FieldProjectNumber,
		dataverse.FieldProjectDepartment, dataverse.FieldProjectSite, dataverse.FieldProjectStatus,
		dataverse.FieldProjectOwner,
	}
)

// activeProjects excludes closed and deactivated projects
const activeProjects = "cr725_projectclosed ne true and statecode eq 0"

// Loader runs the staged fetches. Every stage depends on the ids returned by
// the one before it; a failed stage is logged and treated as empty so the
// later stages still run.
type Loader struct {
	Src dataverse.Source
}

type stages struct {
	errs   []error
	failed map[string]bool
}

func (s *stages) run(name string, fn func() ([]dataverse.Record, error)) []dataverse.Record {
	recs, err := fn()
	if err != nil {
		slog.Warn("fetch stage failed", "stage", name, "error", err)
		s.errs = append(s.errs, fmt.Errorf("%s: %w", name, err))
		if s.failed == nil {
			s.failed = make(map[string]bool)
		}
		s.failed[name] = true
		return nil
	}
	slog.Debug("fetch stage complete", "stage", name, "rows", len(recs))
	return recs
}

func (s *stages) err() error { return errors.Join(s.errs...) }

// MyTasks loads every task assigned to userID together with the other
// assignees of those tasks
func (l *Loader) MyTasks(ctx context.Context, userID string) (Result, error) {
	var st stages

	mine := st.run("assignments", func() ([]dataverse.Record, error) {
		q := dataverse.Query{
			Select: assignmentSelect,
			Filter: dataverse.FieldAssignmentUser + " eq " + userID,
		}
		return dataverse.FetchAll(ctx, l.Src, dataverse.EntityAssignment, q.String())
	})
	var taskIDs []string
	for _, r := range mine {
		if id := assignmentTask(r); id != "" {
			taskIDs = append(taskIDs, id)
		}
	}
	if len(taskIDs) == 0 {
		return MapTasks(Input{}), st.err()
	}

	tasks := st.run("tasks", func() ([]dataverse.Record, error) {
		return dataverse.FetchByIDs(ctx, l.Src, dataverse.EntityTask,
			dataverse.Query{Select: taskSelect}, dataverse.FieldTaskID, taskIDs)
	})

	projects := st.run("projects", func() ([]dataverse.Record, error) {
		return dataverse.FetchByIDs(ctx, l.Src, dataverse.EntityProject,
			dataverse.Query{Select: projectSelect, Filter: activeProjects},
			dataverse.FieldProjectID, fieldValues(tasks, dataverse.FieldTaskProject))
	})
	var inactive []Diagnostic
	if !st.failed["projects"] {
		tasks, inactive = dropInactive(tasks, projects)
	}

	all := st.run("task assignments", func() ([]dataverse.Record, error) {
		return dataverse.FetchByIDs(ctx, l.Src, dataverse.EntityAssignment,
			dataverse.Query{Select: assignmentSelect}, dataverse.FieldAssignmentTask, taskIDs)
	})
	// the viewer's own rows cover legacy assignments and a failed stage
	all = append(all, mine...)

	users := st.run("users", func() ([]dataverse.Record, error) {
		return dataverse.FetchByIDs(ctx, l.Src, dataverse.EntityUser,
			dataverse.Query{Select: userSelect}, dataverse.FieldUserID,
			fieldValues(all, dataverse.FieldAssignmentUser))
	})

	res := MapTasks(Input{Tasks: tasks, Assignments: all, Users: users, Projects: projects})
	res.Diagnostics = append(res.Diagnostics, inactive...)
	return res, st.err()
}

// SiteData loads the active full-asset-potential projects at a site,
// optionally narrowed to one department, with their open tasks and assignees
func (l *Loader) SiteData(ctx context.Context, site, department string) (Result, error) {
	siteCode, ok := models.SiteCode(site)
	if !ok {
		return MapTasks(Input{}), fmt.Errorf("%w: %q", ErrUnknownSite, site)
	}
	filter := fmt.Sprintf("%s and %s eq true and %s eq %d",
		activeProjects, dataverse.FieldProjectFAP, dataverse.FieldProjectSite, siteCode)
	if department != "" {
		if code, ok := models.DepartmentCode(department); ok {
			filter += fmt.Sprintf(" and %s eq %d", dataverse.FieldProjectDepartment, code)
		}
	}

	var st stages
	projects := st.run("projects", func() ([]dataverse.Record, error) {
		q := dataverse.Query{Select: projectSelect, Filter: filter}
		return dataverse.FetchAll(ctx, l.Src, dataverse.EntityProject, q.String())
	})
	tasks := st.run("tasks", func() ([]dataverse.Record, error) {
		return dataverse.FetchByIDs(ctx, l.Src, dataverse.EntityTask,
			dataverse.Query{Select: taskSelect, Filter: dataverse.FieldTaskState + " ne 3"},
			dataverse.FieldTaskProject, fieldValues(projects, dataverse.FieldProjectID))
	})
	assignments := st.run("assignments", func() ([]dataverse.Record, error) {
		return dataverse.FetchByIDs(ctx, l.Src, dataverse.EntityAssignment,
			dataverse.Query{Select: assignmentSelect}, dataverse.FieldAssignmentTask,
			fieldValues(tasks, dataverse.FieldTaskID))
	})
	users := st.run("users", func() ([]dataverse.Record, error) {
		return dataverse.FetchByIDs(ctx, l.Src, dataverse.EntityUser,
			dataverse.Query{Select: userSelect}, dataverse.FieldUserID,
			fieldValues(assignments, dataverse.FieldAssignmentUser))
	})

	return MapTasks(Input{Tasks: tasks, Assignments: assignments, Users: users, Projects: projects}), st.err()
}

// SearchUsers finds enabled users whose name contains term. Terms shorter
// than MinSearchLength return nothing.
func (l *Loader) SearchUsers(ctx context.Context, term string) ([]models.User, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < MinSearchLength {
		return nil, nil
	}
	lit := dataverse.Quote(term)
	q := dataverse.Query{
		Select: userSelect,
		Filter: fmt.Sprintf("%s eq false and (contains(%s,%s) or contains(%s,%s) or contains(%s,%s))",
			dataverse.FieldUserDisabled,
			dataverse.FieldUserFirst, lit, dataverse.FieldUserLast, lit, dataverse.FieldUserFullName, lit),
		OrderBy: dataverse.FieldUserFullName,
		Top:     20,
	}
	page, err := l.Src.RetrieveMultiple(ctx, dataverse.EntityUser, q.String())
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	users := make([]models.User, 0, len(page.Entities))
	for _, r := range page.Entities {
		users = append(users, DecodeUser(r))
	}
	return users, nil
}

// UserByEmail matches on the primary email or the domain login name
func (l *Loader) UserByEmail(ctx context.Context, email string) (models.User, error) {
	lit := dataverse.Quote(email)
	q := dataverse.Query{
		Select: userSelect,
		Filter: fmt.Sprintf("%s eq %s or %s eq %s",
			dataverse.FieldUserEmail, lit, dataverse.FieldUserDomain, lit),
		Top: 1,
	}
	page, err := l.Src.RetrieveMultiple(ctx, dataverse.EntityUser, q.String())
	if err != nil {
		return models.User{}, err
	}
	if len(page.Entities) == 0 {
		return models.User{}, fmt.Errorf("user %s: %w", email, dataverse.ErrNotFound)
	}
	return DecodeUser(page.Entities[0]), nil
}

// UserByID loads a single user
func (l *Loader) UserByID(ctx context.Context, id string) (models.User, error) {
	q := dataverse.Query{Select: userSelect}
	r, err := l.Src.RetrieveRecord(ctx, dataverse.EntityUser, id, q.String())
	if err != nil {
		return models.User{}, err
	}
	u := DecodeUser(r)
	if u.ID == "" {
		u.ID = id
	}
	return u, nil
}

// dropInactive removes tasks whose project was not returned by the
// active-project query
func dropInactive(tasks, projects []dataverse.Record) ([]dataverse.Record, []Diagnostic) {
	active := make(map[string]bool, len(projects))
	for _, p := range projects {
		active[p.String(dataverse.FieldProjectID)] = true
	}
	var kept []dataverse.Record
	var diags []Diagnostic
	for _, t := range tasks {
		pid := t.String(dataverse.FieldTaskProject)
		if pid != "" && !active[pid] {
			diags = append(diags, Diagnostic{
				Kind:   InactiveProject,
				TaskID: t.String(dataverse.FieldTaskID),
				Detail: "project " + pid + " is closed or inactive",
			})
			continue
		}
		kept = append(kept, t)
	}
	return kept, diags
}

func fieldValues(recs []dataverse.Record, field string) []string {
	var out []string
	for _, r := range recs {
		if v := r.String(field); v != "" {
			out = append(out, v)
		}
	}
	return out
}
