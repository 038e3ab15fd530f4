// Package mapper turns raw backend rows into the task, user and project
// models and stages the multi-entity fetches that feed the views.
package mapper

import (
	"strings"

	"github.com/fpdash/fpboard/internal/dataverse"
	"github.com/fpdash/fpboard/internal/models"
)

// DecodeTask converts a task row. Records without an id are rejected.
func DecodeTask(r dataverse.Record) (models.Task, bool) {
	id := r.String(dataverse.FieldTaskID)
	if id == "" {
		return models.Task{}, false
	}

	t := models.Task{
		ID:              id,
		Title:           r.String(dataverse.FieldTaskName),
		Description:     r.String(dataverse.FieldTaskNote),
		StartDate:       r.Time(dataverse.FieldTaskStart),
		EndDate:         r.Time(dataverse.FieldTaskEnd),
		ProjectID:       r.String(dataverse.FieldTaskProject),
		ProjectName:     r.String(dataverse.Formatted(dataverse.FieldTaskProject)),
		PercentComplete: r.IntPtr(dataverse.FieldTaskPercent),
	}
	if s, ok := r.Int(dataverse.FieldTaskState); ok && models.TaskStatus(s).Valid() {
		t.Status = models.TaskStatus(s)
	}
	if c := r.Time(dataverse.FieldTaskCreatedOn); c != nil {
		t.CreatedOn = *c
	}
	if n, ok := r.Int(dataverse.FieldTaskType); ok {
		tt := models.TaskType(n)
		t.TaskType = &tt
	}
	if n, ok := r.Int(dataverse.FieldTaskCategory); ok && n >= 0 && n <= int(models.CategoryHumanResources) {
		c := models.Category(n)
		t.Category = &c
	}
	if p := r.Nested(dataverse.FieldTaskProjectNav); p != nil {
		if t.ProjectID == "" {
			t.ProjectID = p.String(dataverse.FieldProjectID)
		}
		if title := p.String(dataverse.FieldProjectTitle); title != "" {
			t.ProjectName = title
		}
	}
	if t.Title == "" {
		t.Title = "Untitled Task"
	}
	return t, true
}

// DecodeUser converts a system user row. The full name falls back to
// "first last" and then to the email address.
func DecodeUser(r dataverse.Record) models.User {
	u := models.User{
		ID:        r.String(dataverse.FieldUserID),
		Name:      r.String(dataverse.FieldUserFullName),
		FirstName: r.String(dataverse.FieldUserFirst),
		LastName:  r.String(dataverse.FieldUserLast),
		Email:     r.String(dataverse.FieldUserEmail),
	}
	if u.Email == "" {
		u.Email = r.String(dataverse.FieldUserDomain)
	}
	if u.Name == "" {
		u.Name = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	if u.Name == "" {
		u.Name = u.Email
	}
	return u
}

// DecodeProject converts a project row into its id and metadata
func DecodeProject(r dataverse.Record) (string, models.ProjectMeta) {
	meta := models.ProjectMeta{
		Number:     r.String(dataverse.FieldProjectNumber),
		Title:      r.String(dataverse.FieldProjectTitle),
		OwnerID:    r.String(dataverse.FieldProjectOwner),
		OwnerName:  r.String(dataverse.Formatted(dataverse.FieldProjectOwner)),
		Department: models.DepartmentLabel(r.IntPtr(dataverse.FieldProjectDepartment)),
		Site:       models.SiteLabel(r.IntPtr(dataverse.FieldProjectSite)),
		Status:     r.String(dataverse.Formatted(dataverse.FieldProjectStatus)),
	}
	if meta.Status == "" {
		meta.Status = r.String(dataverse.FieldProjectStatus)
	}
	return r.String(dataverse.FieldProjectID), meta
}

// assignmentTask reads the task reference, preferring the current column
func assignmentTask(r dataverse.Record) string {
	if id := r.String(dataverse.FieldAssignmentTask); id != "" {
		return id
	}
	return r.String(dataverse.FieldAssignmentTaskOld)
}
