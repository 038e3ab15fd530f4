// Package kanban holds the task status rules behind the board: which lane
// moves are allowed, how percent complete follows status and back, and the
// optimistic update cycle with rollback.
package kanban

import (
	"errors"
	"time"

	"github.com/fpdash/fpboard/internal/models"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNoChange          = errors.New("no change")
	ErrUnknownTask       = errors.New("unknown task")
	ErrNotALane          = errors.New("status has no lane")
)

// Lanes are the board columns, left to right. Cancelled tasks have no lane.
var Lanes = []models.TaskStatus{
	models.StatusNotStarted,
	models.StatusInProgress,
	models.StatusWorkComplete,
}

// IsLane reports whether s is one of Lanes
func IsLane(s models.TaskStatus) bool {
	for _, l := range Lanes {
		if l == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether a task may move from one status to another.
// Terminal statuses never move; any open status may move to any other
// status, including back to Not Started.
func CanTransition(from, to models.TaskStatus) bool {
	if from == to || !from.Valid() || !to.Valid() {
		return false
	}
	return !from.Terminal()
}

// ClampPercent bounds p to 0..100
func ClampPercent(p int) int {
	return max(0, min(100, p))
}

// StatusForPercent derives status from percent complete
func StatusForPercent(p int) models.TaskStatus {
	switch p = ClampPercent(p); {
	case p >= 100:
		return models.StatusWorkComplete
	case p > 0:
		return models.StatusInProgress
	}
	return models.StatusNotStarted
}

// PercentForLane is the percent complete a task gets when dropped on lane
func PercentForLane(current *int, lane models.TaskStatus) int {
	p := 0
	if current != nil {
		p = *current
	}
	switch lane {
	case models.StatusNotStarted:
		return 0
	case models.StatusInProgress:
		if p == 0 {
			return 50
		}
		return p
	case models.StatusWorkComplete:
		return 100
	}
	return p
}

// DropOnLane moves a task to a lane, setting the lane's default percent
func DropOnLane(t models.Task, lane models.TaskStatus) (models.Task, error) {
	if !IsLane(lane) {
		return t, ErrNotALane
	}
	if t.Status == lane {
		return t, ErrNoChange
	}
	if !CanTransition(t.Status, lane) {
		return t, ErrInvalidTransition
	}
	p := PercentForLane(t.PercentComplete, lane)
	t.Status = lane
	t.PercentComplete = &p
	return t, nil
}

// Edit is the task form. Nil fields are left unchanged.
type Edit struct {
	Status  *models.TaskStatus
	Percent *int
	Start   *time.Time
	End     *time.Time
}

// EditFor pre-fills the form from a task. Percent stays nil when the task
// has none.
func EditFor(t models.Task) Edit {
	s := t.Status
	e := Edit{Status: &s, Start: t.StartDate, End: t.EndDate}
	if t.PercentComplete != nil {
		p := *t.PercentComplete
		e.Percent = &p
	}
	return e
}

// ApplyEdit returns the task with the edit applied. A changed percent
// decides the status and overrides any status in the edit; a percent equal
// to the task's own leaves status alone, so data fetched with a status
// that disagrees with its percent can still have its dates edited.
func ApplyEdit(t models.Task, e Edit) (models.Task, error) {
	out := t
	if e.Status != nil {
		out.Status = *e.Status
	}
	if e.Percent != nil {
		p := ClampPercent(*e.Percent)
		if t.PercentComplete == nil || *t.PercentComplete != p {
			out.PercentComplete = &p
			out.Status = StatusForPercent(p)
		}
	}
	if e.Start != nil {
		d := *e.Start
		out.StartDate = &d
	}
	if e.End != nil {
		d := *e.End
		out.EndDate = &d
	}
	if out.Status != t.Status && !CanTransition(t.Status, out.Status) {
		return t, ErrInvalidTransition
	}
	return out, nil
}

// Columns splits tasks into the board lanes, keeping input order
func Columns(tasks []models.Task) map[models.TaskStatus][]models.Task {
	cols := make(map[models.TaskStatus][]models.Task, len(Lanes))
	for _, t := range tasks {
		if IsLane(t.Status) {
			cols[t.Status] = append(cols[t.Status], t)
		}
	}
	return cols
}
