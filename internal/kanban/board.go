package kanban

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fpdash/fpboard/internal/models"
)

// Persister writes a task change to the backend
type Persister interface {
	Persist(ctx context.Context, before, after models.Task) error
}

// Toast is the transient notice shown after a move or save
type Toast struct {
	Message string
	Success bool
}

type changeKind int

const (
	kindMove changeKind = iota
	kindSave
)

// Change is an optimistic update that has been applied locally and still
// needs persisting. It is written as the difference between After and the
// last value the backend confirmed when the change began, so a newer
// change also carries any older one still in flight.
type Change struct {
	TaskID  string
	Before  models.Task
	After   models.Task
	Edit    Edit
	base    models.Task
	kind    changeKind
	version int
}

// IsSave reports whether the change came from the edit form
func (c Change) IsSave() bool { return c.kind == kindSave }

// flight tracks the unsettled changes of one task
type flight struct {
	count   int
	failed  bool
	goodVer int
	pendVer int
}

// Board owns one viewer's tasks. It is not safe for concurrent use; only
// Persist may run off the owning goroutine.
type Board struct {
	tasks     []models.Task
	index     map[string]int
	good      map[string]models.Task
	pending   map[string]Edit
	versions  map[string]int
	flights   map[string]*flight
	persister Persister
}

// NewBoard takes ownership of tasks
func NewBoard(tasks []models.Task, p Persister) *Board {
	b := &Board{persister: p}
	b.Reset(tasks)
	return b
}

// Reset replaces the task set after a reload
func (b *Board) Reset(tasks []models.Task) {
	b.tasks = append([]models.Task(nil), tasks...)
	b.index = make(map[string]int, len(tasks))
	b.good = make(map[string]models.Task, len(tasks))
	b.pending = make(map[string]Edit)
	b.versions = make(map[string]int)
	b.flights = make(map[string]*flight)
	for i, t := range b.tasks {
		b.index[t.ID] = i
		b.good[t.ID] = t
	}
}

// Tasks returns the current, possibly optimistic, task list
func (b *Board) Tasks() []models.Task { return b.tasks }

// Task looks up one task
func (b *Board) Task(id string) (models.Task, bool) {
	i, ok := b.index[id]
	if !ok {
		return models.Task{}, false
	}
	return b.tasks[i], true
}

// Pending returns the edit that failed to persist for a task, if any, so
// the form can be reopened with it
func (b *Board) Pending(id string) (Edit, bool) {
	e, ok := b.pending[id]
	return e, ok
}

// BeginMove applies a lane drop locally
func (b *Board) BeginMove(id string, lane models.TaskStatus) (Change, error) {
	t, ok := b.Task(id)
	if !ok {
		return Change{}, fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	after, err := DropOnLane(t, lane)
	if err != nil {
		return Change{}, err
	}
	s := after.Status
	return b.begin(t, after, Edit{Status: &s, Percent: after.PercentComplete}, kindMove), nil
}

// BeginSave applies a form edit locally
func (b *Board) BeginSave(id string, e Edit) (Change, error) {
	t, ok := b.Task(id)
	if !ok {
		return Change{}, fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	after, err := ApplyEdit(t, e)
	if err != nil {
		return Change{}, err
	}
	return b.begin(t, after, e, kindSave), nil
}

func (b *Board) begin(before, after models.Task, e Edit, kind changeKind) Change {
	id := before.ID
	b.versions[id]++
	b.tasks[b.index[id]] = after
	delete(b.pending, id)
	f := b.flight(id)
	f.count++
	return Change{
		TaskID:  id,
		Before:  before,
		After:   after,
		Edit:    e,
		base:    b.good[id],
		kind:    kind,
		version: b.versions[id],
	}
}

func (b *Board) flight(id string) *flight {
	f, ok := b.flights[id]
	if !ok {
		f = &flight{}
		b.flights[id] = f
	}
	return f
}

// Persist writes the change. It touches no board state.
func (b *Board) Persist(ctx context.Context, c Change) error {
	if b.persister == nil {
		return nil
	}
	return b.persister.Persist(ctx, c.base, c.After)
}

// Settle finishes a change. A failed edit is kept as pending. Once every
// change to the task has settled, a task that saw any failure is put back
// to the newest value the backend confirmed, so the board never shows
// what was not written.
func (b *Board) Settle(c Change, err error) Toast {
	i, ok := b.index[c.TaskID]
	if !ok {
		return Toast{Message: "Task no longer on the board"}
	}
	f := b.flight(c.TaskID)
	f.count = max(f.count-1, 0)

	if err != nil {
		slog.Warn("task update failed", "task", c.TaskID, "error", err)
		f.failed = true
		if c.version > f.goodVer && c.version >= f.pendVer {
			b.pending[c.TaskID] = c.Edit
			f.pendVer = c.version
		}
	} else if c.version > f.goodVer {
		b.good[c.TaskID] = c.After
		f.goodVer = c.version
		// a newer write carries the older edits with it
		if f.pendVer <= c.version {
			delete(b.pending, c.TaskID)
		}
	}

	if f.count == 0 {
		if f.failed {
			b.tasks[i] = b.good[c.TaskID]
		}
		delete(b.flights, c.TaskID)
	}

	if err != nil {
		if c.kind == kindMove {
			return Toast{Message: "Failed to move task. Please try again."}
		}
		return Toast{Message: "Failed to update task. Please try again."}
	}
	if c.kind == kindMove {
		return Toast{
			Message: fmt.Sprintf("Task moved to %s (%d%%)", c.After.Status, c.After.Percent()),
			Success: true,
		}
	}
	return Toast{Message: "Task updated successfully!", Success: true}
}

// Move drops a task on a lane and persists it in one call
func (b *Board) Move(ctx context.Context, id string, lane models.TaskStatus) (Toast, error) {
	c, err := b.BeginMove(id, lane)
	if err != nil {
		return Toast{}, err
	}
	return b.Settle(c, b.Persist(ctx, c)), nil
}

// Save applies a form edit and persists it in one call
func (b *Board) Save(ctx context.Context, id string, e Edit) (Toast, error) {
	c, err := b.BeginSave(id, e)
	if err != nil {
		return Toast{}, err
	}
	return b.Settle(c, b.Persist(ctx, c)), nil
}
