package kanban

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fpdash/fpboard/internal/dataverse"
	"github.com/fpdash/fpboard/internal/models"
)

// ErrFallbackIdentity blocks writes made under an unresolved identity
var ErrFallbackIdentity = errors.New("cannot save changes as a fallback user")

// DataversePersister PATCHes the changed task columns
type DataversePersister struct {
	Src   dataverse.Source
	Actor models.User

	// AllowFallback permits writes from a fallback identity. Offline mode
	// sets it because its writes only reach the in-memory tables.
	AllowFallback bool
}

func (p *DataversePersister) Persist(ctx context.Context, before, after models.Task) error {
	if p.Actor.Fallback && !p.AllowFallback {
		return ErrFallbackIdentity
	}
	patch := Patch(before, after)
	if len(patch) == 0 {
		return nil
	}
	if err := p.Src.UpdateRecord(ctx, dataverse.EntityTask, after.ID, patch); err != nil {
		return fmt.Errorf("update task %s: %w", after.ID, err)
	}
	return nil
}

// Patch lists the columns that differ between two versions of a task.
// Dates are written date-only.
func Patch(before, after models.Task) dataverse.Record {
	patch := dataverse.Record{}
	if before.Status != after.Status {
		patch[dataverse.FieldTaskState] = int(after.Status)
	}
	if after.PercentComplete != nil && (before.PercentComplete == nil || *before.PercentComplete != *after.PercentComplete) {
		patch[dataverse.FieldTaskPercent] = *after.PercentComplete
	}
	if d, ok := dateChange(before.StartDate, after.StartDate); ok {
		patch[dataverse.FieldTaskStart] = d
	}
	if d, ok := dateChange(before.EndDate, after.EndDate); ok {
		patch[dataverse.FieldTaskEnd] = d
	}
	return patch
}

func dateChange(before, after *time.Time) (string, bool) {
	if after == nil {
		return "", false
	}
	d := after.Format(time.DateOnly)
	if before != nil && before.Format(time.DateOnly) == d {
		return "", false
	}
	return d, true
}
