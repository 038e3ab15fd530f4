// Package utilization computes per-person workload: overdue and upcoming
// task counts, weekly active-task series and relative load within a group.
package utilization

import (
	"time"

	"github.com/fpdash/fpboard/internal/models"
)

// WeekStart returns Sunday 00:00 of the week containing t, in t's location
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// WeekEnd returns the last instant of the Saturday after start
func WeekEnd(start time.Time) time.Time {
	return start.AddDate(0, 0, 7).Add(-time.Millisecond)
}

// IsOverdue is true for unfinished work that should have started or ended
// before now
func IsOverdue(t models.Task, now time.Time) bool {
	if t.Status == models.StatusWorkComplete || t.Status == models.StatusCancelled {
		return false
	}
	lateStart := t.Status == models.StatusNotStarted && t.StartDate != nil && t.StartDate.Before(now)
	lateEnd := t.EndDate != nil && t.EndDate.Before(now)
	return lateStart || lateEnd
}

// IsDueThisWeek is true for unfinished work ending in the current
// Sunday-to-Saturday week
func IsDueThisWeek(t models.Task, now time.Time) bool {
	if t.EndDate == nil || t.Status == models.StatusWorkComplete {
		return false
	}
	start := WeekStart(now)
	return !t.EndDate.Before(start) && !t.EndDate.After(WeekEnd(start))
}

// IsUnderway is true for tasks in progress
func IsUnderway(t models.Task) bool {
	return t.Status == models.StatusInProgress
}

func notYetStarted(t models.Task) bool {
	return t.StartDate != nil && t.Status != models.StatusWorkComplete && t.Status != models.StatusInProgress
}

// StartsNextMonth is true for unstarted work scheduled in the next calendar
// month
func StartsNextMonth(t models.Task, now time.Time) bool {
	if !notYetStarted(t) {
		return false
	}
	first := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
	last := first.AddDate(0, 1, -1)
	return !t.StartDate.Before(first) && !t.StartDate.After(last)
}

// StartsWithinThreeMonths is true for unstarted work scheduled between now
// and the same day three months out
func StartsWithinThreeMonths(t models.Task, now time.Time) bool {
	if !notYetStarted(t) {
		return false
	}
	limit := time.Date(now.Year(), now.Month()+3, now.Day(), 0, 0, 0, 0, now.Location())
	return !t.StartDate.Before(now) && !t.StartDate.After(limit)
}
