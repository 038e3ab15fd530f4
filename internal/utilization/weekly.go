package utilization

import (
	"math"
	"time"

	"github.com/fpdash/fpboard/internal/models"
)

const (
	// MinWeeks is the shortest horizon the "all" range produces
	MinWeeks = 52

	// undatedWeeks is how many leading weeks count a task with no dates as
	// active, so unscheduled work is visible without inventing a schedule
	undatedWeeks = 8
)

// Horizon is either a fixed number of weeks or all weeks up to the
// furthest task end date
type Horizon struct {
	weeks int
}

// Weeks is a fixed horizon of n weeks
func Weeks(n int) Horizon { return Horizon{weeks: n} }

// All sizes the horizon from the tasks
func All() Horizon { return Horizon{} }

// IsAll reports whether the horizon is derived from task dates
func (h Horizon) IsAll() bool { return h.weeks <= 0 }

// Range names accepted by HorizonForRange
const (
	Range12Months = "12months"
	Range24Months = "24months"
	RangeAll      = "all"
)

// HorizonForRange maps a range name to a horizon; unknown names mean 12 months
func HorizonForRange(r string) Horizon {
	switch r {
	case Range24Months:
		return Weeks(104)
	case RangeAll:
		return All()
	}
	return Weeks(52)
}

// Resolve returns the number of weeks for tasks seen from now
func (h Horizon) Resolve(tasks []models.Task, now time.Time) int {
	if !h.IsAll() {
		return h.weeks
	}
	var furthest *time.Time
	for _, t := range tasks {
		if t.EndDate != nil && (furthest == nil || t.EndDate.After(*furthest)) {
			furthest = t.EndDate
		}
	}
	if furthest == nil {
		return MinWeeks
	}
	days := math.Ceil(furthest.Sub(now).Hours() / 24)
	return max(MinWeeks, int(math.Ceil(days/7)))
}

// Weekly counts active tasks per week. Week i starts on the Sunday of the
// week containing now + (i+offset)*7 days; a negative offset looks back.
func Weekly(tasks []models.Task, h Horizon, offset int, now time.Time) []models.UtilizationWeek {
	n := h.Resolve(tasks, now)
	weeks := make([]models.UtilizationWeek, 0, n)
	for i := 0; i < n; i++ {
		start := WeekStart(now.AddDate(0, 0, (i+offset)*7))
		end := WeekEnd(start)
		active := 0
		for _, t := range tasks {
			if activeIn(t, i, start, end) {
				active++
			}
		}
		weeks = append(weeks, models.UtilizationWeek{
			Start:       start,
			End:         end,
			ActiveTasks: active,
			Level:       models.LevelNormal,
		})
	}
	return weeks
}

func activeIn(t models.Task, i int, start, end time.Time) bool {
	if t.Status == models.StatusCancelled || t.Status == models.StatusWorkComplete {
		return false
	}
	switch {
	case t.StartDate == nil && t.EndDate == nil:
		return i < undatedWeeks
	case t.StartDate != nil && t.EndDate != nil:
		return !t.StartDate.After(end) && !t.EndDate.Before(start)
	case t.EndDate != nil:
		return !t.EndDate.Before(start)
	default:
		return !t.StartDate.After(end)
	}
}

// Classifier assigns a load level to one resource's week given the mean
// active count of all resources in the same week
type Classifier interface {
	Classify(active int, peerMean float64) models.UtilizationLevel
}

// ClassifierFunc adapts a function to Classifier
type ClassifierFunc func(active int, peerMean float64) models.UtilizationLevel

func (f ClassifierFunc) Classify(active int, peerMean float64) models.UtilizationLevel {
	return f(active, peerMean)
}

// DefaultClassifier marks every week normal; no thresholds are defined
var DefaultClassifier Classifier = ClassifierFunc(func(int, float64) models.UtilizationLevel {
	return models.LevelNormal
})

// ApplyLevels classifies each resource's weeks against the group mean for
// that week index
func ApplyLevels(resources []models.Resource, c Classifier) {
	if c == nil {
		c = DefaultClassifier
	}
	longest := 0
	for _, r := range resources {
		longest = max(longest, len(r.Weeks))
	}
	for w := 0; w < longest; w++ {
		sum, n := 0, 0
		for _, r := range resources {
			if w < len(r.Weeks) {
				sum += r.Weeks[w].ActiveTasks
				n++
			}
		}
		mean := float64(sum) / float64(n)
		for i := range resources {
			if w < len(resources[i].Weeks) {
				resources[i].Weeks[w].Level = c.Classify(resources[i].Weeks[w].ActiveTasks, mean)
			}
		}
	}
}
