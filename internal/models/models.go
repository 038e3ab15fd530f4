package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// TaskStatus mirrors the backend task state codes
type TaskStatus int

const (
	StatusNotStarted TaskStatus = iota
	StatusInProgress
	StatusWorkComplete
	StatusCancelled
)

var statusLabels = map[TaskStatus]string{
	StatusNotStarted:   "Not Started",
	StatusInProgress:   "In Progress",
	StatusWorkComplete: "Completed",
	StatusCancelled:    "Cancelled",
}

func (s TaskStatus) String() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return "Unknown"
}

// Valid reports whether s is one of the four backend codes
func (s TaskStatus) Valid() bool {
	return s >= StatusNotStarted && s <= StatusCancelled
}

// Terminal states have no outgoing transitions
func (s TaskStatus) Terminal() bool {
	return s == StatusWorkComplete || s == StatusCancelled
}

// Open is true for work that still needs doing
func (s TaskStatus) Open() bool {
	return s == StatusNotStarted || s == StatusInProgress
}

// TaskType distinguishes regular tasks from milestones
type TaskType int

const (
	TypeTask TaskType = iota
	TypeMilestone
)

// Category tags milestones by business area
type Category int

const (
	CategoryGeneralOperations Category = iota
	CategorySupplyChain
	CategoryDTIT
	CategoryHumanResources
)

func (c Category) String() string {
	switch c {
	case CategoryGeneralOperations:
		return "General Operations"
	case CategorySupplyChain:
		return "Supply Chain"
	case CategoryDTIT:
		return "DT/IT"
	case CategoryHumanResources:
		return "Human Resources"
	}
	return "Uncategorized"
}

// Task represents a single project task
type Task struct {
	ID              string
	Title           string
	Description     string
	Status          TaskStatus
	StartDate       *time.Time
	EndDate         *time.Time
	AssigneeID      string
	AssigneeName    string
	ProjectID       string
	ProjectName     string
	PercentComplete *int // nil when the backend has no value
	CreatedOn       time.Time
	TaskType        *TaskType
	Category        *Category
}

// Percent returns the percent complete, treating an unset value as 0
func (t Task) Percent() int {
	if t.PercentComplete == nil {
		return 0
	}
	return *t.PercentComplete
}

// IsMilestone reports whether the task is a milestone marker
func (t Task) IsMilestone() bool {
	return t.TaskType != nil && *t.TaskType == TypeMilestone
}

// ProjectMeta carries per-project data that is not on the task records
type ProjectMeta struct {
	Number     string
	Title      string
	OwnerID    string
	OwnerName  string
	Department string
	Site       string
	Status     string
}

// Project groups the tasks of one project for display
type Project struct {
	ID         string
	Name       string
	Number     string
	Department string
	Site       string
	Status     string
	Tasks      []Task

	TotalTasks      int
	CompletedTasks  int
	InProgressTasks int
	NotStartedTasks int

	OwnerID   string
	OwnerName string
	IsOwner   bool
}

// User is a backend system user, either the viewer or an assignee
type User struct {
	ID        string
	Name      string
	FirstName string
	LastName  string
	Email     string
	Fallback  bool // true when the identity could not be resolved
}

// Label is the display name; fallback identities are always marked
func (u User) Label() string {
	if u.Fallback {
		return u.Name + " (Fallback)"
	}
	return u.Name
}

// FirstName is the first word of a display name
func FirstName(full string) string {
	if f := strings.Fields(full); len(f) > 0 {
		return f[0]
	}
	return ""
}

// Initials returns the first letters of the first and last words, or the
// first two letters of a single word, upper-cased
func Initials(full string) string {
	f := strings.Fields(full)
	switch len(f) {
	case 0:
		return ""
	case 1:
		w := f[0]
		if utf8.RuneCountInString(w) > 2 {
			w = string([]rune(w)[:2])
		}
		return strings.ToUpper(w)
	}
	first, _ := utf8.DecodeRuneInString(f[0])
	last, _ := utf8.DecodeRuneInString(f[len(f)-1])
	return strings.ToUpper(string([]rune{first, last}))
}

// UtilizationLevel is a relative load tag for one week
type UtilizationLevel string

const (
	LevelLow        UtilizationLevel = "low"
	LevelNormal     UtilizationLevel = "normal"
	LevelHigh       UtilizationLevel = "high"
	LevelOverloaded UtilizationLevel = "overloaded"
)

// UtilizationWeek is one Sunday-to-Saturday bucket
type UtilizationWeek struct {
	Start       time.Time
	End         time.Time
	ActiveTasks int
	Level       UtilizationLevel
}

// Resource is a person with assigned tasks
type Resource struct {
	ID         string
	Name       string
	FirstName  string
	LastName   string
	Email      string
	Department string
	Site       string
	Tasks      []Task

	TotalTasks   int
	OverdueTasks int
	DueThisWeek  int
	ActiveTasks  int // raw open-task count
	Utilization  int // share of the filtered group's active tasks, in percent
	Weeks        []UtilizationWeek
}
