// Package placeholder provides a small sample backend used in offline mode
// and when the real one cannot be reached. Dates are relative to the time
// the data is built so the views always have current, overdue and upcoming
// work to show.
package placeholder

import (
	"time"

	"github.com/google/uuid"

	"github.com/fpdash/fpboard/internal/dataverse"
	"github.com/fpdash/fpboard/internal/models"
)

var namespace = uuid.MustParse("6f1d4b0e-2f6a-4c55-9a7c-3f1e0d9b8a21")

// ID derives a stable GUID for a sample record
func ID(key string) string {
	return uuid.NewSHA1(namespace, []byte(key)).String()
}

const unset = -1 << 31

type userSpec struct {
	key, first, last string
}

var users = []userSpec{
	{"matthew", "Matthew", "Clarke"},
	{"jane", "Jane", "Smith"},
	{"michael", "Michael", "Johnson"},
	{"sarah", "Sarah", "Williams"},
	{"david", "David", "Chen"},
	{"emily", "Emily", "Rodriguez"},
}

// Site is where every sample project lives except the supply chain one
const Site = "Geita"

type projectSpec struct {
	key, number, title, status, owner string
	site, dept                        int
}

var projects = []projectSpec{
	{"mill", "FP-101", "Mill Throughput Uplift", "Execution", "matthew", 747870003, 747870013},
	{"haul", "FP-102", "Haul Road Upgrade", "Execution", "jane", 747870003, 747870011},
	{"telemetry", "FP-103", "Fleet Telemetry Rollout", "Planning", "matthew", 747870003, 747870009},
	{"graduates", "FP-104", "Graduate Recruitment Drive", "Execution", "emily", 747870003, 747870007},
	{"spares", "FP-105", "Spares Inventory Optimisation", "Planning", "david", 747870001, 747870016},
}

type taskSpec struct {
	key, title, project, user string
	state                     models.TaskStatus
	start, end                int
	percent                   int
	milestone                 bool
	category                  int
}

var tasks = []taskSpec{
	{"mill-survey", "Baseline throughput survey", "mill", "matthew", models.StatusWorkComplete, -60, -30, 100, false, unset},
	{"mill-liners", "Trial new SAG mill liners", "mill", "matthew", models.StatusInProgress, -14, 21, 65, false, unset},
	{"mill-cyclones", "Cyclone cluster rebalancing", "mill", "michael", models.StatusNotStarted, -10, -2, 0, false, unset},
	{"mill-report", "Uplift business case", "mill", "matthew", models.StatusNotStarted, 14, 45, 0, false, unset},
	{"mill-gate", "Stage gate review", "mill", "", models.StatusNotStarted, 30, 30, 0, true, 0},
	{"haul-design", "Pavement design", "haul", "jane", models.StatusInProgress, -5, 10, 30, false, unset},
	{"haul-contract", "Tender civil works", "haul", "jane", models.StatusNotStarted, 20, 50, 0, false, unset},
	{"haul-drainage", "Drainage study", "haul", "matthew", models.StatusCancelled, -40, -20, 0, false, unset},
	{"haul-award", "Contract award", "haul", "", models.StatusNotStarted, 55, 55, 0, true, 1},
	{"tel-pilot", "Pilot on ten haul trucks", "telemetry", "david", models.StatusInProgress, -20, 40, 40, false, unset},
	{"tel-network", "Pit wireless coverage", "telemetry", "matthew", models.StatusNotStarted, 60, 90, 0, false, unset},
	{"tel-dashboard", "Dispatch dashboard", "telemetry", "sarah", models.StatusNotStarted, unset, unset, 0, false, unset},
	{"tel-golive", "Fleet go-live", "telemetry", "", models.StatusNotStarted, 120, 120, 0, true, 2},
	{"grad-plan", "Intake planning", "graduates", "emily", models.StatusInProgress, -30, 15, 50, false, unset},
	{"grad-interviews", "Assessment centre", "graduates", "sarah", models.StatusNotStarted, 35, 60, 0, false, unset},
	{"grad-offer", "Offers issued", "graduates", "", models.StatusNotStarted, 70, 70, 0, true, 3},
	{"spares-abc", "ABC classification", "spares", "david", models.StatusWorkComplete, -90, -45, 100, false, unset},
	{"spares-min", "Reset min/max levels", "spares", "michael", models.StatusInProgress, -15, unset, 20, false, unset},
	{"spares-audit", "Warehouse audit", "spares", "matthew", models.StatusNotStarted, unset, 12, 0, false, unset},
}

// Viewer is the sample user the board opens on
func Viewer() models.User {
	u := users[0]
	return models.User{
		ID:        ID("user:" + u.key),
		Name:      u.first + " " + u.last,
		FirstName: u.first,
		LastName:  u.last,
		Email:     email(u),
	}
}

func email(u userSpec) string {
	return u.key + "@example.com"
}

// NewSource builds an in-memory backend holding the sample data
func NewSource(now time.Time) *dataverse.Memory {
	m := dataverse.NewMemory(50)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	date := func(offset int) any {
		if offset == unset {
			return nil
		}
		return day.AddDate(0, 0, offset).Format(time.DateOnly)
	}
	names := make(map[string]string, len(users))

	for _, u := range users {
		name := u.first + " " + u.last
		names[u.key] = name
		m.Add(dataverse.EntityUser, dataverse.Record{
			dataverse.FieldUserID:       ID("user:" + u.key),
			dataverse.FieldUserFullName: name,
			dataverse.FieldUserFirst:    u.first,
			dataverse.FieldUserLast:     u.last,
			dataverse.FieldUserEmail:    email(u),
			dataverse.FieldUserDisabled: false,
		})
	}

	for _, p := range projects {
		r := dataverse.Record{
			dataverse.FieldProjectID:         ID("project:" + p.key),
			dataverse.FieldProjectNumber:     p.number,
			dataverse.FieldProjectTitle:      p.title,
			dataverse.FieldProjectSite:       float64(p.site),
			dataverse.FieldProjectDepartment: float64(p.dept),
			dataverse.FieldProjectStatus:     p.status,
			dataverse.FieldProjectOwner:      ID("user:" + p.owner),
			dataverse.FieldProjectClosed:     false,
			dataverse.FieldProjectFAP:        true,
			dataverse.FieldStateCode:         float64(0),
		}
		r[dataverse.Formatted(dataverse.FieldProjectOwner)] = names[p.owner]
		m.Add(dataverse.EntityProject, r)
	}

	for _, t := range tasks {
		r := dataverse.Record{
			dataverse.FieldTaskID:        ID("task:" + t.key),
			dataverse.FieldTaskName:      t.title,
			dataverse.FieldTaskState:     float64(t.state),
			dataverse.FieldTaskProject:   ID("project:" + t.project),
			dataverse.FieldTaskStart:     date(t.start),
			dataverse.FieldTaskEnd:       date(t.end),
			dataverse.FieldTaskPercent:   float64(t.percent),
			dataverse.FieldTaskCreatedOn: day.AddDate(0, 0, -100).Format(time.RFC3339),
			dataverse.FieldTaskType:      float64(models.TypeTask),
		}
		if t.milestone {
			r[dataverse.FieldTaskType] = float64(models.TypeMilestone)
			r[dataverse.FieldTaskCategory] = float64(t.category)
		}
		m.Add(dataverse.EntityTask, r)

		if t.user != "" {
			m.Add(dataverse.EntityAssignment, dataverse.Record{
				dataverse.FieldAssignmentID:   ID("assignment:" + t.key),
				dataverse.FieldAssignmentTask: ID("task:" + t.key),
				dataverse.FieldAssignmentUser: ID("user:" + t.user),
			})
		}
	}
	return m
}
