// Package dashboard loads the data behind each view. A load that fails falls
// back to the last saved snapshot for the same scope and then to the sample
// data, so a view always has something to render along with the error.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fpdash/fpboard/internal/aggregate"
	"github.com/fpdash/fpboard/internal/db"
	"github.com/fpdash/fpboard/internal/kanban"
	"github.com/fpdash/fpboard/internal/mapper"
	"github.com/fpdash/fpboard/internal/models"
	"github.com/fpdash/fpboard/internal/placeholder"
	"github.com/fpdash/fpboard/internal/utilization"
)

// Origin says where a view's data came from
type Origin int

const (
	Live Origin = iota
	Snapshot
	Placeholder
)

func (o Origin) String() string {
	switch o {
	case Snapshot:
		return "snapshot"
	case Placeholder:
		return "sample data"
	}
	return "live"
}

var errNoBackend = errors.New("no backend configured")

// Snapshots stores the last good load per scope
type Snapshots interface {
	SaveSnapshot(scope string, data []byte) error
	GetSnapshot(scope string) (*db.Snapshot, error)
}

// Generation numbers fetches so responses to superseded requests can be
// recognised and dropped
type Generation struct {
	n atomic.Uint64
}

// Next starts a new fetch and returns its number
func (g *Generation) Next() uint64 { return g.n.Add(1) }

// Current reports whether n is the most recent fetch
func (g *Generation) Current(n uint64) bool { return g.n.Load() == n }

// Service loads view data
type Service struct {
	Loader    *mapper.Loader
	Snapshots Snapshots // optional
	Now       func() time.Time

	// Offline marks a Loader backed by the sample tables, which any
	// identity may write to
	Offline bool
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// payload is the snapshot encoding of a load
type payload struct {
	Tasks    []models.Task                 `json:"tasks"`
	Projects map[string]models.ProjectMeta `json:"projects"`
	Users    map[string]models.User        `json:"users"`
}

// Source is the outcome of one load
type Source struct {
	Origin      Origin
	SavedAt     time.Time // set for snapshots
	Err         error     // why live data is incomplete or missing
	Diagnostics []mapper.Diagnostic
}

// Board is the data for the My Tasks view
type Board struct {
	Source
	Viewer   models.User
	Tasks    []models.Task
	Projects []models.Project
	Meta     map[string]models.ProjectMeta
	Stats    aggregate.Stats
}

// load runs fetch and falls back when it fails outright. A partial failure
// that still produced tasks is shown as live.
func (s *Service) load(scope string, fetch func(l *mapper.Loader) (mapper.Result, error), sample func() (mapper.Result, error)) (mapper.Result, Source) {
	var res mapper.Result
	var err error
	if s.Loader != nil {
		res, err = fetch(s.Loader)
	} else {
		err = errNoBackend
	}
	src := Source{Origin: Live, Err: err, Diagnostics: res.Diagnostics}
	if err == nil {
		s.save(scope, res)
		return res, src
	}
	if len(res.Tasks) > 0 {
		return res, src
	}

	if snap, ok := s.restore(scope); ok {
		slog.Info("showing snapshot", "scope", scope, "saved_at", snap.SavedAt)
		src.Origin, src.SavedAt = Snapshot, snap.SavedAt
		return snap.Result, src
	}

	slog.Warn("showing sample data", "scope", scope, "error", err)
	res, perr := sample()
	if perr != nil {
		slog.Error("sample data failed", "error", perr)
	}
	src.Origin = Placeholder
	src.Diagnostics = res.Diagnostics
	return res, src
}

func (s *Service) save(scope string, res mapper.Result) {
	if s.Snapshots == nil {
		return
	}
	data, err := json.Marshal(payload{Tasks: res.Tasks, Projects: res.Projects, Users: res.Users})
	if err != nil {
		slog.Warn("encode snapshot", "scope", scope, "error", err)
		return
	}
	if err := s.Snapshots.SaveSnapshot(scope, data); err != nil {
		slog.Warn("save snapshot", "scope", scope, "error", err)
	}
}

type restored struct {
	mapper.Result
	SavedAt time.Time
}

func (s *Service) restore(scope string) (restored, bool) {
	if s.Snapshots == nil {
		return restored{}, false
	}
	snap, err := s.Snapshots.GetSnapshot(scope)
	if err != nil {
		if !errors.Is(err, db.ErrNoSnapshot) {
			slog.Warn("read snapshot", "scope", scope, "error", err)
		}
		return restored{}, false
	}
	var p payload
	if err := json.Unmarshal(snap.Data, &p); err != nil {
		slog.Warn("decode snapshot", "scope", scope, "error", err)
		return restored{}, false
	}
	return restored{
		Result:  mapper.Result{Tasks: p.Tasks, Projects: p.Projects, Users: p.Users},
		SavedAt: snap.SavedAt,
	}, true
}

// SearchUsers finds users whose board can be viewed
func (s *Service) SearchUsers(ctx context.Context, term string) ([]models.User, error) {
	if s.Loader == nil {
		return nil, errNoBackend
	}
	return s.Loader.SearchUsers(ctx, term)
}

// Persister writes board changes made by actor. Without a backend the
// changes stay local.
func (s *Service) Persister(actor models.User) kanban.Persister {
	if s.Loader == nil {
		return nil
	}
	return &kanban.DataversePersister{Src: s.Loader.Src, Actor: actor, AllowFallback: s.Offline}
}

func (s *Service) sample() *mapper.Loader {
	return &mapper.Loader{Src: placeholder.NewSource(s.now())}
}

// ErrFallbackViewer is reported when the board was asked for a fallback
// identity, which has no tasks of its own
var ErrFallbackViewer = errors.New("current user could not be identified")

// MyTasks loads the board for viewer. When it falls back to the sample
// data the viewer becomes the sample user, marked as a fallback.
func (s *Service) MyTasks(ctx context.Context, viewer models.User) Board {
	res, src := s.load("tasks:"+viewer.ID,
		func(l *mapper.Loader) (mapper.Result, error) {
			if viewer.Fallback {
				return mapper.Result{}, ErrFallbackViewer
			}
			return l.MyTasks(ctx, viewer.ID)
		},
		func() (mapper.Result, error) { return s.sample().MyTasks(ctx, placeholder.Viewer().ID) },
	)
	if src.Origin == Placeholder {
		viewer = placeholder.Viewer()
		viewer.Fallback = true
	}

	projects := aggregate.GroupByProject(res.Tasks, aggregate.Options{ViewerID: viewer.ID, Meta: res.Projects})
	return Board{
		Source:   src,
		Viewer:   viewer,
		Tasks:    res.Tasks,
		Projects: projects,
		Meta:     res.Projects,
		Stats:    aggregate.Overview(projects),
	}
}

// Site is the data for the timeline and resource views
type Site struct {
	Source
	Site        string
	Tasks       []models.Task
	Meta        map[string]models.ProjectMeta
	Users       map[string]models.User
	Resources   []models.Resource
	Departments []string

	classifier utilization.Classifier
}

// Department narrows the site to one department's projects and to the
// resources whose department matches. "" and "All" keep everything.
// Departments is left whole so the picker still offers every choice.
func (s Site) Department(dept string) Site {
	if dept == "" || strings.EqualFold(dept, "all") {
		return s
	}
	out := s
	out.Tasks = nil
	for _, t := range s.Tasks {
		if s.Meta[t.ProjectID].Department == dept {
			out.Tasks = append(out.Tasks, t)
		}
	}
	out.Resources = utilization.FilterResources(s.Resources, utilization.Filter{Department: dept})
	for i := range out.Resources {
		out.Resources[i].Weeks = slices.Clone(out.Resources[i].Weeks)
	}
	utilization.ApplyLevels(out.Resources, s.classifier)
	return out
}

// SiteOptions selects what SiteData builds
type SiteOptions struct {
	Site       string
	Horizon    utilization.Horizon
	Classifier utilization.Classifier
}

// SiteData loads every active project at a site. Department filtering is
// left to the caller so the department list stays complete.
func (s *Service) SiteData(ctx context.Context, opts SiteOptions) (Site, error) {
	if !models.IsAvailableSite(opts.Site) {
		return Site{}, fmt.Errorf("%w: %q", mapper.ErrUnknownSite, opts.Site)
	}
	res, src := s.load("site:"+opts.Site,
		func(l *mapper.Loader) (mapper.Result, error) { return l.SiteData(ctx, opts.Site, "") },
		func() (mapper.Result, error) { return s.sample().SiteData(ctx, placeholder.Site, "") },
	)

	now := s.now()
	resources := utilization.BuildResources(res.Tasks, res.Projects, res.Users, now, opts.Horizon)
	resources = utilization.Relative(resources)
	utilization.ApplyLevels(resources, opts.Classifier)

	return Site{
		Source:      src,
		Site:        opts.Site,
		Tasks:       res.Tasks,
		Meta:        res.Projects,
		Users:       res.Users,
		Resources:   resources,
		Departments: Departments(res.Projects),
		classifier:  opts.Classifier,
	}, nil
}

// Departments lists the distinct known departments of the projects, sorted
func Departments(meta map[string]models.ProjectMeta) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range meta {
		if m.Department == "" || m.Department == models.Unknown || seen[m.Department] {
			continue
		}
		seen[m.Department] = true
		out = append(out, m.Department)
	}
	sort.Strings(out)
	return out
}
