package views

import (
	"context"
	"fmt"
	"time"

	"github.com/fpdash/fpboard/internal/dashboard"
	"github.com/fpdash/fpboard/internal/kanban"
	"github.com/fpdash/fpboard/internal/models"
	"github.com/fpdash/fpboard/internal/ui/styles"
)

// Backend loads and saves what the views show
type Backend interface {
	MyTasks(ctx context.Context, viewer models.User) dashboard.Board
	SiteData(ctx context.Context, opts dashboard.SiteOptions) (dashboard.Site, error)
	SearchUsers(ctx context.Context, term string) ([]models.User, error)
	Persister(actor models.User) kanban.Persister
}

// Settings keeps the site picker choice between runs
type Settings interface {
	SelectedSite() (string, error)
	SetSelectedSite(site string) error
}

const (
	requestTimeout = 30 * time.Second
	toastDuration  = 3 * time.Second
)

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func shortDate(t *time.Time) string {
	if t == nil {
		return "no date"
	}
	return t.Format("Jan 2")
}

// scrollWindow returns the first index to draw so cursor stays in view
func scrollWindow(cursor, visible, total int) int {
	if visible <= 0 || total <= visible {
		return 0
	}
	return clamp(cursor-visible+1, 0, total-visible)
}

// renderSource notes stale or sample data and any load error
func renderSource(s *styles.Styles, src dashboard.Source) string {
	var msg string
	switch src.Origin {
	case dashboard.Snapshot:
		msg = fmt.Sprintf("Offline: showing data saved %s", src.SavedAt.Local().Format("Jan 2 15:04"))
	case dashboard.Placeholder:
		msg = "Offline: showing sample data"
	}
	if src.Err != nil {
		if msg != "" {
			msg += " • "
		}
		msg += src.Err.Error()
	}
	if msg == "" {
		return ""
	}
	return s.Banner.Render(truncate(msg, styles.MaxWidth-2))
}
