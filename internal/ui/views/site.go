package views

import (
	"log/slog"
	"slices"

	"github.com/fpdash/fpboard/internal/models"
)

// SiteChanged tells every site view that the site picker moved
type SiteChanged struct {
	Site string
}

// siteFilter is the site and department picker shared by the site views.
// The site choice is saved; the department is not.
type siteFilter struct {
	settings Settings
	site     string
	deptIdx  int // 0 = all departments
}

func newSiteFilter(settings Settings) siteFilter {
	f := siteFilter{settings: settings, site: models.AvailableSites[0]}
	if settings == nil {
		return f
	}
	site, err := settings.SelectedSite()
	if err != nil {
		slog.Warn("read site preference", "error", err)
	}
	if models.IsAvailableSite(site) {
		f.site = site
	}
	return f
}

// nextSite moves to the following available site and saves the choice
func (f *siteFilter) nextSite() string {
	i := slices.Index(models.AvailableSites, f.site)
	f.set(models.AvailableSites[(i+1)%len(models.AvailableSites)])
	if f.settings != nil {
		if err := f.settings.SetSelectedSite(f.site); err != nil {
			slog.Warn("save site preference", "site", f.site, "error", err)
		}
	}
	return f.site
}

// set switches site without saving. It reports whether anything changed.
func (f *siteFilter) set(site string) bool {
	if site == f.site {
		return false
	}
	f.site = site
	f.deptIdx = 0
	return true
}

func (f *siteFilter) nextDepartment(departments []string) {
	f.deptIdx = (f.deptIdx + 1) % (len(departments) + 1)
}

// department is the chosen department, or "" for all
func (f siteFilter) department(departments []string) string {
	if f.deptIdx <= 0 || f.deptIdx > len(departments) {
		return ""
	}
	return departments[f.deptIdx-1]
}

func (f siteFilter) departmentLabel(departments []string) string {
	if d := f.department(departments); d != "" {
		return d
	}
	return "All"
}
