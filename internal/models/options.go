package models

import (
	"fmt"
	"strings"
)

// Unknown labels a department or site that is not set on the project
const Unknown = "Unknown"

// Option set values for cr725_department
var departmentLabels = map[int]string{
	747870000: "Business Improvement",
	747870008: "Business Information Solutions",
	747870001: "Corporate",
	747870009: "Digital Technology",
	747870002: "Environment & Sustainability",
	747870003: "Exploration",
	747870004: "Finance",
	747870005: "Geology",
	747870006: "General Management",
	747870007: "Human Resources",
	747870010: "Maintenance - Fixed Plant",
	747870019: "Maintenance - Mobile",
	747870020: "Mine Planning",
	747870011: "Mining - Open Pit",
	747870012: "Mining - Underground",
	747870013: "Processing",
	747870014: "Safety",
	747870015: "Site Administration",
	747870016: "Supply Chain",
	747870017: "Other",
}

// Option set values for cr725_site
var siteLabels = map[int]string{
	747870000: "Iduapriem",
	747870001: "Obuasi",
	747870002: "Siguiri",
	747870003: "Geita",
	747870016: "Sukari",
	747870004: "Cuiaba",
	747870005: "Serra Grande - MSG",
	747870008: "Cerro Vanguardia - CVSA",
	747870007: "Sunrise Dam",
	747870009: "Tropicana",
	747870014: "Supply Chain - Global",
	747870017: "Supply Chain - Regional",
	747870010: "Perth Corporate Office",
	747870011: "Brazil Regional Office",
	747870012: "Denver Corporate Office",
	747870013: "Johannesburg Corporate Office",
	747870015: "Beatty District - Navada",
}

// AvailableSites are the sites offered in the site picker. The first one is
// the default when no preference has been saved.
var AvailableSites = []string{
	"Iduapriem",
	"Obuasi",
	"Siguiri",
	"Geita",
	"Sukari",
	"Cuiaba",
	"Serra Grande - MSG",
	"Cerro Vanguardia - CVSA",
	"Sunrise Dam",
	"Tropicana",
	"Supply Chain - Global",
}

// DepartmentLabel returns the label for a department code
func DepartmentLabel(code *int) string {
	if code == nil {
		return Unknown
	}
	if l, ok := departmentLabels[*code]; ok {
		return l
	}
	return fmt.Sprintf("Department %d", *code)
}

// SiteLabel returns the label for a site code
func SiteLabel(code *int) string {
	if code == nil {
		return Unknown
	}
	if l, ok := siteLabels[*code]; ok {
		return l
	}
	return fmt.Sprintf("Site %d", *code)
}

// DepartmentCode looks up a department code by label
func DepartmentCode(label string) (int, bool) {
	return reverse(departmentLabels, label)
}

// SiteCode looks up a site code by label
func SiteCode(label string) (int, bool) {
	return reverse(siteLabels, label)
}

// IsAvailableSite reports whether label is one of AvailableSites
func IsAvailableSite(label string) bool {
	for _, s := range AvailableSites {
		if s == label {
			return true
		}
	}
	return false
}

func reverse(labels map[int]string, label string) (int, bool) {
	for code, l := range labels {
		if strings.EqualFold(l, label) {
			return code, true
		}
	}
	return 0, false
}
