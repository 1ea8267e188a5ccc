package alertfeed

import (
	"sort"
	"strings"
	"time"

	"github.com/eleven-am/proctor-backend/internal/violation"
)

// Time windows accepted by the dashboard filter bar.
const (
	WindowAll   = "all"
	Window5m    = "5m"
	Window30m   = "30m"
	Window60m   = "60m"
	WindowToday = "today"
)

// Sort orders accepted by the dashboard.
const (
	OrderNewestFirst = "newest"
	OrderOldestFirst = "oldest"
)

// Filter categories. "violation" is the umbrella for anything serious
// enough to count against the student.
const (
	CategoryAll       = "all"
	CategoryViolation = "violation"
	CategoryFace      = "face"
	CategoryObject    = "object"
	CategorySystem    = "system"
)

var faceTypes = map[string]bool{
	violation.TypeMultipleFaces: true,
	violation.TypeNoFace:        true,
	violation.TypeGazeAway:      true,
}

// Filter narrows the feed. Empty fields match everything; set fields
// compose with AND, so the result is the same whatever order the criteria
// are applied in.
type Filter struct {
	Severity violation.Severity
	Category string
	Search   string
	Window   string
}

func (f Filter) Apply(alerts []Alert, now time.Time) []Alert {
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if f.matches(a, now) {
			out = append(out, a)
		}
	}
	return out
}

func (f Filter) matches(a Alert, now time.Time) bool {
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	if !f.matchesCategory(a) {
		return false
	}
	if !f.matchesWindow(a, now) {
		return false
	}
	if !f.matchesSearch(a) {
		return false
	}
	return true
}

func (f Filter) matchesCategory(a Alert) bool {
	switch f.Category {
	case "", CategoryAll:
		return true
	case CategoryViolation:
		return a.Kind == KindDanger || a.Severity == violation.SeverityHigh
	case CategoryFace:
		return faceTypes[a.Type]
	case CategoryObject:
		return a.Type == violation.TypeSuspiciousObject
	case CategorySystem:
		return a.Type == TypeSystem
	default:
		return a.Type == f.Category
	}
}

func (f Filter) matchesWindow(a Alert, now time.Time) bool {
	switch f.Window {
	case "", WindowAll:
		return true
	case Window5m:
		return now.Sub(a.Timestamp) <= 5*time.Minute
	case Window30m:
		return now.Sub(a.Timestamp) <= 30*time.Minute
	case Window60m:
		return now.Sub(a.Timestamp) <= time.Hour
	case WindowToday:
		y1, m1, d1 := now.Date()
		y2, m2, d2 := a.Timestamp.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	default:
		return true
	}
}

func (f Filter) matchesSearch(a Alert) bool {
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(a.StudentName), needle) ||
		strings.Contains(strings.ToLower(a.Message), needle) ||
		strings.Contains(strings.ToLower(a.Type), needle)
}

// SortNewestFirst orders alerts by timestamp descending, keeping insertion
// order for equal timestamps.
func SortNewestFirst(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Timestamp.After(alerts[j].Timestamp)
	})
}

// SortOldestFirst orders alerts by timestamp ascending, keeping insertion
// order for equal timestamps.
func SortOldestFirst(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Timestamp.Before(alerts[j].Timestamp)
	})
}

// SortByOrder applies the requested order; anything other than "oldest"
// means newest first.
func SortByOrder(alerts []Alert, order string) {
	if order == OrderOldestFirst {
		SortOldestFirst(alerts)
		return
	}
	SortNewestFirst(alerts)
}
