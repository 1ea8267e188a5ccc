package alertfeed

import (
	"time"

	"github.com/eleven-am/proctor-backend/internal/violation"
)

// Stats summarizes the current feed for the dashboard header. Totals are
// recomputed from the alerts on every call, never cached.
type Stats struct {
	Total            int                        `json:"total"`
	Violations       int                        `json:"violations"`
	DistinctStudents int                        `json:"distinct_students"`
	BySeverity       map[violation.Severity]int `json:"by_severity"`
	ByType           map[string]int             `json:"by_type"`
	Hourly           []HourBucket               `json:"hourly"`
}

// HourBucket is one bar of the 24-hour histogram, oldest first.
type HourBucket struct {
	Hour  time.Time `json:"hour"`
	Count int       `json:"count"`
}

func ComputeStats(alerts []Alert, now time.Time) Stats {
	stats := Stats{
		Total:      len(alerts),
		BySeverity: make(map[violation.Severity]int),
		ByType:     make(map[string]int),
	}

	students := make(map[string]bool)
	for _, a := range alerts {
		stats.BySeverity[a.Severity]++
		stats.ByType[a.Type]++
		if a.Kind == KindDanger || a.Severity == violation.SeverityHigh {
			stats.Violations++
		}
		if a.StudentID != "" {
			students[a.StudentID] = true
		}
	}
	stats.DistinctStudents = len(students)
	stats.Hourly = hourlyHistogram(alerts, now)
	return stats
}

func hourlyHistogram(alerts []Alert, now time.Time) []HourBucket {
	end := now.Truncate(time.Hour)
	start := end.Add(-23 * time.Hour)

	buckets := make([]HourBucket, 24)
	for i := range buckets {
		buckets[i].Hour = start.Add(time.Duration(i) * time.Hour)
	}

	for _, a := range alerts {
		ts := a.Timestamp.Truncate(time.Hour)
		if ts.Before(start) || ts.After(end) {
			continue
		}
		idx := int(ts.Sub(start) / time.Hour)
		buckets[idx].Count++
	}
	return buckets
}
