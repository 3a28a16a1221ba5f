package domain

import (
	"strings"
	"time"
)

// Stats summarizes a task collection by status bucket. TasksDueSoon and
// OverdueTasks are only populated for admin-wide stats.
type Stats struct {
	TotalTasks     int `json:"totalTasks"`
	CompletedTasks int `json:"completedTasks"`
	OngoingTasks   int `json:"ongoingTasks"`
	NewTasks       int `json:"newTasks"`
	TasksDueSoon   int `json:"tasksDueSoon,omitempty"`
	OverdueTasks   int `json:"overdueTasks,omitempty"`
}

const dueSoonWindow = 7 * 24 * time.Hour

// ComputeStats counts tasks per bucket. Statuses are read raw rather than
// through NormalizeStatus: these scans cover persisted and remote records
// that may predate normalization, so the historical synonyms for a fresh
// task (NEW, TODO, TO-DO, ASSIGNED) still count as new here.
func ComputeStats(tasks []Task, now time.Time, includeDue bool) Stats {
	stats := Stats{TotalTasks: len(tasks)}
	for _, t := range tasks {
		status := strings.ToUpper(t.Status)
		switch status {
		case StatusCompleted:
			stats.CompletedTasks++
		case StatusInProgress, legacyOngoing:
			stats.OngoingTasks++
		case StatusPending, "NEW", "TODO", "TO-DO", "ASSIGNED":
			stats.NewTasks++
		}

		if !includeDue || status == StatusCompleted {
			continue
		}
		due, ok := ParseDate(t.DueDate)
		if !ok {
			continue
		}
		switch {
		case due.Before(now):
			stats.OverdueTasks++
		case due.Sub(now) <= dueSoonWindow:
			stats.TasksDueSoon++
		}
	}
	return stats
}

// ParseDate reads the date-like fields found on task records, accepting
// RFC 3339 timestamps and bare dates.
func ParseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
