package tasksync

import (
	"time"

	"workline-sync/domain"
)

// DemoTasks returns the static dataset served when neither the remote
// service nor the local store has anything to show. It is never persisted,
// so a later successful sync replaces it cleanly.
func DemoTasks() []domain.Task {
	now := time.Now().UTC()
	day := func(offset int) string {
		return now.AddDate(0, 0, offset).Format(time.RFC3339)
	}
	return []domain.Task{
		{
			ID:              "demo-1",
			Title:           "Review onboarding checklist",
			Description:     "Walk through the new-hire checklist and confirm access.",
			Status:          domain.StatusPending,
			AssignedTo:      "demo@workline.io",
			AssignedToEmail: "demo@workline.io",
			AssignedToName:  "Demo User",
			DueDate:         day(2),
			CreatedDate:     day(-1),
		},
		{
			ID:              "demo-2",
			Title:           "Prepare weekly attendance report",
			Description:     "Collect last week's attendance numbers for the team meeting.",
			Status:          domain.StatusInProgress,
			AssignedTo:      "demo@workline.io",
			AssignedToEmail: "demo@workline.io",
			AssignedToName:  "Demo User",
			DueDate:         day(5),
			CreatedDate:     day(-3),
		},
		{
			ID:              "demo-3",
			Title:           "Publish holiday announcement",
			Description:     "Draft and publish the upcoming holiday schedule.",
			Status:          domain.StatusCompleted,
			AssignedTo:      "demo-manager@workline.io",
			AssignedToEmail: "demo-manager@workline.io",
			AssignedToName:  "Demo Manager",
			DueDate:         day(-2),
			CreatedDate:     day(-10),
		},
	}
}
