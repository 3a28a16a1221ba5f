package domain

// PendingStatus is the per-task record of the most recent locally-applied
// status change that the remote service has not confirmed yet. It is written
// alongside every optimistic local update and cleared on confirmation.
type PendingStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	LastUpdated int64  `json:"lastUpdated"`
}

// UpdateTypeStatus is the only entry type the pending-update queue carries.
const UpdateTypeStatus = "STATUS_UPDATE"

// PendingUpdate is appended to the pending-update queue when a remote status
// update fails. The queue is write-only telemetry: nothing drains it, so it
// grows without bound until a purge. Known limitation.
type PendingUpdate struct {
	Type      string `json:"type"`
	TaskID    string `json:"taskId"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}
