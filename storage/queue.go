package storage

import (
	"context"
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"workline-sync/domain"
)

// UpdateQueue records status updates whose remote call failed. Entries are
// appended best-effort and never drained automatically; the queue is an
// audit trail, not a retry buffer, and grows until a purge.
type UpdateQueue struct {
	kv     KV
	logger *log.Logger
}

// NewUpdateQueue creates an UpdateQueue on the given substrate.
func NewUpdateQueue(kv KV, logger *log.Logger) *UpdateQueue {
	if kv == nil {
		panic("storage.NewUpdateQueue: kv is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &UpdateQueue{kv: kv, logger: logger}
}

// Append records a failed status update. Failures to append are logged and
// swallowed.
func (q *UpdateQueue) Append(ctx context.Context, taskID, status string) {
	entry := domain.PendingUpdate{
		Type:      domain.UpdateTypeStatus,
		TaskID:    taskID,
		Status:    status,
		Timestamp: domain.NextTimestamp(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		q.logger.WithError(err).Warn("pending update not serializable")
		return
	}
	if err := q.kv.Append(ctx, queueKey, string(data)); err != nil {
		q.logger.WithError(err).WithField("task_id", taskID).Warn("pending update append failed")
	}
}

// Entries returns the accumulated queue contents for diagnostics. Corrupt
// entries are skipped.
func (q *UpdateQueue) Entries(ctx context.Context) []domain.PendingUpdate {
	raw, err := q.kv.Range(ctx, queueKey)
	if err != nil {
		q.logger.WithError(err).Warn("pending update scan failed")
		return nil
	}
	entries := make([]domain.PendingUpdate, 0, len(raw))
	for _, item := range raw {
		var entry domain.PendingUpdate
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			q.logger.Warn("skipping corrupt pending update entry")
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}
