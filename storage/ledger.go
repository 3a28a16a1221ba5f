package storage

import (
	"context"
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"workline-sync/domain"
)

// Ledger keeps one persisted record per task with an unconfirmed local status
// change, each under its own key so entries can be written and cleared
// without rewriting the aggregate collection.
type Ledger struct {
	kv     KV
	logger *log.Logger
}

// NewLedger creates a Ledger on the given substrate.
func NewLedger(kv KV, logger *log.Logger) *Ledger {
	if kv == nil {
		panic("storage.NewLedger: kv is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Ledger{kv: kv, logger: logger}
}

func ledgerKey(id string) string {
	return ledgerPrefix + id
}

// RecordPending writes the pending-status record for the task, overwriting
// any prior entry. Write failures are logged and swallowed; the aggregate
// store still carries the change.
func (l *Ledger) RecordPending(ctx context.Context, id, status string, lastUpdated int64) {
	rec := domain.PendingStatus{ID: id, Status: status, LastUpdated: lastUpdated}
	data, err := json.Marshal(rec)
	if err != nil {
		l.logger.WithError(err).WithField("task_id", id).Warn("pending record not serializable")
		return
	}
	if err := l.kv.Set(ctx, ledgerKey(id), string(data)); err != nil {
		l.logger.WithError(err).WithField("task_id", id).Warn("pending record write failed")
	}
}

// ListPending returns every parsable pending-status record. Individually
// corrupt entries are skipped and logged, not fatal.
func (l *Ledger) ListPending(ctx context.Context) []domain.PendingStatus {
	keys, err := l.kv.Keys(ctx, ledgerPrefix+"*")
	if err != nil {
		l.logger.WithError(err).Warn("pending record scan failed")
		return nil
	}
	records := make([]domain.PendingStatus, 0, len(keys))
	for _, key := range keys {
		raw, ok, err := l.kv.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var rec domain.PendingStatus
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			l.logger.WithField("key", key).Warn("skipping corrupt pending record")
			continue
		}
		records = append(records, rec)
	}
	return records
}

// ClearPending removes the record for the task, called once the remote
// service confirms the status change.
func (l *Ledger) ClearPending(ctx context.Context, id string) {
	if err := l.kv.Delete(ctx, ledgerKey(id)); err != nil {
		l.logger.WithError(err).WithField("task_id", id).Warn("pending record delete failed")
	}
}
