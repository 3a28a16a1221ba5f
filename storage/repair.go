package storage

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"workline-sync/domain"
)

// Repairer rewrites legacy status tokens left behind by older clients and
// supports a bulk purge of all locally persisted task data.
type Repairer struct {
	kv     KV
	tasks  *TaskStore
	ledger *Ledger
	logger *log.Logger
}

// NewRepairer creates a Repairer over the task store and ledger.
func NewRepairer(kv KV, tasks *TaskStore, ledger *Ledger, logger *log.Logger) *Repairer {
	if kv == nil || tasks == nil || ledger == nil {
		panic("storage.NewRepairer: nil dependency")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Repairer{kv: kv, tasks: tasks, ledger: ledger, logger: logger}
}

// FixAll scans the aggregate collection and every ledger entry, rewriting
// raw ONGOING statuses to IN_PROGRESS. Returns the number of records changed.
func (r *Repairer) FixAll(ctx context.Context) int {
	fixed := 0

	tasks := r.tasks.GetAll(ctx)
	changed := false
	for i := range tasks {
		if strings.ToUpper(tasks[i].Status) == "ONGOING" {
			tasks[i].Status = domain.StatusInProgress
			fixed++
			changed = true
		}
	}
	if changed {
		r.tasks.SaveAll(ctx, tasks)
	}

	for _, rec := range r.ledger.ListPending(ctx) {
		if strings.ToUpper(rec.Status) == "ONGOING" {
			r.ledger.RecordPending(ctx, rec.ID, domain.StatusInProgress, rec.LastUpdated)
			fixed++
		}
	}

	if fixed > 0 {
		r.logger.WithField("fixed", fixed).Info("rewrote legacy task statuses")
	}
	return fixed
}

// PurgeAll removes the aggregate collection, the pending-update queue, every
// ledger entry, and any other key carrying the task-domain marker. Returns
// true unless the substrate itself failed.
func (r *Repairer) PurgeAll(ctx context.Context) bool {
	doomed := []string{tasksKey, queueKey}

	ledgerKeys, err := r.kv.Keys(ctx, ledgerPrefix+"*")
	if err != nil {
		r.logger.WithError(err).Warn("purge: ledger scan failed")
		return false
	}
	doomed = append(doomed, ledgerKeys...)

	markerKeys, err := r.kv.Keys(ctx, "*"+domainMarker+"*")
	if err != nil {
		r.logger.WithError(err).Warn("purge: marker scan failed")
		return false
	}
	doomed = append(doomed, markerKeys...)

	if err := r.kv.Delete(ctx, dedupe(doomed)...); err != nil {
		r.logger.WithError(err).Warn("purge: delete failed")
		return false
	}
	r.logger.WithField("keys", len(doomed)).Info("purged local task data")
	return true
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
