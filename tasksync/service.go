package tasksync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"workline-sync/domain"
	"workline-sync/storage"
)

// Source identifies which data source produced a result, so the view layer
// can report freshness instead of guessing from logs.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
	SourceDemo   Source = "demo"
)

// ErrDeleteFailed is returned when a delete neither reached the remote
// service nor found the task locally.
var ErrDeleteFailed = errors.New("tasksync: task delete failed remotely and locally")

// Remote abstracts the upstream task endpoints.
type Remote interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	ListMine(ctx context.Context, userKey string) ([]domain.Task, error)
	CreateTask(ctx context.Context, draft domain.Task, idempotencyKey string) (domain.Task, error)
	UpdateTaskStatus(ctx context.Context, id, status string) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Service reconciles remote task data with locally pending changes. Every
// operation degrades to local or demo data instead of failing outward; the
// only surfaced error is ErrDeleteFailed.
type Service struct {
	remote Remote
	tasks  *storage.TaskStore
	ledger *storage.Ledger
	queue  *storage.UpdateQueue
	logger *log.Logger

	lastUser atomic.Value
}

// New creates a Service over the given remote client and local stores.
func New(remote Remote, tasks *storage.TaskStore, ledger *storage.Ledger, queue *storage.UpdateQueue, logger *log.Logger) *Service {
	if remote == nil || tasks == nil || ledger == nil || queue == nil {
		panic("tasksync.New: nil dependency")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Service{remote: remote, tasks: tasks, ledger: ledger, queue: queue, logger: logger}
}

// ListAll returns the reconciled view of every task. Remote data wins when
// reachable, overlaid with any locally pending status changes and persisted.
// On remote failure the local collection is served with the same overlay,
// and demo data stands in when the local collection is empty too.
func (s *Service) ListAll(ctx context.Context) ([]domain.Task, Source) {
	local := s.tasks.GetAll(ctx)
	pending := s.pendingByID(ctx)

	remoteTasks, err := s.remote.ListTasks(ctx)
	if err == nil {
		merged := overlayPending(remoteTasks, pending)
		s.tasks.SaveAll(ctx, merged)
		return merged, SourceRemote
	}
	s.logger.WithError(err).Warn("task list fetch failed, serving local data")

	if len(local) == 0 {
		return DemoTasks(), SourceDemo
	}
	return overlayPending(local, pending), SourceLocal
}

// ListMine is ListAll scoped to one user key. The key is remembered so the
// background refresher can keep that user's view warm.
func (s *Service) ListMine(ctx context.Context, userKey string) ([]domain.Task, Source) {
	if userKey == "" {
		return []domain.Task{}, SourceLocal
	}
	s.lastUser.Store(userKey)
	pending := s.pendingByID(ctx)

	remoteTasks, err := s.remote.ListMine(ctx, userKey)
	if err == nil {
		merged := overlayPending(remoteTasks, pending)
		s.tasks.SaveForUser(ctx, userKey, merged)
		return merged, SourceRemote
	}
	s.logger.WithError(err).WithField("user", userKey).Warn("my-tasks fetch failed, serving local data")

	return overlayPending(s.tasks.GetByUser(ctx, userKey), pending), SourceLocal
}

// Create attempts remote creation and stores the confirmed record; on
// failure the draft is stored as a local-only task with a generated id. The
// caller sees no error either way.
func (s *Service) Create(ctx context.Context, draft domain.Task) domain.Task {
	if draft.DueDate == "" {
		draft.DueDate = time.Now().UTC().AddDate(0, 0, 7).Format(time.RFC3339)
	}

	created, err := s.remote.CreateTask(ctx, draft, uuid.NewString())
	if err == nil {
		return s.tasks.Add(ctx, created)
	}
	s.logger.WithError(err).Warn("remote task create failed, keeping local-only copy")
	return s.tasks.Add(ctx, draft)
}

// UpdateStatus applies the change locally first so the view reflects it
// immediately, then tries the remote call. Confirmation replaces the local
// copy and clears the ledger; failure leaves the pending-sync state in place
// and appends an audit entry to the update queue.
func (s *Service) UpdateStatus(ctx context.Context, id, rawStatus string) domain.Task {
	status := domain.NormalizeStatus(rawStatus)

	s.tasks.UpdateStatus(ctx, id, status)
	s.ledger.RecordPending(ctx, id, status, domain.NextTimestamp())

	confirmed, err := s.remote.UpdateTaskStatus(ctx, id, status)
	if err == nil {
		confirmed.PendingSync = false
		if confirmed.Key() == "" {
			confirmed.ID = domain.FlexID(id)
		}
		stored := s.tasks.Add(ctx, confirmed)
		s.ledger.ClearPending(ctx, id)
		return stored
	}

	s.logger.WithError(err).WithField("task_id", id).Warn("remote status update failed, change queued as pending")
	s.queue.Append(ctx, id, status)

	for _, t := range s.tasks.GetAll(ctx) {
		if t.HasID(id) {
			return t
		}
	}
	// The optimistic write itself failed; report the change anyway.
	return domain.Task{ID: domain.FlexID(id), Status: status, PendingSync: true}
}

// Delete removes the task remotely and locally. It fails only when the
// remote call failed and the task was unknown locally as well.
func (s *Service) Delete(ctx context.Context, id string) error {
	remoteErr := s.remote.DeleteTask(ctx, id)
	removed := s.tasks.Delete(ctx, id)
	if remoteErr != nil {
		s.logger.WithError(remoteErr).WithField("task_id", id).Warn("remote task delete failed")
		if !removed {
			return fmt.Errorf("%w: %v", ErrDeleteFailed, remoteErr)
		}
	}
	return nil
}

// AdminStats summarizes the full reconciled collection, including the
// due-date buckets.
func (s *Service) AdminStats(ctx context.Context) domain.Stats {
	tasks, _ := s.ListAll(ctx)
	return domain.ComputeStats(tasks, time.Now(), true)
}

// MyStats summarizes the caller's reconciled tasks.
func (s *Service) MyStats(ctx context.Context, userKey string) domain.Stats {
	tasks, _ := s.ListMine(ctx, userKey)
	return domain.ComputeStats(tasks, time.Now(), false)
}

// LastUser returns the most recent user key seen by ListMine, or "".
func (s *Service) LastUser() string {
	if v, ok := s.lastUser.Load().(string); ok {
		return v
	}
	return ""
}

func (s *Service) pendingByID(ctx context.Context) map[string]domain.PendingStatus {
	records := s.ledger.ListPending(ctx)
	if len(records) == 0 {
		return nil
	}
	byID := make(map[string]domain.PendingStatus, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	return byID
}

// overlayPending rewrites each task that has an unconfirmed local status
// change so the fresher local intent wins over the fetched record.
func overlayPending(tasks []domain.Task, pending map[string]domain.PendingStatus) []domain.Task {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	if len(pending) == 0 {
		return tasks
	}
	merged := make([]domain.Task, len(tasks))
	for i, t := range tasks {
		rec, ok := pending[string(t.ID)]
		if !ok {
			rec, ok = pending[string(t.AltID)]
		}
		if ok {
			t.Status = rec.Status
			t.LastUpdated = rec.LastUpdated
			t.PendingSync = true
		}
		merged[i] = t
	}
	return merged
}
