package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"

	"workline-sync/domain"
)

// TaskStore persists the full task collection under a single reserved key.
// Reads never fail outward: a missing or unparsable collection is served as
// empty, and write failures are reported as false rather than errors, so the
// view layer can always keep rendering something.
type TaskStore struct {
	kv     KV
	logger *log.Logger
}

// NewTaskStore creates a TaskStore on the given substrate.
func NewTaskStore(kv KV, logger *log.Logger) *TaskStore {
	if kv == nil {
		panic("storage.NewTaskStore: kv is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &TaskStore{kv: kv, logger: logger}
}

// GetAll returns the persisted task collection, or an empty slice when the
// key is absent or holds unparsable data.
func (s *TaskStore) GetAll(ctx context.Context) []domain.Task {
	raw, ok, err := s.kv.Get(ctx, tasksKey)
	if err != nil {
		s.logger.WithError(err).Warn("task store read failed")
		return []domain.Task{}
	}
	if !ok {
		return []domain.Task{}
	}
	var tasks []domain.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		s.logger.WithError(err).Warn("task store holds unparsable data, serving empty")
		return []domain.Task{}
	}
	if tasks == nil {
		return []domain.Task{}
	}
	return tasks
}

// SaveAll overwrites the persisted collection. Returns false on any
// persistence failure.
func (s *TaskStore) SaveAll(ctx context.Context, tasks []domain.Task) bool {
	data, err := json.Marshal(tasks)
	if err != nil {
		s.logger.WithError(err).Warn("task collection not serializable")
		return false
	}
	if err := s.kv.Set(ctx, tasksKey, string(data)); err != nil {
		s.logger.WithError(err).Warn("task store write failed")
		return false
	}
	return true
}

// Add upserts a task by id, generating a local id and defaulting the created
// date when absent. A task arriving with no status at all defaults to
// IN_PROGRESS here; this intentionally differs from NormalizeStatus, which
// defaults to PENDING, matching long-standing persisted behavior.
func (s *TaskStore) Add(ctx context.Context, task domain.Task) domain.Task {
	if task.Key() == "" {
		task.ID = domain.FlexID(newLocalID())
	}
	if task.CreatedDate == "" {
		task.CreatedDate = time.Now().UTC().Format(time.RFC3339)
	}
	if task.Status == "" {
		task.Status = domain.StatusInProgress
	} else {
		task.Status = domain.NormalizeStatus(task.Status)
	}
	task.LastUpdated = domain.NextTimestamp()

	tasks := s.GetAll(ctx)
	replaced := false
	for i := range tasks {
		if tasks[i].HasID(task.Key()) {
			tasks[i] = task
			replaced = true
			break
		}
	}
	if !replaced {
		tasks = append(tasks, task)
	}
	s.SaveAll(ctx, tasks)
	return task
}

// Update shallow-merges the patch over the task with the given id. Returns
// false when no such task exists or the write fails.
func (s *TaskStore) Update(ctx context.Context, id string, patch domain.TaskPatch) bool {
	tasks := s.GetAll(ctx)
	for i := range tasks {
		if tasks[i].HasID(id) {
			patch.Apply(&tasks[i])
			tasks[i].LastUpdated = domain.NextTimestamp()
			return s.SaveAll(ctx, tasks)
		}
	}
	return false
}

// Delete removes the task with the given id. Returns false when absent.
func (s *TaskStore) Delete(ctx context.Context, id string) bool {
	tasks := s.GetAll(ctx)
	for i := range tasks {
		if tasks[i].HasID(id) {
			tasks = append(tasks[:i], tasks[i+1:]...)
			return s.SaveAll(ctx, tasks)
		}
	}
	return false
}

// GetByUser filters the collection to tasks assigned to the given user key.
// An empty key yields an empty slice.
func (s *TaskStore) GetByUser(ctx context.Context, userKey string) []domain.Task {
	if userKey == "" {
		return []domain.Task{}
	}
	mine := []domain.Task{}
	for _, t := range s.GetAll(ctx) {
		if t.AssignedToKey(userKey) {
			mine = append(mine, t)
		}
	}
	return mine
}

// UpdateStatus normalizes and applies a status change to the task with the
// given id, synthesizing a pending placeholder when the id is unknown so the
// change survives until the remote record shows up. Both branches mark the
// record pendingSync; the sync service flips it back once the remote
// confirms.
func (s *TaskStore) UpdateStatus(ctx context.Context, id, rawStatus string) bool {
	status := domain.NormalizeStatus(rawStatus)
	tasks := s.GetAll(ctx)
	for i := range tasks {
		if tasks[i].HasID(id) {
			tasks[i].Status = status
			tasks[i].LastUpdated = domain.NextTimestamp()
			tasks[i].PendingSync = true
			return s.SaveAll(ctx, tasks)
		}
	}
	tasks = append(tasks, domain.Task{
		ID:          domain.FlexID(id),
		Title:       domain.PlaceholderTitle(id),
		Status:      status,
		LastUpdated: domain.NextTimestamp(),
		PendingSync: true,
	})
	return s.SaveAll(ctx, tasks)
}

// SaveForUser replaces all tasks assigned to the given user key with the
// provided slice, leaving every other user's tasks untouched. Returns false
// on an empty user key or a failed write.
func (s *TaskStore) SaveForUser(ctx context.Context, userKey string, tasks []domain.Task) bool {
	if userKey == "" {
		return false
	}
	kept := []domain.Task{}
	for _, t := range s.GetAll(ctx) {
		if !t.AssignedToKey(userKey) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, tasks...)
	return s.SaveAll(ctx, kept)
}

func newLocalID() string {
	return fmt.Sprintf("local-%d-%d", domain.NextTimestamp(), rand.Intn(100000))
}
