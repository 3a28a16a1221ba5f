package tasksync

import (
	"context"
	"errors"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"workline-sync/domain"
	"workline-sync/storage"
)

var errRemoteDown = errors.New("connection refused")

type stubRemote struct {
	listTasksFn    func(ctx context.Context) ([]domain.Task, error)
	listMineFn     func(ctx context.Context, userKey string) ([]domain.Task, error)
	createFn       func(ctx context.Context, draft domain.Task, key string) (domain.Task, error)
	updateStatusFn func(ctx context.Context, id, status string) (domain.Task, error)
	deleteFn       func(ctx context.Context, id string) error
}

func (s *stubRemote) ListTasks(ctx context.Context) ([]domain.Task, error) {
	if s.listTasksFn == nil {
		return nil, errRemoteDown
	}
	return s.listTasksFn(ctx)
}

func (s *stubRemote) ListMine(ctx context.Context, userKey string) ([]domain.Task, error) {
	if s.listMineFn == nil {
		return nil, errRemoteDown
	}
	return s.listMineFn(ctx, userKey)
}

func (s *stubRemote) CreateTask(ctx context.Context, draft domain.Task, key string) (domain.Task, error) {
	if s.createFn == nil {
		return domain.Task{}, errRemoteDown
	}
	return s.createFn(ctx, draft, key)
}

func (s *stubRemote) UpdateTaskStatus(ctx context.Context, id, status string) (domain.Task, error) {
	if s.updateStatusFn == nil {
		return domain.Task{}, errRemoteDown
	}
	return s.updateStatusFn(ctx, id, status)
}

func (s *stubRemote) DeleteTask(ctx context.Context, id string) error {
	if s.deleteFn == nil {
		return errRemoteDown
	}
	return s.deleteFn(ctx, id)
}

type fixture struct {
	svc    *Service
	remote *stubRemote
	tasks  *storage.TaskStore
	ledger *storage.Ledger
	queue  *storage.UpdateQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := log.New()
	kv := storage.NewRedisKV(client)
	tasks := storage.NewTaskStore(kv, logger)
	ledger := storage.NewLedger(kv, logger)
	queue := storage.NewUpdateQueue(kv, logger)
	remote := &stubRemote{}
	return &fixture{
		svc:    New(remote, tasks, ledger, queue, logger),
		remote: remote,
		tasks:  tasks,
		ledger: ledger,
		queue:  queue,
	}
}

func TestListAllMergesPendingOverRemote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ledger.RecordPending(ctx, "t1", domain.StatusCompleted, 500)
	f.remote.listTasksFn = func(ctx context.Context) ([]domain.Task, error) {
		return []domain.Task{{ID: "t1", Title: "one", Status: domain.StatusPending}}, nil
	}

	tasks, source := f.svc.ListAll(ctx)
	if source != SourceRemote {
		t.Fatalf("source = %s, want remote", source)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	got := tasks[0]
	if got.Status != domain.StatusCompleted || !got.PendingSync || got.LastUpdated != 500 {
		t.Fatalf("pending overlay not applied: %#v", got)
	}

	// The merged view is what gets persisted.
	stored := f.tasks.GetAll(ctx)
	if len(stored) != 1 || stored[0].Status != domain.StatusCompleted {
		t.Fatalf("merged view not persisted: %#v", stored)
	}
}

func TestListAllFallsBackToLocalWithOverlay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.tasks.SaveAll(ctx, []domain.Task{{ID: "t1", Title: "one", Status: domain.StatusPending}})
	f.ledger.RecordPending(ctx, "t1", domain.StatusCancelled, 900)

	tasks, source := f.svc.ListAll(ctx)
	if source != SourceLocal {
		t.Fatalf("source = %s, want local", source)
	}
	if len(tasks) != 1 || tasks[0].Status != domain.StatusCancelled || !tasks[0].PendingSync {
		t.Fatalf("local overlay missing: %#v", tasks)
	}
}

func TestListAllServesDemoWhenEverythingIsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tasks, source := f.svc.ListAll(ctx)
	if source != SourceDemo {
		t.Fatalf("source = %s, want demo", source)
	}
	if len(tasks) == 0 {
		t.Fatal("demo dataset is empty")
	}
	// Demo data is served, not persisted.
	if stored := f.tasks.GetAll(ctx); len(stored) != 0 {
		t.Fatalf("demo data leaked into the store: %#v", stored)
	}
}

func TestListMineScopesAndPersistsPerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.tasks.SaveAll(ctx, []domain.Task{{ID: "other", Status: domain.StatusPending, AssignedTo: "bob@workline.io"}})
	f.remote.listMineFn = func(ctx context.Context, userKey string) ([]domain.Task, error) {
		if userKey != "ana@workline.io" {
			t.Fatalf("unexpected user key %q", userKey)
		}
		return []domain.Task{{ID: "mine", Status: domain.StatusPending, AssignedTo: userKey}}, nil
	}

	tasks, source := f.svc.ListMine(ctx, "ana@workline.io")
	if source != SourceRemote || len(tasks) != 1 || tasks[0].Key() != "mine" {
		t.Fatalf("unexpected result: %s %#v", source, tasks)
	}

	all := f.tasks.GetAll(ctx)
	if len(all) != 2 {
		t.Fatalf("other user's tasks clobbered: %#v", all)
	}
	if f.svc.LastUser() != "ana@workline.io" {
		t.Fatalf("last user = %q", f.svc.LastUser())
	}
}

func TestListMineFallsBackToLocalScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.tasks.SaveAll(ctx, []domain.Task{
		{ID: "mine", Status: domain.StatusPending, AssignedToEmail: "ana@workline.io"},
		{ID: "other", Status: domain.StatusPending, AssignedTo: "bob@workline.io"},
	})

	tasks, source := f.svc.ListMine(ctx, "ana@workline.io")
	if source != SourceLocal || len(tasks) != 1 || tasks[0].Key() != "mine" {
		t.Fatalf("unexpected fallback result: %s %#v", source, tasks)
	}

	empty, _ := f.svc.ListMine(ctx, "")
	if len(empty) != 0 {
		t.Fatalf("empty user key must yield empty slice, got %#v", empty)
	}
}

func TestCreateStoresRemoteConfirmedTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.remote.createFn = func(ctx context.Context, draft domain.Task, key string) (domain.Task, error) {
		if key == "" {
			t.Fatal("missing idempotency key")
		}
		if draft.DueDate == "" {
			t.Fatal("due date not defaulted before remote call")
		}
		return domain.Task{ID: "srv-9", Title: draft.Title, Status: domain.StatusPending}, nil
	}

	created := f.svc.Create(ctx, domain.Task{Title: "plan sprint"})
	if created.Key() != "srv-9" {
		t.Fatalf("unexpected created task: %#v", created)
	}
	if stored := f.tasks.GetAll(ctx); len(stored) != 1 || stored[0].Key() != "srv-9" {
		t.Fatalf("confirmed task not stored: %#v", stored)
	}
}

func TestCreateFallsBackToLocalOnlyTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.svc.Create(ctx, domain.Task{Title: "plan sprint"})
	if !strings.HasPrefix(created.Key(), "local-") {
		t.Fatalf("expected generated local id, got %q", created.Key())
	}
	if stored := f.tasks.GetAll(ctx); len(stored) != 1 {
		t.Fatalf("local-only task not stored: %#v", stored)
	}
}

func TestUpdateStatusRemoteFailureLeavesPendingState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.tasks.SaveAll(ctx, []domain.Task{{ID: "t1", Status: domain.StatusPending}})

	got := f.svc.UpdateStatus(ctx, "t1", "COMPLETED")
	if got.Status != domain.StatusCompleted || !got.PendingSync {
		t.Fatalf("unexpected returned task: %#v", got)
	}

	stored := f.tasks.GetAll(ctx)[0]
	if stored.Status != domain.StatusCompleted || !stored.PendingSync {
		t.Fatalf("local store not updated: %#v", stored)
	}

	records := f.ledger.ListPending(ctx)
	if len(records) != 1 || records[0].ID != "t1" || records[0].Status != domain.StatusCompleted {
		t.Fatalf("unexpected ledger state: %#v", records)
	}

	entries := f.queue.Entries(ctx)
	if len(entries) != 1 || entries[0].TaskID != "t1" || entries[0].Status != domain.StatusCompleted {
		t.Fatalf("unexpected queue state: %#v", entries)
	}
}

func TestUpdateStatusRemoteConfirmationClearsPendingState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.tasks.SaveAll(ctx, []domain.Task{{ID: "t1", Status: domain.StatusPending}})
	f.remote.updateStatusFn = func(ctx context.Context, id, status string) (domain.Task, error) {
		return domain.Task{ID: domain.FlexID(id), Title: "confirmed", Status: status}, nil
	}

	got := f.svc.UpdateStatus(ctx, "t1", "ongoing")
	if got.Status != domain.StatusInProgress {
		t.Fatalf("status = %q, want IN_PROGRESS", got.Status)
	}
	if got.PendingSync {
		t.Fatalf("confirmed task still pending: %#v", got)
	}

	if records := f.ledger.ListPending(ctx); len(records) != 0 {
		t.Fatalf("ledger entry not cleared: %#v", records)
	}
	stored := f.tasks.GetAll(ctx)[0]
	if stored.PendingSync || stored.Title != "confirmed" {
		t.Fatalf("store not overwritten with confirmed task: %#v", stored)
	}
	if entries := f.queue.Entries(ctx); len(entries) != 0 {
		t.Fatalf("queue entry appended on success: %#v", entries)
	}
}

func TestDeleteSucceedsWhenEitherSideRemoves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Remote down, task known locally.
	f.tasks.SaveAll(ctx, []domain.Task{{ID: "t1", Status: domain.StatusPending}})
	if err := f.svc.Delete(ctx, "t1"); err != nil {
		t.Fatalf("delete with local copy: %v", err)
	}

	// Remote up, task unknown locally.
	f.remote.deleteFn = func(ctx context.Context, id string) error { return nil }
	if err := f.svc.Delete(ctx, "ghost"); err != nil {
		t.Fatalf("delete with remote confirmation: %v", err)
	}
}

func TestDeleteFailsWhenRemoteAndLocalBothMiss(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Delete(context.Background(), "ghost")
	if !errors.Is(err, ErrDeleteFailed) {
		t.Fatalf("expected ErrDeleteFailed, got %v", err)
	}
}

func TestAdminStatsUsesReconciledView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.remote.listTasksFn = func(ctx context.Context) ([]domain.Task, error) {
		return []domain.Task{
			{ID: "a", Status: "COMPLETED"},
			{ID: "b", Status: "ONGOING"},
			{ID: "c", Status: "PENDING", DueDate: "2001-01-01"},
		}, nil
	}

	stats := f.svc.AdminStats(ctx)
	if stats.CompletedTasks != 1 || stats.OngoingTasks != 1 || stats.NewTasks != 1 || stats.OverdueTasks != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestMyStatsScopedToUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.tasks.SaveAll(ctx, []domain.Task{
		{ID: "a", Status: "COMPLETED", AssignedTo: "ana@workline.io"},
		{ID: "b", Status: "PENDING", AssignedTo: "bob@workline.io"},
	})

	stats := f.svc.MyStats(ctx, "ana@workline.io")
	if stats.TotalTasks != 1 || stats.CompletedTasks != 1 || stats.NewTasks != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.TasksDueSoon != 0 && stats.OverdueTasks != 0 {
		t.Fatalf("per-user stats carry due buckets: %+v", stats)
	}
}
