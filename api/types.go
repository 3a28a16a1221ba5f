package api

import (
	"context"

	"workline-sync/domain"
	"workline-sync/tasksync"
)

// SyncService abstracts the task-synchronization layer for handlers.
type SyncService interface {
	ListAll(ctx context.Context) ([]domain.Task, tasksync.Source)
	ListMine(ctx context.Context, userKey string) ([]domain.Task, tasksync.Source)
	Create(ctx context.Context, draft domain.Task) domain.Task
	UpdateStatus(ctx context.Context, id, status string) domain.Task
	Delete(ctx context.Context, id string) error
	AdminStats(ctx context.Context) domain.Stats
	MyStats(ctx context.Context, userKey string) domain.Stats
}

// Maintainer exposes the legacy-data repair operations.
type Maintainer interface {
	FixAll(ctx context.Context) int
	PurgeAll(ctx context.Context) bool
}

// Authenticator is implemented by types able to extract user keys from
// Authorization headers.
type Authenticator interface {
	UserKeyFromAuthHeader(string) (string, error)
}

// Pinger reports whether the local persistence substrate is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
