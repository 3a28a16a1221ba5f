package storage

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Reserved persistence keys. The substrate shares one namespace with other
// application data, so everything task-related stays under these names.
const (
	tasksKey     = "workline_tasks"
	ledgerPrefix = "task_status_"
	queueKey     = "workline_pending_updates"
	domainMarker = "workline"
)

// KV is the string-keyed persistence substrate backing all local task data.
// It mirrors web-storage semantics: values are opaque strings serialized by
// the caller, keys share a single flat namespace, and writes can fail once
// the store is over quota.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	Append(ctx context.Context, key, value string) error
	Range(ctx context.Context, key string) ([]string, error)
}

// RedisKV implements KV on a Redis client.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV wraps the provided Redis client.
func NewRedisKV(client *redis.Client) *RedisKV {
	if client == nil {
		panic("storage.NewRedisKV: client is nil")
	}
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

func (r *RedisKV) Append(ctx context.Context, key, value string) error {
	return r.client.RPush(ctx, key, value).Err()
}

func (r *RedisKV) Range(ctx context.Context, key string) ([]string, error) {
	vals, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return vals, err
}

// Ping reports whether the substrate is reachable, used by health checks.
func (r *RedisKV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
