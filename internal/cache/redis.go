package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ajanderson1/flowsegment/internal/schema"
)

// Redis is a Store backed by a shared Redis instance, for callers that want
// segmentations to survive process restarts or be shared between readers of
// the same source. Entries are JSON-serialized CachedResults under a
// configurable key prefix with a TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: "flowsegment:",
		ttl:    30 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(key string) string { return r.prefix + key }

func (r *Redis) Get(ctx context.Context, key string) (*schema.CachedResult, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache: redis get: %w", err)
	}

	var entry schema.CachedResult
	if err := json.Unmarshal(data, &entry); err != nil {
		// Undeserializable entries are treated like version mismatches:
		// delete and report a miss.
		_ = r.client.Del(ctx, r.key(key)).Err()
		return nil, ErrMiss
	}
	if entry.SchemaVersion != schema.Version {
		_ = r.client.Del(ctx, r.key(key)).Err()
		return nil, ErrMiss
	}
	return &entry, nil
}

func (r *Redis) Put(ctx context.Context, key string, result *schema.Result) error {
	data, err := json.Marshal(wrap(result))
	if err != nil {
		return fmt.Errorf("cache: marshal result: %w", err)
	}
	if err := r.client.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("cache: redis del: %w", err)
	}
	return nil
}
