package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"k8s.io/utils/clock"
)

// RedisStore keeps entries in Redis so several dashboard instances share
// one cache. Expiry is delegated to Redis; writes are not ordered by
// FetchedAt.
type RedisStore struct {
	client *redis.Client
	prefix string
	clock  clock.PassiveClock
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, prefix string, clk clock.PassiveClock) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, clock: clk}
}

func (r *RedisStore) key(k string) string {
	return r.prefix + k
}

func (r *RedisStore) Get(ctx context.Context, key string) (Entry, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("redis get %s: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, fmt.Errorf("redis decode %s: %w", key, err)
	}
	if entry.IsExpired(r.clock.Now()) {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

// Set writes entry with a Redis TTL matching ExpiresAt. Already expired
// entries are not written.
func (r *RedisStore) Set(ctx context.Context, key string, entry Entry) error {
	var ttl time.Duration
	if !entry.ExpiresAt.IsZero() {
		ttl = entry.ExpiresAt.Sub(r.clock.Now())
		if ttl <= 0 {
			return nil
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
