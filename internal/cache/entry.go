package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for missing or expired keys.
var ErrNotFound = errors.New("cache: not found")

// Entry is a cached upstream document.
//
// FetchedAt orders writes: an entry never replaces one fetched later.
// A zero ExpiresAt means the entry does not expire.
type Entry struct {
	Value     []byte    `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks whether the entry is expired at the given time.
func (e Entry) IsExpired(now time.Time) bool {
	if e.ExpiresAt.IsZero() {
		return false
	}
	return now.After(e.ExpiresAt)
}

// Store is the payload cache contract shared by the memory and Redis
// backends.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
}
