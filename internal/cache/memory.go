package cache

import (
	"bytes"
	"context"
	"sync"

	"k8s.io/utils/clock"

	"scale-dashboard/internal/metrics"
)

// MemoryStore is a concurrency-safe in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string]Entry
	clock   clock.PassiveClock
	metrics *metrics.Registry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore initializes an empty store reading time from clk.
func NewMemoryStore(clk clock.PassiveClock, reg *metrics.Registry) *MemoryStore {
	return &MemoryStore{
		data:    make(map[string]Entry),
		clock:   clk,
		metrics: reg,
	}
}

// Set stores entry unless the key already holds a later fetch.
func (s *MemoryStore) Set(_ context.Context, key string, entry Entry) error {
	entry.Value = bytes.Clone(entry.Value)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.data[key]; ok && entry.FetchedAt.Before(existing.FetchedAt) {
		return nil
	}
	s.data[key] = entry
	s.metrics.Inc(metrics.CacheSetsTotal)
	return nil
}

// Get returns a live entry. Expired entries are deleted and reported as
// ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, key string) (Entry, error) {
	s.mu.RLock()
	entry, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return Entry{}, ErrNotFound
	}

	if entry.IsExpired(s.clock.Now()) {
		s.mu.Lock()
		// re-check: a fresh Set may have landed in between
		if cur, ok := s.data[key]; ok && cur.IsExpired(s.clock.Now()) {
			delete(s.data, key)
			s.metrics.Inc(metrics.CacheExpiredTotal)
		}
		s.mu.Unlock()
		return Entry{}, ErrNotFound
	}

	entry.Value = bytes.Clone(entry.Value)
	return entry, nil
}

// Delete removes a key from the store.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Len counts stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// RemoveExpired removes every expired entry and returns how many it removed.
func (s *MemoryStore) RemoveExpired() int {
	now := s.clock.Now()
	removed := 0

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range s.data {
		if v.IsExpired(now) {
			delete(s.data, k)
			removed++
		}
	}

	if removed > 0 {
		s.metrics.Add(metrics.CacheExpiredTotal, int64(removed))
	}
	return removed
}
