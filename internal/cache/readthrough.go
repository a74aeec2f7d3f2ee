package cache

import (
	"context"
	"errors"
	"time"

	"k8s.io/utils/clock"

	"scale-dashboard/internal/logs"
	"scale-dashboard/internal/metrics"
)

// ReadThrough serves documents from a Store and fills misses from a fetch
// function. Store failures are logged and bypassed.
type ReadThrough struct {
	store   Store
	clock   clock.PassiveClock
	ttl     time.Duration
	metrics *metrics.Registry
	logger  *logs.Logger
}

func NewReadThrough(
	store Store,
	clk clock.PassiveClock,
	ttl time.Duration,
	reg *metrics.Registry,
	logger *logs.Logger,
) *ReadThrough {
	return &ReadThrough{store: store, clock: clk, ttl: ttl, metrics: reg, logger: logger}
}

// Get returns the cached value for key, or fetches, stores and returns it.
// hit reports whether the value came from the cache. Fetch errors are
// returned as is and nothing is cached.
func (rt *ReadThrough) Get(
	ctx context.Context,
	key string,
	fetch func(context.Context) ([]byte, error),
) (value []byte, hit bool, err error) {
	entry, err := rt.store.Get(ctx, key)
	switch {
	case err == nil:
		rt.metrics.Inc(metrics.CacheHitsTotal)
		return entry.Value, true, nil
	case !errors.Is(err, ErrNotFound):
		rt.metrics.Inc(metrics.CacheErrorsTotal)
		rt.logger.Warn("cache read failed", "key", key, "error", err)
	}
	rt.metrics.Inc(metrics.CacheMissesTotal)

	started := rt.clock.Now()
	value, err = fetch(ctx)
	if err != nil {
		return nil, false, err
	}

	fresh := Entry{Value: value, FetchedAt: started}
	if rt.ttl > 0 {
		fresh.ExpiresAt = started.Add(rt.ttl)
	}
	if err := rt.store.Set(ctx, key, fresh); err != nil {
		rt.metrics.Inc(metrics.CacheErrorsTotal)
		rt.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return value, false, nil
}

// Invalidate drops key from the store.
func (rt *ReadThrough) Invalidate(ctx context.Context, key string) error {
	return rt.store.Delete(ctx, key)
}
