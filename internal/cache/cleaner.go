package cache

import (
	"context"
	"time"

	"k8s.io/utils/clock"

	"scale-dashboard/internal/logs"
	"scale-dashboard/internal/metrics"
)

// Sweeper is a store that keeps expired entries until told to drop them.
type Sweeper interface {
	RemoveExpired() int
	Len() int
}

// Cleaner evicts expired job payloads from an in-process store on a fixed
// interval and publishes the resulting cache size.
type Cleaner struct {
	store    Sweeper
	clock    clock.WithTicker
	interval time.Duration
	metrics  *metrics.Registry
	logger   *logs.Logger
}

func NewCleaner(
	store Sweeper,
	clk clock.WithTicker,
	interval time.Duration,
	reg *metrics.Registry,
	logger *logs.Logger,
) *Cleaner {
	return &Cleaner{
		store:    store,
		clock:    clk,
		interval: interval,
		metrics:  reg,
		logger:   logger,
	}
}

// Start sweeps on every tick of the cleaner's clock until ctx is done.
func (c *Cleaner) Start(ctx context.Context) {
	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Debug("cache cleaner started", "interval", c.interval.String())
	for {
		select {
		case <-ticker.C():
			c.Sweep()
		case <-ctx.Done():
			c.logger.Debug("cache cleaner stopped")
			return
		}
	}
}

// Sweep evicts expired entries once and returns how many were removed.
func (c *Cleaner) Sweep() int {
	start := c.clock.Now()
	removed := c.store.RemoveExpired()
	remaining := c.store.Len()

	c.metrics.Inc(metrics.CacheSweepsTotal)
	c.metrics.Set(metrics.CacheEntries, int64(remaining))

	if removed > 0 {
		c.logger.Info("expired job payloads evicted",
			"removed", removed,
			"remaining", remaining,
			"took", c.clock.Since(start).String(),
		)
	}
	return removed
}
