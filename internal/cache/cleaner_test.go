package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"scale-dashboard/internal/logs"
	"scale-dashboard/internal/metrics"
)

func seed(t *testing.T, store *MemoryStore, key string, ttl time.Duration) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), key, Entry{
		Value:     []byte(`{}`),
		FetchedAt: epoch,
		ExpiresAt: epoch.Add(ttl),
	}))
}

func TestCleaner_Sweep(t *testing.T) {
	clk := testingclock.NewFakeClock(epoch)
	reg := metrics.NewRegistry()
	logger := logs.NewLogger(10, logs.DEBUG)
	store := NewMemoryStore(clk, reg)

	seed(t, store, "job:1", time.Minute)
	seed(t, store, "job:2", time.Hour)

	cleaner := NewCleaner(store, clk, time.Minute, reg, logger)

	t.Run("NothingExpiredYet", func(t *testing.T) {
		assert.Zero(t, cleaner.Sweep())
		assert.Equal(t, int64(2), reg.Get(metrics.CacheEntries))
		assert.Empty(t, logger.GetLast(10))
	})

	t.Run("EvictsExpiredEntries", func(t *testing.T) {
		clk.Step(2 * time.Minute)

		assert.Equal(t, 1, cleaner.Sweep())
		assert.Equal(t, 1, store.Len())
		assert.Equal(t, int64(2), reg.Get(metrics.CacheSweepsTotal))
		assert.Equal(t, int64(1), reg.Get(metrics.CacheEntries))
		assert.Equal(t, int64(1), reg.Get(metrics.CacheExpiredTotal))

		entries := logger.GetLast(1)
		require.Len(t, entries, 1)
		assert.Equal(t, "expired job payloads evicted", entries[0].Message)
		assert.Equal(t, 1, entries[0].Fields["removed"])
		assert.Equal(t, 1, entries[0].Fields["remaining"])
		assert.Equal(t, "0s", entries[0].Fields["took"])
	})
}

func TestCleaner_Start_SweepsOnTick(t *testing.T) {
	clk := testingclock.NewFakeClock(epoch)
	reg := metrics.NewRegistry()
	store := NewMemoryStore(clk, reg)
	seed(t, store, "job:1", time.Second)

	cleaner := NewCleaner(store, clk, time.Minute, reg, logs.NewLogger(10, logs.DEBUG))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cleaner.Start(ctx)

	require.Eventually(t, clk.HasWaiters, time.Second, time.Millisecond)
	clk.Step(time.Minute)

	assert.Eventually(t, func() bool {
		return reg.Get(metrics.CacheSweepsTotal) == 1 && store.Len() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestCleaner_Start_StopsOnContextCancel(t *testing.T) {
	clk := testingclock.NewFakeClock(epoch)
	reg := metrics.NewRegistry()
	logger := logs.NewLogger(10, logs.DEBUG)
	cleaner := NewCleaner(NewMemoryStore(clk, reg), clk, time.Minute, reg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cleaner.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop")
	}
	assert.Zero(t, reg.Get(metrics.CacheSweepsTotal))
	assert.Equal(t, "cache cleaner stopped", logger.GetLast(1)[0].Message)
}
