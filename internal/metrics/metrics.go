package metrics

import (
	"sync"
	"sync/atomic"
)

// MetricKey is a strongly typed metric identifier.
type MetricKey string

// Metric keys
const (
	// Job detail view models
	JobsBuiltTotal    MetricKey = "jobs_built_total"
	JobsDegradedTotal MetricKey = "jobs_degraded_total"
	JobsNotFoundTotal MetricKey = "jobs_not_found_total"

	// Scale REST API
	UpstreamRequestsTotal MetricKey = "upstream_requests_total"
	UpstreamFailuresTotal MetricKey = "upstream_failures_total"
	UpstreamRetriesTotal  MetricKey = "upstream_retries_total"
	UpstreamUnhealthy     MetricKey = "upstream_unhealthy"

	// Payload cache
	CacheHitsTotal    MetricKey = "cache_hits_total"
	CacheMissesTotal  MetricKey = "cache_misses_total"
	CacheSetsTotal    MetricKey = "cache_sets_total"
	CacheExpiredTotal MetricKey = "cache_expired_total"
	CacheErrorsTotal  MetricKey = "cache_errors_total"
	CacheSweepsTotal  MetricKey = "cache_sweeps_total"
	CacheEntries      MetricKey = "cache_entries"

	// Node health
	NodePollsTotal        MetricKey = "node_polls_total"
	NodePollFailuresTotal MetricKey = "node_poll_failures_total"
	NodeSummariesTotal    MetricKey = "node_summaries_total"
	NodesObserved         MetricKey = "nodes_observed"

	// Streaming
	StreamSubscribers MetricKey = "stream_subscribers"
)

// Registry stores all metrics.
type Registry struct {
	mu       sync.RWMutex
	counters map[MetricKey]*int64
}

// NewRegistry creates a metrics registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[MetricKey]*int64),
	}
}

// Inc increments a metric by 1.
func (r *Registry) Inc(key MetricKey) {
	r.Add(key, 1)
}

// Dec decrements a metric by 1.
func (r *Registry) Dec(key MetricKey) {
	r.Add(key, -1)
}

// Add increments a metric by delta.
func (r *Registry) Add(key MetricKey, delta int64) {
	atomic.AddInt64(r.counter(key), delta)
}

// Set stores an absolute value, for gauges.
func (r *Registry) Set(key MetricKey, value int64) {
	atomic.StoreInt64(r.counter(key), value)
}

func (r *Registry) counter(key MetricKey) *int64 {
	r.mu.RLock()
	ptr, ok := r.counters[key]
	r.mu.RUnlock()
	if ok {
		return ptr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// another writer may have created it first
	if ptr, ok = r.counters[key]; ok {
		return ptr
	}
	ptr = new(int64)
	r.counters[key] = ptr
	return ptr
}
