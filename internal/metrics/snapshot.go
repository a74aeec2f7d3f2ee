package metrics

import "sync/atomic"

// Snapshot returns a copy of all metrics, keyed by name.
func (r *Registry) Snapshot() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int64, len(r.counters))
	for key, ptr := range r.counters {
		out[string(key)] = atomic.LoadInt64(ptr)
	}
	return out
}

// Get reads a single metric. Unknown metrics read as zero.
func (r *Registry) Get(key MetricKey) int64 {
	r.mu.RLock()
	ptr, ok := r.counters[key]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(ptr)
}
