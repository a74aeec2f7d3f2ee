package upstream

import (
	"sort"
	"sync"

	"scale-dashboard/internal/metrics"
)

// EndpointState represents the health state of an upstream endpoint.
type EndpointState int

const (
	Healthy EndpointState = iota
	Unhealthy
)

func (s EndpointState) String() string {
	if s == Unhealthy {
		return "unhealthy"
	}
	return "healthy"
}

// Endpoint tracks the health-related state for one upstream endpoint
type Endpoint struct {
	Name         string        `json:"name"`
	State        EndpointState `json:"-"`
	Status       string        `json:"status"`
	FailureCount int           `json:"failure_count"`
	SuccessCount int           `json:"success_count"`
}

// Tracker follows the health of upstream endpoints ("jobs", "nodes").
type Tracker struct {
	mu        sync.RWMutex
	endpoints map[string]*Endpoint
	policy    HealthPolicy
	metrics   *metrics.Registry
}

// NewTracker creates a new Tracker
func NewTracker(policy HealthPolicy, reg *metrics.Registry) *Tracker {
	return &Tracker{
		endpoints: make(map[string]*Endpoint),
		policy:    policy,
		metrics:   reg,
	}
}

func (t *Tracker) endpoint(name string) *Endpoint {
	ep, ok := t.endpoints[name]
	if !ok {
		ep = &Endpoint{Name: name, State: Healthy}
		t.endpoints[name] = ep
	}
	return ep
}

// MarkFailure records a failed request to name
func (t *Tracker) MarkFailure(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ep := t.endpoint(name)
	ep.FailureCount++
	ep.SuccessCount = 0
	if ep.FailureCount >= t.policy.FailureThreshold {
		ep.State = Unhealthy
	}
	t.metrics.Inc(metrics.UpstreamFailuresTotal)
	t.publish()
}

// MarkSuccess records a successful request to name
func (t *Tracker) MarkSuccess(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ep := t.endpoint(name)
	ep.SuccessCount++
	ep.FailureCount = 0
	if ep.SuccessCount >= t.policy.SuccessThreshold {
		ep.State = Healthy
	}
	t.publish()
}

// publish updates the unhealthy-endpoint gauge; callers hold the lock.
func (t *Tracker) publish() {
	var unhealthy int64
	for _, ep := range t.endpoints {
		if ep.State == Unhealthy {
			unhealthy++
		}
	}
	t.metrics.Set(metrics.UpstreamUnhealthy, unhealthy)
}

// IsHealthy reports whether name is healthy. Endpoints never contacted
// are healthy.
func (t *Tracker) IsHealthy(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ep, ok := t.endpoints[name]
	return !ok || ep.State == Healthy
}

// Endpoints returns a copy of every tracked endpoint, sorted by name.
func (t *Tracker) Endpoints() []Endpoint {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Endpoint, 0, len(t.endpoints))
	for _, ep := range t.endpoints {
		cp := *ep
		cp.Status = ep.State.String()
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
