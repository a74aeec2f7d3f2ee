package nodes

import (
	"slices"
	"sync"

	"scale-dashboard/internal/metrics"
)

// Controller publishes node-health snapshots for an observed node list.
//
// Each Observe replaces the published Summary with a freshly computed one;
// published snapshots are never modified. Subscribers receive a ping after
// every publish and re-read Snapshot.
type Controller struct {
	mu        sync.RWMutex
	current   Summary
	listeners map[chan struct{}]struct{}
	metrics   *metrics.Registry
}

// NewController creates a controller with an empty summary and opts.
func NewController(reg *metrics.Registry, opts Options) *Controller {
	return &Controller{
		current:   Summary{Groups: []Group{}, Options: opts},
		listeners: make(map[chan struct{}]struct{}),
		metrics:   reg,
	}
}

// Observe recomputes the summary for nodes and publishes it.
// A nil list publishes the empty summary.
func (c *Controller) Observe(nodes []Node) Summary {
	next := Summarize(nodes)

	c.mu.Lock()
	next.Options = c.current.Options
	next.Version = c.current.Version + 1
	c.current = next
	c.mu.Unlock()

	c.metrics.Inc(metrics.NodeSummariesTotal)
	c.metrics.Set(metrics.NodesObserved, int64(next.Total))
	c.broadcast()
	return next.clone()
}

// Snapshot returns the most recently published summary.
func (c *Controller) Snapshot() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.clone()
}

// Options returns the current presentation options.
func (c *Controller) Options() Options {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Options
}

// SetOptions publishes a snapshot carrying opts and the current groups.
func (c *Controller) SetOptions(opts Options) {
	c.update(func(o *Options) { *o = opts })
}

// SetLoading publishes a snapshot with the loading flag changed.
// Setting the flag it already holds publishes nothing.
func (c *Controller) SetLoading(loading bool) {
	c.update(func(o *Options) { o.Loading = loading })
}

func (c *Controller) update(mutate func(*Options)) {
	c.mu.Lock()
	opts := c.current.Options
	mutate(&opts)
	if opts == c.current.Options {
		c.mu.Unlock()
		return
	}
	next := c.current
	next.Options = opts
	next.Version++
	c.current = next
	c.mu.Unlock()

	c.broadcast()
}

// Subscribe returns a channel pinged after every publish. Callers must
// Unsubscribe when done.
func (c *Controller) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	c.listeners[ch] = struct{}{}
	c.mu.Unlock()
	c.metrics.Inc(metrics.StreamSubscribers)
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (c *Controller) Unsubscribe(ch chan struct{}) {
	c.mu.Lock()
	_, ok := c.listeners[ch]
	delete(c.listeners, ch)
	c.mu.Unlock()
	if !ok {
		return
	}
	close(ch)
	c.metrics.Dec(metrics.StreamSubscribers)
}

// broadcast pings every listener without blocking; a full channel already
// has a pending ping.
func (c *Controller) broadcast() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for ch := range c.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s Summary) clone() Summary {
	s.Groups = slices.Clone(s.Groups)
	if s.Groups == nil {
		s.Groups = []Group{}
	}
	return s
}
