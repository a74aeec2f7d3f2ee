package upstream

import (
	"context"
	"time"

	"scale-dashboard/internal/logs"
	"scale-dashboard/internal/metrics"
	"scale-dashboard/internal/nodes"
)

// NodeSource yields the current node list.
type NodeSource interface {
	FetchNodes(ctx context.Context) ([]nodes.Node, error)
}

// Poller periodically feeds the node list into a summary controller
type Poller struct {
	source     NodeSource
	controller *nodes.Controller
	interval   time.Duration
	metrics    *metrics.Registry
	logger     *logs.Logger
	synced     bool
}

// NewPoller creates a new node poller
func NewPoller(
	source NodeSource,
	controller *nodes.Controller,
	policy PollPolicy,
	reg *metrics.Registry,
	logger *logs.Logger,
) *Poller {
	return &Poller{
		source:     source,
		controller: controller,
		interval:   policy.Interval,
		metrics:    reg,
		logger:     logger,
	}
}

// Start polls immediately and then on every tick.
// The controller reports loading until the first successful poll.
// Stops when ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	p.controller.SetLoading(true)
	p.runOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.runOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	p.metrics.Inc(metrics.NodePollsTotal)

	list, err := p.source.FetchNodes(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.metrics.Inc(metrics.NodePollFailuresTotal)
		p.logger.Warn("node poll failed", "error", err)
		return
	}

	summary := p.controller.Observe(list)
	if !p.synced {
		p.synced = true
		p.controller.SetLoading(false)
	}
	p.logger.Debug("node summary published", "total", summary.Total, "groups", len(summary.Groups))
}
