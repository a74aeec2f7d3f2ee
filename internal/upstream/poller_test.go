package upstream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"scale-dashboard/internal/logs"
	"scale-dashboard/internal/metrics"
	"scale-dashboard/internal/nodes"
)

type fakeSource struct {
	mu    sync.Mutex
	nodes []nodes.Node
	err   error
	calls int
}

func (f *fakeSource) FetchNodes(context.Context) ([]nodes.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.nodes, f.err
}

func (f *fakeSource) set(list []nodes.Node, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes, f.err = list, err
}

func ready(title string) nodes.Node {
	return nodes.Node{State: &nodes.NodeState{Title: title}}
}

func TestPoller_RunOnce_Success(t *testing.T) {
	reg := metrics.NewRegistry()
	ctrl := nodes.NewController(reg, nodes.Options{Loading: true})
	src := &fakeSource{nodes: []nodes.Node{ready("Ready"), ready("Ready"), ready("Offline")}}

	p := NewPoller(src, ctrl, PollPolicy{Interval: time.Hour}, reg, logs.NewLogger(10, logs.DEBUG))
	p.runOnce(context.Background())

	s := ctrl.Snapshot()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, map[string]int{"Ready": 2, "Offline": 1}, s.Counts())
	assert.False(t, s.Options.Loading)
	assert.Equal(t, int64(1), reg.Get(metrics.NodePollsTotal))
}

func TestPoller_RunOnce_FailureKeepsLastSummary(t *testing.T) {
	reg := metrics.NewRegistry()
	logger := logs.NewLogger(10, logs.DEBUG)
	ctrl := nodes.NewController(reg, nodes.Options{})
	src := &fakeSource{nodes: []nodes.Node{ready("Ready")}}

	p := NewPoller(src, ctrl, PollPolicy{Interval: time.Hour}, reg, logger)
	p.runOnce(context.Background())

	src.set(nil, errors.New("connection refused"))
	p.runOnce(context.Background())

	assert.Equal(t, 1, ctrl.Snapshot().Total)
	assert.Equal(t, int64(1), reg.Get(metrics.NodePollFailuresTotal))

	last := logger.GetLast(1)
	assert.Equal(t, logs.WARN, last[0].Level)
	assert.Equal(t, "node poll failed", last[0].Message)
}

func TestPoller_LoadingUntilFirstSuccess(t *testing.T) {
	reg := metrics.NewRegistry()
	ctrl := nodes.NewController(reg, nodes.Options{})
	src := &fakeSource{err: errors.New("down")}

	p := NewPoller(src, ctrl, PollPolicy{Interval: 5 * time.Millisecond}, reg, logs.NewLogger(10, logs.DEBUG))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Start(ctx)

	assert.Eventually(t, func() bool {
		return reg.Get(metrics.NodePollFailuresTotal) >= 2
	}, time.Second, 5*time.Millisecond)
	assert.True(t, ctrl.Options().Loading)

	src.set([]nodes.Node{ready("Ready")}, nil)

	assert.Eventually(t, func() bool {
		s := ctrl.Snapshot()
		return !s.Options.Loading && s.Total == 1
	}, time.Second, 5*time.Millisecond)
}

func TestPoller_ContextCancellation(t *testing.T) {
	reg := metrics.NewRegistry()
	ctrl := nodes.NewController(reg, nodes.Options{})
	src := &fakeSource{}

	p := NewPoller(src, ctrl, PollPolicy{Interval: time.Millisecond}, reg, logs.NewLogger(10, logs.DEBUG))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NotPanics(t, func() {
		p.Start(ctx)
	})
	assert.Zero(t, src.calls)
}
