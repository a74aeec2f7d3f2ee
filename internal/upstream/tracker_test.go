package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scale-dashboard/internal/metrics"
)

func TestTracker_UnknownEndpointIsHealthy(t *testing.T) {
	tr := NewTracker(DefaultConfig().Health, metrics.NewRegistry())

	assert.True(t, tr.IsHealthy(JobsEndpoint))
	assert.Empty(t, tr.Endpoints())
}

func TestTracker_FailureThreshold(t *testing.T) {
	reg := metrics.NewRegistry()
	tr := NewTracker(HealthPolicy{FailureThreshold: 2, SuccessThreshold: 1}, reg)

	tr.MarkFailure(NodesEndpoint)
	assert.True(t, tr.IsHealthy(NodesEndpoint))

	tr.MarkFailure(NodesEndpoint)
	assert.False(t, tr.IsHealthy(NodesEndpoint))

	assert.Equal(t, int64(2), reg.Get(metrics.UpstreamFailuresTotal))
	assert.Equal(t, int64(1), reg.Get(metrics.UpstreamUnhealthy))
}

func TestTracker_Recovery(t *testing.T) {
	reg := metrics.NewRegistry()
	tr := NewTracker(HealthPolicy{FailureThreshold: 1, SuccessThreshold: 2}, reg)

	tr.MarkFailure(JobsEndpoint)
	assert.False(t, tr.IsHealthy(JobsEndpoint))

	tr.MarkSuccess(JobsEndpoint)
	assert.False(t, tr.IsHealthy(JobsEndpoint))

	tr.MarkSuccess(JobsEndpoint)
	assert.True(t, tr.IsHealthy(JobsEndpoint))
	assert.Zero(t, reg.Get(metrics.UpstreamUnhealthy))
}

func TestTracker_Endpoints(t *testing.T) {
	tr := NewTracker(HealthPolicy{FailureThreshold: 1, SuccessThreshold: 1}, metrics.NewRegistry())

	tr.MarkSuccess(NodesEndpoint)
	tr.MarkFailure(JobsEndpoint)

	eps := tr.Endpoints()
	require.Len(t, eps, 2)
	assert.Equal(t, JobsEndpoint, eps[0].Name)
	assert.Equal(t, "unhealthy", eps[0].Status)
	assert.Equal(t, NodesEndpoint, eps[1].Name)
	assert.Equal(t, "healthy", eps[1].Status)
}
