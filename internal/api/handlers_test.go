package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"scale-dashboard/internal/cache"
	"scale-dashboard/internal/jobs"
	"scale-dashboard/internal/logs"
	"scale-dashboard/internal/metrics"
	"scale-dashboard/internal/nodes"
	"scale-dashboard/internal/upstream"
)

var now = time.Date(2015, 9, 10, 16, 0, 0, 0, time.UTC)

type fakeJobs struct {
	docs  map[int64]string
	calls atomic.Int32
}

func (f *fakeJobs) FetchJob(_ context.Context, id int64) ([]byte, error) {
	f.calls.Add(1)
	doc, ok := f.docs[id]
	if !ok {
		return nil, upstream.ErrNotFound
	}
	return []byte(doc), nil
}

type testEnv struct {
	server  *httptest.Server
	jobs    *fakeJobs
	nodes   *nodes.Controller
	metrics *metrics.Registry
	logger  *logs.Logger
}

func setUpTestServer(t *testing.T) *testEnv {
	t.Helper()
	clk := testingclock.NewFakePassiveClock(now)
	reg := metrics.NewRegistry()
	logger := logs.NewLogger(50, logs.DEBUG)
	src := &fakeJobs{docs: map[int64]string{
		3: `{"id": 3, "status": "RUNNING", "num_exes": 1, "started": "2015-09-10T15:00:00Z",
		     "job_exes": [{"id": 7, "status": "RUNNING"}], "data": null}`,
		4: `{"id": 4, "status": "FAILED", "data": "garbage"}`,
		5: `[1, 2]`,
	}}
	ctrl := nodes.NewController(reg, nodes.Options{NodeType: "Nodes"})

	h := NewHandler(Deps{
		Builder: jobs.NewDetailBuilder(nil),
		Jobs:    src,
		Cache:   cache.NewReadThrough(cache.NewMemoryStore(clk, reg), clk, time.Minute, reg, logger),
		Nodes:   ctrl,
		Tracker: upstream.NewTracker(upstream.DefaultConfig().Health, reg),
		Metrics: reg,
		Logger:  logger,
		Clock:   clk,
	})

	server := httptest.NewServer(NewRouter(h, logger))
	t.Cleanup(server.Close)
	return &testEnv{server: server, jobs: src, nodes: ctrl, metrics: reg, logger: logger}
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

/* ---------------- GET /api/jobs/{id} ---------------- */

func TestGetJob(t *testing.T) {
	env := setUpTestServer(t)

	t.Run("ValidJob", func(t *testing.T) {
		resp, err := http.Get(env.server.URL + "/api/jobs/3")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))

		view := decodeBody[map[string]any](t, resp)
		assert.EqualValues(t, 3, view["id"])
		assert.Equal(t, "running", view["status_style_key"])
		assert.Equal(t, "1h", view["duration"])
		assert.Equal(t, "2015-09-10 15:00:00Z", view["started_formatted"])
		assert.Nil(t, view["data"])
		assert.EqualValues(t, 7, view["latest_execution"].(map[string]any)["id"])
		assert.NotContains(t, view, "degraded")
	})

	t.Run("CachedOnSecondRead", func(t *testing.T) {
		resp, err := http.Get(env.server.URL + "/api/jobs/3")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
		assert.Equal(t, int32(1), env.jobs.calls.Load())
	})

	t.Run("DegradedPayload", func(t *testing.T) {
		resp, err := http.Get(env.server.URL + "/api/jobs/4")
		require.NoError(t, err)

		view := decodeBody[map[string]any](t, resp)
		assert.Equal(t, true, view["degraded"])
		assert.Nil(t, view["data"])
		assert.Equal(t, int64(1), env.metrics.Get(metrics.JobsDegradedTotal))
	})

	t.Run("UnreadableDocument", func(t *testing.T) {
		resp, err := http.Get(env.server.URL + "/api/jobs/5")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})

	t.Run("NotFound", func(t *testing.T) {
		resp, err := http.Get(env.server.URL + "/api/jobs/99")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, int64(1), env.metrics.Get(metrics.JobsNotFoundTotal))
	})

	t.Run("InvalidID", func(t *testing.T) {
		resp, err := http.Get(env.server.URL + "/api/jobs/abc")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

/* ---------------- POST /api/jobs/build ---------------- */

func TestBuildJob(t *testing.T) {
	env := setUpTestServer(t)
	url := env.server.URL + "/api/jobs/build"

	t.Run("ValidPayload", func(t *testing.T) {
		body := `{"id": 8, "status": "COMPLETED", "num_exes": 0, "job_exes": [{"id": 1}],
		          "recipes": [{"id": 1, "created": "2015-01-01T00:00:00Z"}, {"id": 2, "created": "2015-02-01T00:00:00Z"}]}`
		resp, err := http.Post(url, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		view := decodeBody[map[string]any](t, resp)
		assert.Equal(t, "completed", view["status_style_key"])
		assert.Nil(t, view["latest_execution"])
		recipes := view["recipes"].([]any)
		assert.EqualValues(t, 2, recipes[0].(map[string]any)["id"])
	})

	t.Run("NullPayload", func(t *testing.T) {
		resp, err := http.Post(url, "application/json", strings.NewReader(`null`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		view := decodeBody[map[string]any](t, resp)
		assert.Nil(t, view["id"])
		assert.Nil(t, view["data"])
		assert.Equal(t, "", view["duration"])
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		resp, err := http.Post(url, "application/json", strings.NewReader(`{bad-json`))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

/* ---------------- POST /api/jobs/build-many ---------------- */

func TestBuildJobs(t *testing.T) {
	env := setUpTestServer(t)
	url := env.server.URL + "/api/jobs/build-many"

	resp, err := http.Post(url, "application/json", strings.NewReader(`[{"id": 1}, null, {"id": 2}]`))
	require.NoError(t, err)
	views := decodeBody[[]map[string]any](t, resp)
	require.Len(t, views, 2)
	assert.EqualValues(t, 1, views[0]["id"])
	assert.EqualValues(t, 2, views[1]["id"])

	resp, err = http.Post(url, "application/json", strings.NewReader(`{"id": 1}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

/* ---------------- /api/nodes ---------------- */

func TestNodes(t *testing.T) {
	env := setUpTestServer(t)

	t.Run("EmptyBeforeObserve", func(t *testing.T) {
		resp, err := http.Get(env.server.URL + "/api/nodes/health")
		require.NoError(t, err)
		s := decodeBody[nodes.Summary](t, resp)
		assert.Zero(t, s.Total)
		assert.Equal(t, "Nodes", s.Options.NodeType)
	})

	t.Run("PutNodes", func(t *testing.T) {
		body := `[{"state": {"title": "RUNNING"}}, {"state": {"title": "RUNNING"}}, {"state": {"title": "DOWN"}}]`
		req, _ := http.NewRequest(http.MethodPut, env.server.URL+"/api/nodes", bytes.NewBufferString(body))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		s := decodeBody[nodes.Summary](t, resp)
		assert.Equal(t, 3, s.Total)
		assert.Equal(t, map[string]int{"RUNNING": 2, "DOWN": 1}, s.Counts())
	})

	t.Run("PutNull", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, env.server.URL+"/api/nodes", bytes.NewBufferString(`null`))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		s := decodeBody[nodes.Summary](t, resp)
		assert.Zero(t, s.Total)
		assert.Empty(t, s.Groups)
	})

	t.Run("PutInvalid", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, env.server.URL+"/api/nodes", bytes.NewBufferString(`{bad`))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestStreamNodeHealth(t *testing.T) {
	env := setUpTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, env.server.URL+"/api/nodes/health/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := make(chan string, 64)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	waitFor := func(substr string) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed")
				if strings.Contains(line, substr) {
					return
				}
			case <-deadline:
				t.Fatalf("no event containing %q", substr)
			}
		}
	}

	waitFor(`"nodeHealth"`)

	require.Eventually(t, func() bool {
		return env.metrics.Get(metrics.StreamSubscribers) == 1
	}, time.Second, 5*time.Millisecond)

	env.nodes.Observe([]nodes.Node{{State: &nodes.NodeState{Title: "DOWN"}}})
	waitFor(`"DOWN"`)
}

/* ---------------- Observability ---------------- */

func TestGetMetrics(t *testing.T) {
	env := setUpTestServer(t)

	resp, err := http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	data := decodeBody[map[string]int64](t, resp)
	assert.NotNil(t, data)
}

func TestGetHealth(t *testing.T) {
	env := setUpTestServer(t)

	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	report := decodeBody[map[string]any](t, resp)
	assert.Contains(t, report, "overall_status")
	assert.Contains(t, report, "summary")
	assert.Contains(t, report, "signals")
	assert.Contains(t, report, "recommendations")

	resp, err = http.Get(env.server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetLogs(t *testing.T) {
	env := setUpTestServer(t)
	env.logger.Info("first")
	env.logger.Info("second")

	resp, err := http.Get(env.server.URL + "/admin/logs?n=1")
	require.NoError(t, err)
	entries := decodeBody[[]logs.Entry](t, resp)
	require.Len(t, entries, 1)
	assert.Equal(t, "second", entries[0].Message)

	resp, err = http.Get(env.server.URL + "/admin/logs?n=-3")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetUpstream(t *testing.T) {
	env := setUpTestServer(t)

	resp, err := http.Get(env.server.URL + "/admin/upstream")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	eps := decodeBody[[]upstream.Endpoint](t, resp)
	assert.Empty(t, eps)
}

/* ---------------- Route validation ---------------- */

func TestRouteValidation(t *testing.T) {
	env := setUpTestServer(t)

	req, _ := http.NewRequest(http.MethodDelete, env.server.URL+"/api/nodes/health", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(env.server.URL + "/unknown")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
