package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"k8s.io/utils/clock"

	"scale-dashboard/internal/cache"
	"scale-dashboard/internal/health"
	"scale-dashboard/internal/jobs"
	"scale-dashboard/internal/logs"
	"scale-dashboard/internal/metrics"
	"scale-dashboard/internal/nodes"
	"scale-dashboard/internal/upstream"
)

const maxBody = 16 << 20

// JobSource fetches raw job-detail documents.
type JobSource interface {
	FetchJob(ctx context.Context, id int64) ([]byte, error)
}

// Deps are the collaborators of Handler.
type Deps struct {
	Builder  *jobs.DetailBuilder
	Jobs     JobSource
	Cache    *cache.ReadThrough
	Nodes    *nodes.Controller
	Tracker  *upstream.Tracker
	Metrics  *metrics.Registry
	Logger   *logs.Logger
	Clock    clock.PassiveClock
	LogLimit int
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	builder  *jobs.DetailBuilder
	jobs     JobSource
	cache    *cache.ReadThrough
	nodes    *nodes.Controller
	tracker  *upstream.Tracker
	metrics  *metrics.Registry
	logger   *logs.Logger
	analyzer *health.Analyzer
	clock    clock.PassiveClock
	logLimit int
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	if d.Clock == nil {
		d.Clock = clock.RealClock{}
	}
	if d.LogLimit <= 0 {
		d.LogLimit = 100
	}
	return &Handler{
		builder:  d.Builder,
		jobs:     d.Jobs,
		cache:    d.Cache,
		nodes:    d.Nodes,
		tracker:  d.Tracker,
		metrics:  d.Metrics,
		logger:   d.Logger,
		analyzer: health.NewAnalyzer(d.Metrics, d.Logger),
		clock:    d.Clock,
		logLimit: d.LogLimit,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) view(p *jobs.Payload) JobView {
	rec := h.builder.BuildOne(p)
	degraded := jobs.Degraded(p, rec)

	h.metrics.Inc(metrics.JobsBuiltTotal)
	if degraded {
		h.metrics.Inc(metrics.JobsDegradedTotal)
		h.logger.Warn("job payload partially unreadable", "job_id", rec.ID)
	}
	return NewJobView(rec, degraded, h.clock)
}

/* ---------------- GET /api/jobs/{id} ---------------- */

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}

	fetch := func(ctx context.Context) ([]byte, error) {
		return h.jobs.FetchJob(ctx, id)
	}
	body, hit, err := h.cache.Get(r.Context(), "job:"+strconv.FormatInt(id, 10), fetch)
	switch {
	case errors.Is(err, upstream.ErrNotFound):
		h.metrics.Inc(metrics.JobsNotFoundTotal)
		http.Error(w, "job not found", http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error("job fetch failed", "job_id", id, "error", err)
		http.Error(w, "scale api unavailable", http.StatusBadGateway)
		return
	}

	payload, err := jobs.Decode(body)
	if err != nil {
		h.logger.Error("job payload unreadable", "job_id", id, "error", err)
		http.Error(w, "scale api returned an unreadable job", http.StatusBadGateway)
		return
	}

	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, http.StatusOK, h.view(payload))
}

/* ---------------- POST /api/jobs/build ---------------- */

func (h *Handler) BuildJob(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	payload, err := jobs.Decode(body)
	if err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.view(payload))
}

/* ---------------- POST /api/jobs/build-many ---------------- */

func (h *Handler) BuildJobs(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	payloads, err := jobs.DecodeList(body)
	if err != nil {
		http.Error(w, "body must be a json array", http.StatusBadRequest)
		return
	}

	views := make([]JobView, 0, len(payloads))
	for _, p := range payloads {
		if p == nil {
			continue
		}
		views = append(views, h.view(p))
	}
	writeJSON(w, http.StatusOK, views)
}

/* ---------------- GET /api/nodes/health ---------------- */

func (h *Handler) GetNodeHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.nodes.Snapshot())
}

/* ---------------- PUT /api/nodes ---------------- */

func (h *Handler) PutNodes(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	list, err := upstream.DecodeNodes(body)
	if err != nil {
		http.Error(w, "invalid node list", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.nodes.Observe(list))
}

/* ---------------- GET /metrics ---------------- */

func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}

/* ---------------- GET /health ---------------- */

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.analyzer.Analyze())
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

/* ---------------- GET /admin/logs ---------------- */

func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	n := 50
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "n must be a non-negative integer", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	if n > h.logLimit {
		n = h.logLimit
	}
	writeJSON(w, http.StatusOK, h.logger.GetLast(n))
}

/* ---------------- GET /admin/upstream ---------------- */

func (h *Handler) GetUpstream(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Endpoints())
}
