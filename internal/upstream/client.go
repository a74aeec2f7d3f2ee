package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"scale-dashboard/internal/logs"
	"scale-dashboard/internal/metrics"
	"scale-dashboard/internal/nodes"
)

// Endpoint names used with the Tracker.
const (
	JobsEndpoint  = "jobs"
	NodesEndpoint = "nodes"
)

// ErrNotFound is returned when the Scale API has no such resource.
var ErrNotFound = errors.New("upstream: not found")

// errFetchBudget is the cause recorded when a shared fetch runs out of time.
var errFetchBudget = errors.New("upstream: fetch budget exceeded")

// maxBody caps how much of a response is read.
const maxBody = 16 << 20

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream: %s returned %d", e.URL, e.Code)
}

// Client fetches job and node documents from the Scale REST API.
type Client struct {
	cfg     Config
	http    *http.Client
	tracker *Tracker
	metrics *metrics.Registry
	logger  *logs.Logger
	group   singleflight.Group
}

// NewClient creates a new Scale API client
func NewClient(
	cfg Config,
	tracker *Tracker,
	reg *metrics.Registry,
	logger *logs.Logger,
) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout.Request},
		tracker: tracker,
		metrics: reg,
		logger:  logger,
	}
}

// FetchJob returns the raw job-detail document for id.
// Concurrent fetches of the same job share one request.
func (c *Client) FetchJob(ctx context.Context, id int64) ([]byte, error) {
	key := strconv.FormatInt(id, 10)
	path := strings.ReplaceAll(c.cfg.JobPath, "{id}", key)

	body, err := c.fetch(ctx, "job:"+key, JobsEndpoint, path)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(body), nil
}

// FetchNodes returns the cluster's nodes. The document may be a bare array
// or an object carrying the list under "nodes" or "results".
func (c *Client) FetchNodes(ctx context.Context) ([]nodes.Node, error) {
	body, err := c.fetch(ctx, "nodes", NodesEndpoint, c.cfg.NodesPath)
	if err != nil {
		return nil, err
	}
	return DecodeNodes(body)
}

// fetch joins the in-flight request for key or starts one. The shared
// request ignores the caller's cancellation and is bounded by budget; each
// caller stops waiting when its own ctx is done.
func (c *Client) fetch(ctx context.Context, key, endpoint, path string) ([]byte, error) {
	results := c.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeoutCause(context.WithoutCancel(ctx), c.budget(), errFetchBudget)
		defer cancel()
		return c.get(shared, endpoint, path)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// budget is the longest a shared fetch may run: every attempt at the
// request timeout plus a capped backoff before each retry.
func (c *Client) budget() time.Duration {
	attempts := time.Duration(c.cfg.Retry.MaxRetries + 1)
	request := c.cfg.Timeout.Request
	if request <= 0 {
		request = DefaultConfig().Timeout.Request
	}
	backoff := c.cfg.Retry.MaxBackoff
	if backoff <= 0 {
		backoff = request
	}
	return attempts * (request + backoff)
}

// DecodeNodes reads a node list document.
func DecodeNodes(data []byte) ([]nodes.Node, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var list []nodes.Node
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode node list: %w", err)
		}
		return list, nil
	}

	var wrapped struct {
		Nodes   []nodes.Node `json:"nodes"`
		Results []nodes.Node `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decode node list: %w", err)
	}
	if wrapped.Nodes != nil {
		return wrapped.Nodes, nil
	}
	return wrapped.Results, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path

	var body []byte
	err := Retry(ctx, c.cfg.Retry, func(attempt int) error {
		if attempt > 0 {
			c.metrics.Inc(metrics.UpstreamRetriesTotal)
		}
		c.metrics.Inc(metrics.UpstreamRequestsTotal)

		b, err := c.do(ctx, url)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("upstream request failed",
					"endpoint", endpoint, "url", url, "attempt", attempt, "error", err)
			}
			return err
		}
		body = b
		return nil
	})

	switch {
	case err == nil:
		c.tracker.MarkSuccess(endpoint)
		return body, nil
	case errors.Is(err, ErrNotFound):
		// a 404 still means the API is up
		c.tracker.MarkSuccess(endpoint)
		return nil, err
	case ctx.Err() != nil && !errors.Is(context.Cause(ctx), errFetchBudget):
		// cancelled by the caller, not answered by the API
		c.logger.Debug("upstream request abandoned", "endpoint", endpoint, "url", url, "error", err)
		return nil, err
	default:
		c.tracker.MarkFailure(endpoint)
		return nil, err
	}
}

func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Token "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, Permanent(fmt.Errorf("%w: %s", ErrNotFound, url))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, Permanent(&StatusError{Code: resp.StatusCode, URL: url})
	case resp.StatusCode >= 300:
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}
