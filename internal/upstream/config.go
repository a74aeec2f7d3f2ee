package upstream

import "time"

// RetryPolicy controls retry behavior for upstream requests
type RetryPolicy struct {
	MaxRetries  int           // retries after the first attempt
	BaseBackoff time.Duration // first backoff
	MaxBackoff  time.Duration // upper bound on a single backoff
	JitterFn    func(time.Duration) time.Duration
}

// TimeoutPolicy bounds a single HTTP request
type TimeoutPolicy struct {
	Request time.Duration
}

// HealthPolicy defines when an endpoint is considered unhealthy or recovered
type HealthPolicy struct {
	FailureThreshold int // consecutive failures to mark unhealthy
	SuccessThreshold int // consecutive successes to mark healthy again
}

// PollPolicy controls the node poller
type PollPolicy struct {
	Interval time.Duration
}

// Config describes how to reach the Scale REST API.
type Config struct {
	BaseURL   string // including the API version prefix, e.g. http://scale/api/v6
	JobPath   string // "{id}" is replaced with the job id
	NodesPath string
	Token     string

	Retry   RetryPolicy
	Timeout TimeoutPolicy
	Health  HealthPolicy
	Poll    PollPolicy
}

func DefaultConfig() Config {
	return Config{
		BaseURL:   "http://localhost:8000/api/v6",
		JobPath:   "/jobs/{id}/",
		NodesPath: "/nodes/",
		Retry: RetryPolicy{
			MaxRetries:  3,
			BaseBackoff: 100 * time.Millisecond,
			MaxBackoff:  2 * time.Second,
			JitterFn:    func(d time.Duration) time.Duration { return d / 2 }, // 50%
		},
		Timeout: TimeoutPolicy{
			Request: 5 * time.Second,
		},
		Health: HealthPolicy{
			FailureThreshold: 3,
			SuccessThreshold: 2,
		},
		Poll: PollPolicy{
			Interval: 15 * time.Second,
		},
	}
}
