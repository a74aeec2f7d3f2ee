package health

import "scale-dashboard/internal/metrics"

// RuleResult represents the outcome of a single rule.
type RuleResult struct {
	Triggered      bool
	Signal         string
	Recommendation string
	Severity       Status
}

// Rule evaluates a metrics snapshot.
type Rule func(snapshot map[string]int64) RuleResult

// threshold builds a rule that fires once key reaches atLeast.
func threshold(key metrics.MetricKey, atLeast int64, result RuleResult) Rule {
	return func(snapshot map[string]int64) RuleResult {
		if snapshot[string(key)] < atLeast {
			return RuleResult{}
		}
		result.Triggered = true
		return result
	}
}

// ---------- RULES ----------

// UpstreamUnhealthyRule fires while any Scale API endpoint is unhealthy.
var UpstreamUnhealthyRule = threshold(metrics.UpstreamUnhealthy, 1, RuleResult{
	Signal:         "Scale API is unhealthy",
	Recommendation: "Check that the Scale API is reachable and the configured token is valid",
	Severity:       StatusCritical,
})

// UpstreamRetryRule fires once requests to the Scale API needed retries.
var UpstreamRetryRule = threshold(metrics.UpstreamRetriesTotal, 1, RuleResult{
	Signal:         "Scale API requests are being retried",
	Recommendation: "Check Scale API latency or raise the upstream request timeout",
	Severity:       StatusDegraded,
})

// NodePollFailureRule fires after failed node polls.
var NodePollFailureRule = threshold(metrics.NodePollFailuresTotal, 1, RuleResult{
	Signal:         "Node polls are failing",
	Recommendation: "The node-health summary may be stale; check the nodes endpoint",
	Severity:       StatusDegraded,
})

// MalformedPayloadRule fires when job payloads had sections dropped.
var MalformedPayloadRule = threshold(metrics.JobsDegradedTotal, 1, RuleResult{
	Signal:         "Job payloads with unreadable sections",
	Recommendation: "Compare the Scale API version with the one the dashboard expects",
	Severity:       StatusDegraded,
})

// CacheErrorRule fires when the payload cache backend fails.
var CacheErrorRule = threshold(metrics.CacheErrorsTotal, 1, RuleResult{
	Signal:         "Payload cache errors",
	Recommendation: "Check the Redis connection or switch the cache backend to memory",
	Severity:       StatusDegraded,
})

// DefaultRules is the rule set used by NewAnalyzer.
func DefaultRules() []Rule {
	return []Rule{
		UpstreamUnhealthyRule,
		UpstreamRetryRule,
		NodePollFailureRule,
		MalformedPayloadRule,
		CacheErrorRule,
	}
}
