package health

import (
	"strings"

	"scale-dashboard/internal/logs"
	"scale-dashboard/internal/metrics"
)

// logWindow is how many recent log entries are scanned.
const logWindow = 100

// Analyzer converts metrics and recent logs into a health report.
type Analyzer struct {
	metrics *metrics.Registry
	logger  *logs.Logger
	rules   []Rule
}

// NewAnalyzer creates a new analyzer with the default rules.
func NewAnalyzer(
	reg *metrics.Registry,
	logger *logs.Logger,
) *Analyzer {
	return &Analyzer{
		metrics: reg,
		logger:  logger,
		rules:   DefaultRules(),
	}
}

// Analyze evaluates metrics and logs and returns a health report.
func (a *Analyzer) Analyze() Report {
	snapshot := a.metrics.Snapshot()

	var (
		signals         = []string{}
		recommendations = []string{}
		status          = StatusOK
	)

	/* ---------- METRICS-BASED RULES ---------- */

	for _, rule := range a.rules {
		result := rule(snapshot)
		if !result.Triggered {
			continue
		}
		signals = append(signals, result.Signal)
		recommendations = append(recommendations, result.Recommendation)
		status = escalate(status, result.Severity)
	}

	/* ---------- LOG-BASED SIGNALS ---------- */

	requestFailures := 0
	panicCount := 0

	for _, entry := range a.logger.GetLast(logWindow) {
		if entry.Level == logs.WARN &&
			strings.Contains(entry.Message, "upstream request failed") {
			requestFailures++
		}
		if entry.Level == logs.ERROR &&
			strings.Contains(entry.Message, "panic") {
			panicCount++
		}
	}

	if requestFailures >= 3 {
		signals = append(signals,
			"Repeated Scale API request failures in logs",
		)
		recommendations = append(recommendations,
			"Inspect /admin/logs for the failing endpoint and status codes",
		)
		status = escalate(status, StatusDegraded)
	}

	if panicCount > 0 {
		signals = append(signals,
			"Handler panics detected in logs",
		)
		recommendations = append(recommendations,
			"Inspect the logged request and the payload that triggered it",
		)
		status = StatusCritical
	}

	/* ---------- SUMMARY ---------- */

	summary := "Dashboard is healthy"
	if status != StatusOK {
		summary = "Dashboard health issues detected"
	}

	return Report{
		OverallStatus:   status,
		Summary:         summary,
		Signals:         signals,
		Recommendations: recommendations,
	}
}
