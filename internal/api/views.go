package api

import (
	"k8s.io/utils/clock"

	"scale-dashboard/internal/jobs"
)

// JobView is a DetailRecord plus its accessor values, as served to the
// rendering layer.
type JobView struct {
	*jobs.DetailRecord
	Duration        string          `json:"duration"`
	StatusStyleKey  string          `json:"status_style_key"`
	LatestExecution *jobs.Execution `json:"latest_execution"`
	Degraded        bool            `json:"degraded,omitempty"`
}

// NewJobView evaluates the accessors of rec against clk.
func NewJobView(rec *jobs.DetailRecord, degraded bool, clk clock.PassiveClock) JobView {
	return JobView{
		DetailRecord:    rec,
		Duration:        rec.Duration(clk),
		StatusStyleKey:  rec.StatusStyleKey(),
		LatestExecution: rec.LatestExecution(),
		Degraded:        degraded,
	}
}
