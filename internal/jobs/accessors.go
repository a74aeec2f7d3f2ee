package jobs

import (
	"strings"
	"time"

	"k8s.io/utils/clock"

	"scale-dashboard/internal/timefmt"
)

// Elapsed is the time between Started and Ended, or until clk's current
// time while the job is still running.
func (r *DetailRecord) Elapsed(clk clock.PassiveClock) (time.Duration, bool) {
	if r == nil {
		return 0, false
	}
	return timefmt.Between(r.Started, endOrNow(r.Ended), clk)
}

// Duration renders Elapsed for display. It is empty when the job has not
// started or the start time is unreadable.
func (r *DetailRecord) Duration(clk clock.PassiveClock) string {
	d, ok := r.Elapsed(clk)
	if !ok {
		return ""
	}
	return timefmt.HumanizeDuration(d)
}

// LatestExecution returns the most recent execution attempt, or nil when
// the job has never executed.
func (r *DetailRecord) LatestExecution() *Execution {
	if r == nil || r.NumExes == nil || *r.NumExes <= 0 || len(r.JobExes) == 0 {
		return nil
	}
	return &r.JobExes[0]
}

// StatusStyleKey is the lower-cased status used to pick a style class.
func (r *DetailRecord) StatusStyleKey() string {
	if r == nil {
		return ""
	}
	return strings.ToLower(r.Status)
}

// Duration is the run time of a single execution, measured from Started.
func (e *Execution) Duration(clk clock.PassiveClock) string {
	if e == nil {
		return ""
	}
	d, ok := timefmt.Between(e.Started, endOrNow(e.Ended), clk)
	if !ok {
		return ""
	}
	return timefmt.HumanizeDuration(d)
}

func endOrNow(ended string) string {
	if ended == "" {
		return timefmt.Now
	}
	return ended
}
