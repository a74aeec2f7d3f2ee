package health

// Status represents overall service health.
type Status string

const (
	StatusOK       Status = "OK"
	StatusDegraded Status = "DEGRADED"
	StatusCritical Status = "CRITICAL"
)

// Report is the health summary served at /health.
type Report struct {
	OverallStatus   Status   `json:"overall_status"`
	Summary         string   `json:"summary"`
	Signals         []string `json:"signals"`
	Recommendations []string `json:"recommendations"`
}

// escalate returns the more severe of current and next.
func escalate(current, next Status) Status {
	switch {
	case current == StatusCritical || next == StatusCritical:
		return StatusCritical
	case current == StatusDegraded || next == StatusDegraded:
		return StatusDegraded
	default:
		return StatusOK
	}
}
