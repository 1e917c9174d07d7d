package dag

import (
	"time"

	"github.com/swingdesk/swingdesk/agent"
	"github.com/swingdesk/swingdesk/errors"
)

// OverallStatus classifies a whole execution.
type OverallStatus string

const (
	// StatusSuccess means every unit succeeded.
	StatusSuccess OverallStatus = "success"
	// StatusPartial means at least one unit succeeded despite failures/skips.
	StatusPartial OverallStatus = "partial"
	// StatusFailure means no unit succeeded.
	StatusFailure OverallStatus = "failure"
)

// UnitStatus is the terminal status of one node in a run.
type UnitStatus string

const (
	UnitSucceeded UnitStatus = "succeeded"
	UnitFailed    UnitStatus = "failed"
	UnitSkipped   UnitStatus = "skipped"
)

// UnitResult records one node's outcome within a run.
type UnitResult struct {
	Node      string           `json:"node"`
	Status    UnitStatus       `json:"status"`
	Output    agent.Output     `json:"output,omitempty"`
	ErrorKind errors.ErrorCode `json:"error_kind,omitempty"`
	Error     string           `json:"error,omitempty"`
	// SkippedOn names the failed producer that caused a skip.
	SkippedOn string        `json:"skipped_on,omitempty"`
	Wave      int           `json:"wave"`
	CacheHit  bool          `json:"cache_hit"`
	Duration  time.Duration `json:"duration_ms"`
}

// ExecutionResult is the per-run record the engine returns and the history
// retains.
type ExecutionResult struct {
	ID         string                `json:"execution_id"`
	Status     OverallStatus         `json:"status"`
	Units      map[string]UnitResult `json:"units"`
	Waves      [][]string            `json:"waves"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Duration   time.Duration         `json:"duration_ms"`
}

// computeStatus derives the overall status from per-unit outcomes.
func computeStatus(units map[string]UnitResult) OverallStatus {
	succeeded, degraded := 0, 0
	for _, u := range units {
		if u.Status == UnitSucceeded {
			succeeded++
		} else {
			degraded++
		}
	}
	switch {
	case degraded == 0:
		return StatusSuccess
	case succeeded > 0:
		return StatusPartial
	default:
		return StatusFailure
	}
}
