package models

import "time"

// OverallStatus is the aggregate verdict of a readiness run
type OverallStatus string

const (
	OverallSuccess OverallStatus = "success"
	OverallPartial OverallStatus = "partial"
	OverallFailed  OverallStatus = "failed"
)

// Phase names in their fixed execution order
const (
	PhaseVerification           = "verification"
	PhaseOwnershipTransfer      = "ownership_transfer"
	PhaseMonitoringActivation   = "monitoring_activation"
	PhaseEmergencyConfiguration = "emergency_configuration"
)

// PhaseResult is the normalized outcome of one orchestrated phase.
// Invariants: SucceededCount <= TotalCount, and len(FailedItems) ==
// TotalCount-SucceededCount unless the phase failed before counting
// (then Completed is false and both counts are zero).
type PhaseResult struct {
	PhaseName      string   `json:"phase_name"`
	Completed      bool     `json:"completed"`
	SucceededCount int      `json:"succeeded_count"`
	TotalCount     int      `json:"total_count"`
	FailedItems    []string `json:"failed_items,omitempty"`
}

// FullySucceeded reports whether the phase completed with every item
// succeeding
func (p PhaseResult) FullySucceeded() bool {
	return p.Completed && p.SucceededCount == p.TotalCount && len(p.FailedItems) == 0
}

// OperationReport is the write-once record of one orchestration run
type OperationReport struct {
	Timestamp       time.Time     `json:"timestamp"`
	Network         string        `json:"network"`
	PhaseResults    []PhaseResult `json:"phase_results"`
	OverallStatus   OverallStatus `json:"overall_status"`
	Recommendations []string      `json:"recommendations,omitempty"`
}
