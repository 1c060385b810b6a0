package models

import "time"

// ActionKind is the kind of automated mitigation
type ActionKind string

const (
	ActionPause    ActionKind = "pause"
	ActionWithdraw ActionKind = "withdraw"
)

// ActionOutcome is the terminal outcome of a mitigation attempt
type ActionOutcome string

const (
	OutcomeSucceeded ActionOutcome = "succeeded"
	OutcomeFailed    ActionOutcome = "failed"
	OutcomeSkipped   ActionOutcome = "skipped"
)

// EmergencyAction records one attempted mitigation, success or failure.
// An action is never silently dropped.
type EmergencyAction struct {
	Target      ContractRecord `json:"target"`
	Kind        ActionKind     `json:"kind"`
	AttemptedAt time.Time      `json:"attempted_at"`
	Outcome     ActionOutcome  `json:"outcome"`
	Reason      string         `json:"reason,omitempty"`
	TxHash      string         `json:"tx_hash,omitempty"`
}
