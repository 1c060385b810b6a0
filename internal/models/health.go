package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// HealthStatus classifies a per-contract health snapshot
type HealthStatus string

const (
	HealthStatusHealthy  HealthStatus = "healthy"
	HealthStatusWarning  HealthStatus = "warning"
	HealthStatusCritical HealthStatus = "critical"
)

// FeeStatus classifies the network-wide fee level
type FeeStatus string

const (
	FeeStatusNormal   FeeStatus = "normal"
	FeeStatusHigh     FeeStatus = "high"
	FeeStatusCritical FeeStatus = "critical"
)

// HealthMetric is one poll-cycle snapshot of a contract's on-chain state.
// A new snapshot supersedes the prior one for the same contract.
type HealthMetric struct {
	ContractName   string         `json:"contract_name"`
	Address        common.Address `json:"address"`
	NativeBalance  *big.Int       `json:"native_balance"`
	ActivityCount  uint64         `json:"activity_count"`
	LastObservedAt time.Time      `json:"last_observed_at"`
	Status         HealthStatus   `json:"status"`
	Error          string         `json:"error,omitempty"`
}

// FeeLevel is the network-scoped gas price snapshot for one poll cycle
type FeeLevel struct {
	FeeValue   *big.Int  `json:"fee_value"`
	Status     FeeStatus `json:"status"`
	ObservedAt time.Time `json:"observed_at"`
}
