package models

import (
	"github.com/ethereum/go-ethereum/common"
)

// Capability names an operation a deployed contract's interface exposes
type Capability string

const (
	CapabilityPause    Capability = "pause"
	CapabilityWithdraw Capability = "withdraw"
	CapabilityOwnable  Capability = "ownable"
	CapabilityVerify   Capability = "verify"
)

// ContractRecord represents a deployed contract under management.
// Records are immutable once loaded from the registry.
type ContractRecord struct {
	Name         string         `json:"name"`
	Address      common.Address `json:"address"`
	Capabilities []Capability   `json:"capabilities,omitempty"`
}

// HasCapability reports whether the contract's interface exposes the
// given capability
func (c ContractRecord) HasCapability(cap Capability) bool {
	for _, have := range c.Capabilities {
		if have == cap {
			return true
		}
	}
	return false
}
