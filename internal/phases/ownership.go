// File: internal/phases/ownership.go
package phases

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/connection"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/registry"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// OwnershipPhase transfers ownership of every ownable contract to the
// operations multisig. Contracts already owned by the multisig count
// as successes, so the phase is idempotent across runs.
type OwnershipPhase struct {
	registry *registry.Registry
	client   connection.Client
	multisig common.Address
	logger   *logrus.Entry
}

// NewOwnershipPhase creates a new ownership transfer phase
func NewOwnershipPhase(reg *registry.Registry, client connection.Client, multisig common.Address) *OwnershipPhase {
	return &OwnershipPhase{
		registry: reg,
		client:   client,
		multisig: multisig,
		logger:   utils.ComponentLogger("ownership_phase"),
	}
}

// Name returns the phase name
func (op *OwnershipPhase) Name() string {
	return models.PhaseOwnershipTransfer
}

// Execute transfers ownership contract by contract. Transfers run
// sequentially so the privileged signer never races its own nonce.
func (op *OwnershipPhase) Execute(ctx context.Context) models.PhaseResult {
	contracts := op.registry.WithCapability(models.CapabilityOwnable)
	result := models.PhaseResult{
		PhaseName:  op.Name(),
		TotalCount: len(contracts),
	}

	for _, record := range contracts {
		select {
		case <-ctx.Done():
			return CancelledResult(op.Name())
		default:
		}

		if err := op.transferOne(ctx, record); err != nil {
			op.logger.WithFields(logrus.Fields{
				"contract": record.Name,
				"error":    err,
			}).Warn("Ownership transfer failed")
			result.FailedItems = append(result.FailedItems, record.Name)
			continue
		}
		result.SucceededCount++
	}

	result.Completed = true
	return result
}

// transferOne moves one contract's ownership to the multisig unless it
// is already there
func (op *OwnershipPhase) transferOne(ctx context.Context, record models.ContractRecord) error {
	owner, err := op.currentOwner(ctx, record)
	if err != nil {
		return err
	}

	if owner == op.multisig {
		op.logger.WithField("contract", record.Name).Debug("Already owned by multisig")
		return nil
	}

	data := append(utils.MethodSelector("transferOwnership(address)"),
		common.LeftPadBytes(op.multisig.Bytes(), 32)...)

	txHash, err := op.client.Transact(ctx, record.Address, data)
	if err != nil {
		return err
	}

	op.logger.WithFields(logrus.Fields{
		"contract": record.Name,
		"multisig": op.multisig.Hex(),
		"tx_hash":  txHash,
	}).Info("Ownership transfer submitted")
	return nil
}

// currentOwner reads the contract's owner() view
func (op *OwnershipPhase) currentOwner(ctx context.Context, record models.ContractRecord) (common.Address, error) {
	raw, err := op.client.CallContract(ctx, record.Address, utils.MethodSelector("owner()"))
	if err != nil {
		return common.Address{}, err
	}
	if len(raw) < 32 {
		return common.Address{}, utils.NewAppError(utils.ErrCodeBlockchain,
			"Unexpected owner() return size", record.Name)
	}
	return common.BytesToAddress(raw[12:32]), nil
}

var _ Phase = (*OwnershipPhase)(nil)
