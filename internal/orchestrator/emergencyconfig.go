// File: internal/orchestrator/emergencyconfig.go
package orchestrator

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/alert"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/connection"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/phases"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/registry"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// EmergencyConfigurationPhase dry-runs the emergency response wiring.
// No mitigation transaction is sent: each contract that declares an
// emergency capability passes when the privileged signer is available
// and its target interface answers a read probe.
type EmergencyConfigurationPhase struct {
	registry   *registry.Registry
	client     connection.Client
	dispatcher *alert.Dispatcher
	logger     *logrus.Entry
}

// NewEmergencyConfigurationPhase creates a new emergency configuration
// phase
func NewEmergencyConfigurationPhase(reg *registry.Registry, client connection.Client, dispatcher *alert.Dispatcher) *EmergencyConfigurationPhase {
	return &EmergencyConfigurationPhase{
		registry:   reg,
		client:     client,
		dispatcher: dispatcher,
		logger:     utils.ComponentLogger("emergency_configuration"),
	}
}

// Name returns the phase name
func (ep *EmergencyConfigurationPhase) Name() string {
	return models.PhaseEmergencyConfiguration
}

// Execute validates emergency wiring for every contract that declares a
// mitigable capability
func (ep *EmergencyConfigurationPhase) Execute(ctx context.Context) models.PhaseResult {
	targets := ep.targets()
	result := models.PhaseResult{
		PhaseName:  ep.Name(),
		TotalCount: len(targets),
	}

	signerReady := ep.client.HasSigner()
	if !signerReady && len(targets) > 0 {
		ep.dispatcher.Dispatch(ctx, models.AlertEvent{
			Severity: models.SeverityWarning,
			Subject:  "emergency_configuration",
			Message:  "No privileged signer configured; automated mitigations are disabled",
		})
	}

	for _, record := range targets {
		select {
		case <-ctx.Done():
			return phases.CancelledResult(ep.Name())
		default:
		}

		if !signerReady {
			result.FailedItems = append(result.FailedItems, record.Name)
			continue
		}

		if err := ep.probe(ctx, record); err != nil {
			ep.logger.WithFields(logrus.Fields{
				"contract": record.Name,
				"error":    err,
			}).Warn("Emergency wiring probe failed")
			result.FailedItems = append(result.FailedItems, record.Name)
			continue
		}
		result.SucceededCount++
	}

	result.Completed = true
	ep.logger.WithFields(logrus.Fields{
		"targets":      result.TotalCount,
		"ready":        result.SucceededCount,
		"signer_ready": signerReady,
	}).Info("Emergency configuration validated")
	return result
}

// targets returns every contract with at least one mitigable capability
func (ep *EmergencyConfigurationPhase) targets() []models.ContractRecord {
	var targets []models.ContractRecord
	for _, record := range ep.registry.All() {
		if record.HasCapability(models.CapabilityPause) || record.HasCapability(models.CapabilityWithdraw) {
			targets = append(targets, record)
		}
	}
	return targets
}

// probe issues a read-only call against the contract's emergency
// interface without mutating state
func (ep *EmergencyConfigurationPhase) probe(ctx context.Context, record models.ContractRecord) error {
	var selector []byte
	if record.HasCapability(models.CapabilityPause) {
		selector = utils.MethodSelector("paused()")
	} else {
		selector = utils.MethodSelector("owner()")
	}

	_, err := ep.client.CallContract(ctx, record.Address, selector)
	return err
}

var _ phases.Phase = (*EmergencyConfigurationPhase)(nil)
