// File: internal/emergency/controller.go
package emergency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/alert"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/connection"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/metrics"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/registry"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/storage"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// ControllerConfig holds emergency response configuration
type ControllerConfig struct {
	MaxAutomatedActions int           `json:"max_automated_actions"`
	RetryBackoff        time.Duration `json:"retry_backoff"`
	ActionTimeout       time.Duration `json:"action_timeout"`
}

// Controller executes bounded, automatable mitigation actions against
// contracts that expose the matching capability. Mutating calls are
// serialized to avoid nonce races against the shared privileged signer.
type Controller struct {
	client     connection.Client
	registry   *registry.Registry
	dispatcher *alert.Dispatcher
	storage    storage.Storage
	config     *ControllerConfig
	logger     *logrus.Logger

	// txMu serializes all state-mutating ledger calls
	txMu sync.Mutex

	mu          sync.Mutex
	actionsUsed int
	actionLog   []models.EmergencyAction

	metricsManager *metrics.Manager
}

// NewController creates a new emergency response controller
func NewController(
	client connection.Client,
	reg *registry.Registry,
	dispatcher *alert.Dispatcher,
	store storage.Storage,
	config *ControllerConfig,
) *Controller {
	return &Controller{
		client:     client,
		registry:   reg,
		dispatcher: dispatcher,
		storage:    store,
		config:     config,
		logger:     utils.GetLogger(),
	}
}

// SetMetricsManager wires the optional metrics manager
func (c *Controller) SetMetricsManager(m *metrics.Manager) {
	c.metricsManager = m
}

// RespondToCritical executes at most one automated mitigation for a
// critical health signal, within the incident-window budget. Signals
// beyond the budget are alerted but not acted on.
func (c *Controller) RespondToCritical(ctx context.Context, metric models.HealthMetric) []models.EmergencyAction {
	if metric.Status != models.HealthStatusCritical {
		return nil
	}

	record, ok := c.registry.Get(metric.ContractName)
	if !ok {
		action := c.record(models.EmergencyAction{
			Target:      models.ContractRecord{Name: metric.ContractName, Address: metric.Address},
			Kind:        models.ActionPause,
			AttemptedAt: time.Now(),
			Outcome:     models.OutcomeFailed,
			Reason:      "contract not present in registry",
		})
		return []models.EmergencyAction{action}
	}

	kind := models.ActionPause
	if !record.HasCapability(models.CapabilityPause) {
		if record.HasCapability(models.CapabilityWithdraw) {
			kind = models.ActionWithdraw
		} else {
			action := c.record(models.EmergencyAction{
				Target:      record,
				Kind:        models.ActionPause,
				AttemptedAt: time.Now(),
				Outcome:     models.OutcomeSkipped,
				Reason:      "unsupported",
			})
			return []models.EmergencyAction{action}
		}
	}

	if !c.consumeBudget() {
		c.dispatcher.Dispatch(ctx, models.AlertEvent{
			Severity: models.SeverityCritical,
			Subject:  metric.ContractName,
			Message:  "Automated action budget exhausted; manual intervention required",
		})
		action := c.record(models.EmergencyAction{
			Target:      record,
			Kind:        kind,
			AttemptedAt: time.Now(),
			Outcome:     models.OutcomeSkipped,
			Reason:      "budget exhausted",
		})
		return []models.EmergencyAction{action}
	}

	action := c.execute(ctx, record, kind)
	return []models.EmergencyAction{action}
}

// PauseAll pauses every registered contract. Operator-initiated, so it
// bypasses the automated action budget. Failures are isolated per
// target.
func (c *Controller) PauseAll(ctx context.Context) []models.EmergencyAction {
	contracts := c.registry.All()
	actions := make([]models.EmergencyAction, 0, len(contracts))

	c.logger.WithField("targets", len(contracts)).Warn("Executing pause-all")

	for _, record := range contracts {
		if !record.HasCapability(models.CapabilityPause) {
			actions = append(actions, c.record(models.EmergencyAction{
				Target:      record,
				Kind:        models.ActionPause,
				AttemptedAt: time.Now(),
				Outcome:     models.OutcomeSkipped,
				Reason:      "unsupported",
			}))
			continue
		}
		actions = append(actions, c.execute(ctx, record, models.ActionPause))
	}

	return actions
}

// SweepFunds withdraws the funds of one contract to its configured
// recipient
func (c *Controller) SweepFunds(ctx context.Context, contractName string) models.EmergencyAction {
	record, ok := c.registry.Get(contractName)
	if !ok {
		return c.record(models.EmergencyAction{
			Target:      models.ContractRecord{Name: contractName},
			Kind:        models.ActionWithdraw,
			AttemptedAt: time.Now(),
			Outcome:     models.OutcomeFailed,
			Reason:      "contract not present in registry",
		})
	}

	if !record.HasCapability(models.CapabilityWithdraw) {
		return c.record(models.EmergencyAction{
			Target:      record,
			Kind:        models.ActionWithdraw,
			AttemptedAt: time.Now(),
			Outcome:     models.OutcomeSkipped,
			Reason:      "unsupported",
		})
	}

	return c.execute(ctx, record, models.ActionWithdraw)
}

// execute issues one mitigation transaction, retrying once with a
// fixed backoff on transient errors
func (c *Controller) execute(ctx context.Context, record models.ContractRecord, kind models.ActionKind) models.EmergencyAction {
	action := models.EmergencyAction{
		Target:      record,
		Kind:        kind,
		AttemptedAt: time.Now(),
	}

	if !c.client.HasSigner() {
		action.Outcome = models.OutcomeFailed
		action.Reason = "no privileged signer configured"
		return c.record(action)
	}

	var data []byte
	switch kind {
	case models.ActionPause:
		data = utils.MethodSelector("pause()")
	case models.ActionWithdraw:
		data = utils.MethodSelector("withdraw()")
	}

	c.txMu.Lock()
	defer c.txMu.Unlock()

	txHash, err := c.transactOnce(ctx, record, data)
	if err != nil && utils.IsTransient(err) {
		c.logger.WithFields(logrus.Fields{
			"contract": record.Name,
			"kind":     kind,
			"error":    err,
		}).Warn("Mitigation failed, retrying once")

		select {
		case <-time.After(c.config.RetryBackoff):
		case <-ctx.Done():
			action.Outcome = models.OutcomeFailed
			action.Reason = "cancelled"
			return c.record(action)
		}

		txHash, err = c.transactOnce(ctx, record, data)
	}

	if err != nil {
		action.Outcome = models.OutcomeFailed
		action.Reason = err.Error()
		c.dispatcher.Dispatch(ctx, models.AlertEvent{
			Severity: models.SeverityCritical,
			Subject:  record.Name,
			Message:  fmt.Sprintf("Mitigation %s failed: %v", kind, err),
		})
		return c.record(action)
	}

	action.Outcome = models.OutcomeSucceeded
	action.TxHash = txHash
	c.logger.WithFields(logrus.Fields{
		"contract": record.Name,
		"kind":     kind,
		"tx_hash":  txHash,
	}).Info("Mitigation executed")
	return c.record(action)
}

// transactOnce issues a single mutating call with the action timeout
func (c *Controller) transactOnce(ctx context.Context, record models.ContractRecord, data []byte) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.config.ActionTimeout)
	defer cancel()
	return c.client.Transact(callCtx, record.Address, data)
}

// consumeBudget takes one unit of the automated action budget
func (c *Controller) consumeBudget() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.actionsUsed >= c.config.MaxAutomatedActions {
		return false
	}
	c.actionsUsed++

	if c.metricsManager != nil {
		c.metricsManager.GetPrometheusMetrics().UpdateActionBudget(c.config.MaxAutomatedActions - c.actionsUsed)
	}
	return true
}

// ResetBudget starts a new incident window
func (c *Controller) ResetBudget() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actionsUsed = 0
	if c.metricsManager != nil {
		c.metricsManager.GetPrometheusMetrics().UpdateActionBudget(c.config.MaxAutomatedActions)
	}
}

// BudgetRemaining returns the automated actions left in the current
// incident window
func (c *Controller) BudgetRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config.MaxAutomatedActions - c.actionsUsed
}

// ActionLog returns a copy of the append-only action log
func (c *Controller) ActionLog() []models.EmergencyAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	log := make([]models.EmergencyAction, len(c.actionLog))
	copy(log, c.actionLog)
	return log
}

// record appends the action to the in-memory log and persists it; an
// action is never silently dropped even if persistence fails
func (c *Controller) record(action models.EmergencyAction) models.EmergencyAction {
	c.mu.Lock()
	c.actionLog = append(c.actionLog, action)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.storage.SaveAction(ctx, &action); err != nil {
		c.logger.WithError(err).Error("Failed to persist emergency action")
	}

	if c.metricsManager != nil {
		c.metricsManager.GetPrometheusMetrics().RecordEmergencyAction(string(action.Kind), string(action.Outcome))
	}

	return action
}
