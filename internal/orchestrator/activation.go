// File: internal/orchestrator/activation.go
package orchestrator

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/alert"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/monitor"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/phases"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/storage"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// MonitoringActivationPhase takes the baseline health reading that arms
// ongoing monitoring. A contract passes when its baseline snapshot is
// not Critical; every snapshot is persisted so the first poll cycle has
// history to compare against.
type MonitoringActivationPhase struct {
	monitor    monitor.Monitor
	dispatcher *alert.Dispatcher
	storage    storage.Storage
	logger     *logrus.Entry
}

// NewMonitoringActivationPhase creates a new monitoring activation phase
func NewMonitoringActivationPhase(mon monitor.Monitor, dispatcher *alert.Dispatcher, store storage.Storage) *MonitoringActivationPhase {
	return &MonitoringActivationPhase{
		monitor:    mon,
		dispatcher: dispatcher,
		storage:    store,
		logger:     utils.ComponentLogger("monitoring_activation"),
	}
}

// Name returns the phase name
func (mp *MonitoringActivationPhase) Name() string {
	return models.PhaseMonitoringActivation
}

// Execute captures the baseline health reading for every contract
func (mp *MonitoringActivationPhase) Execute(ctx context.Context) models.PhaseResult {
	select {
	case <-ctx.Done():
		return phases.CancelledResult(mp.Name())
	default:
	}

	metrics := mp.monitor.CheckAll(ctx)
	fees := mp.monitor.CheckFees(ctx)

	// A deadline expiring mid-read makes every metric Critical; report
	// the cancellation, not a wall of degraded contracts
	if ctx.Err() != nil {
		return phases.CancelledResult(mp.Name())
	}

	result := models.PhaseResult{
		PhaseName:  mp.Name(),
		TotalCount: len(metrics),
	}

	for name, metric := range metrics {
		if err := mp.storage.SaveSnapshot(ctx, &metric); err != nil {
			mp.logger.WithFields(logrus.Fields{"contract": name, "error": err}).Error("Failed to persist baseline snapshot")
		}

		if metric.Status == models.HealthStatusCritical {
			result.FailedItems = append(result.FailedItems, name)
			mp.dispatcher.Dispatch(ctx, models.AlertEvent{
				Severity: models.SeverityCritical,
				Subject:  name,
				Message:  fmt.Sprintf("Baseline health check critical: %s", metric.Error),
			})
			continue
		}
		result.SucceededCount++
	}

	if fees.Status == models.FeeStatusCritical {
		mp.dispatcher.Dispatch(ctx, models.AlertEvent{
			Severity: models.SeverityWarning,
			Subject:  "network_fees",
			Message:  fmt.Sprintf("Network fee level critical at activation: %s wei", fees.FeeValue.String()),
		})
	}

	result.Completed = true
	mp.logger.WithFields(logrus.Fields{
		"contracts": result.TotalCount,
		"healthy":   result.SucceededCount,
		"fee_level": fees.Status,
	}).Info("Monitoring baseline captured")
	return result
}

var _ phases.Phase = (*MonitoringActivationPhase)(nil)
