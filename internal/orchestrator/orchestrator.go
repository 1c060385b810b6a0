// File: internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/metrics"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/phases"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/storage"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// OrchestratorConfig holds orchestration run configuration
type OrchestratorConfig struct {
	Network             string        `json:"network"`
	PhaseTimeout        time.Duration `json:"phase_timeout"`
	FailedPhaseFraction float64       `json:"failed_phase_fraction"`
}

// Orchestrator runs the readiness phases in their fixed order and
// produces the write-once operation report. Every phase runs even when
// an earlier one fails; the report is the one place the run's outcome
// is judged.
type Orchestrator struct {
	config  *OrchestratorConfig
	phases  []phases.Phase
	storage storage.Storage
	writer  *ReportWriter
	logger  *logrus.Logger

	metricsManager *metrics.Manager
}

// NewOrchestrator creates a new orchestrator. The phase slice order is
// the execution order.
func NewOrchestrator(config *OrchestratorConfig, phaseList []phases.Phase, store storage.Storage, writer *ReportWriter) *Orchestrator {
	return &Orchestrator{
		config:  config,
		phases:  phaseList,
		storage: store,
		writer:  writer,
		logger:  utils.GetLogger(),
	}
}

// SetMetricsManager wires the optional metrics manager
func (o *Orchestrator) SetMetricsManager(m *metrics.Manager) {
	o.metricsManager = m
}

// Run executes every phase in order and returns the operation report.
// The in-memory report is always returned; persistence failures are
// logged but never lose the run's outcome.
func (o *Orchestrator) Run(ctx context.Context) *models.OperationReport {
	report := &models.OperationReport{
		Timestamp: time.Now(),
		Network:   o.config.Network,
	}

	o.logger.WithFields(logrus.Fields{
		"network": o.config.Network,
		"phases":  len(o.phases),
	}).Info("Starting readiness orchestration run")

	for _, phase := range o.phases {
		result := o.runPhase(ctx, phase)
		report.PhaseResults = append(report.PhaseResults, result)

		o.logger.WithFields(logrus.Fields{
			"phase":     result.PhaseName,
			"completed": result.Completed,
			"succeeded": result.SucceededCount,
			"total":     result.TotalCount,
		}).Info("Phase finished")
	}

	report.OverallStatus = o.overallStatus(report.PhaseResults)
	report.Recommendations = recommendations(report.PhaseResults)

	o.persist(ctx, report)

	if o.metricsManager != nil {
		o.metricsManager.GetPrometheusMetrics().RecordRun(string(report.OverallStatus))
	}

	o.logger.WithField("status", report.OverallStatus).Info("Readiness orchestration run finished")
	return report
}

// runPhase executes one phase under the phase timeout, converting a
// panic into a failed result so the run always continues
func (o *Orchestrator) runPhase(ctx context.Context, phase phases.Phase) (result models.PhaseResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.WithFields(logrus.Fields{
				"phase": phase.Name(),
				"panic": r,
			}).Error("Phase panicked")
			result = models.PhaseResult{
				PhaseName:   phase.Name(),
				Completed:   false,
				FailedItems: []string{fmt.Sprintf("panic: %v", r)},
			}
		}
	}()

	phaseCtx := ctx
	if o.config.PhaseTimeout > 0 {
		var cancel context.CancelFunc
		phaseCtx, cancel = context.WithTimeout(ctx, o.config.PhaseTimeout)
		defer cancel()
	}

	start := time.Now()
	result = phase.Execute(phaseCtx)

	if o.metricsManager != nil {
		o.metricsManager.GetPrometheusMetrics().RecordPhase(
			result.PhaseName, time.Since(start),
			result.SucceededCount, result.TotalCount-result.SucceededCount)
	}
	return result
}

// overallStatus computes the run verdict: Success when every phase
// fully succeeded, Failed when too few phases even completed, Partial
// otherwise
func (o *Orchestrator) overallStatus(results []models.PhaseResult) models.OverallStatus {
	if len(results) == 0 {
		return models.OverallFailed
	}

	allSucceeded := true
	completed := 0
	for _, result := range results {
		if result.Completed {
			completed++
		}
		if !result.FullySucceeded() {
			allSucceeded = false
		}
	}

	if allSucceeded {
		return models.OverallSuccess
	}
	if float64(completed)/float64(len(results)) < o.config.FailedPhaseFraction {
		return models.OverallFailed
	}
	return models.OverallPartial
}

// recommendations derives deterministic operator guidance from the
// phase results, in phase order
func recommendations(results []models.PhaseResult) []string {
	var recs []string
	for _, result := range results {
		if result.FullySucceeded() {
			continue
		}

		switch result.PhaseName {
		case models.PhaseVerification:
			recs = append(recs, fmt.Sprintf(
				"Retry source verification for: %s", itemList(result)))
		case models.PhaseOwnershipTransfer:
			recs = append(recs, fmt.Sprintf(
				"Complete ownership transfer for: %s; multisig owners must accept pending transfers", itemList(result)))
		case models.PhaseMonitoringActivation:
			recs = append(recs, fmt.Sprintf(
				"Investigate degraded baseline health before launch: %s", itemList(result)))
		case models.PhaseEmergencyConfiguration:
			recs = append(recs, fmt.Sprintf(
				"Fix emergency wiring (signer and capability probes) for: %s", itemList(result)))
		default:
			recs = append(recs, fmt.Sprintf("Re-run phase %s: %s", result.PhaseName, itemList(result)))
		}
	}
	return recs
}

// itemList renders the failed items of a phase for a recommendation
func itemList(result models.PhaseResult) string {
	if len(result.FailedItems) == 0 {
		return "phase did not complete"
	}
	return strings.Join(result.FailedItems, ", ")
}

// persist stores the report in the database and on disk. Failures are
// logged; the caller still receives the in-memory report.
func (o *Orchestrator) persist(ctx context.Context, report *models.OperationReport) {
	if o.storage != nil {
		if err := o.storage.SaveReport(ctx, report); err != nil {
			o.logger.WithError(err).Error("Failed to persist report to storage")
		}
	}

	if o.writer != nil {
		if _, _, err := o.writer.Write(report); err != nil {
			o.logger.WithError(err).Error("Failed to write report files")
		}
	}
}
