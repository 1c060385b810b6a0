// File: internal/monitor/scheduler.go
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/alert"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/emergency"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/storage"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// SchedulerConfig holds poll loop configuration
type SchedulerConfig struct {
	PollInterval   time.Duration `json:"poll_interval"`
	SnapshotRetain int           `json:"snapshot_retain"`

	// BudgetResetInterval bounds the incident window: the emergency
	// action budget is restored once per interval. Zero disables resets.
	BudgetResetInterval time.Duration `json:"budget_reset_interval"`
}

// Scheduler owns the monitoring cadence: it drives the stateless
// monitor on a fixed interval, persists snapshots, raises alerts for
// degraded contracts and hands critical signals to the emergency
// controller.
type Scheduler struct {
	config     *SchedulerConfig
	monitor    Monitor
	dispatcher *alert.Dispatcher
	controller *emergency.Controller
	storage    storage.Storage
	logger     *logrus.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewScheduler creates a new monitoring scheduler
func NewScheduler(
	config *SchedulerConfig,
	mon Monitor,
	dispatcher *alert.Dispatcher,
	controller *emergency.Controller,
	store storage.Storage,
) *Scheduler {
	return &Scheduler{
		config:     config,
		monitor:    mon,
		dispatcher: dispatcher,
		controller: controller,
		storage:    store,
		logger:     utils.GetLogger(),
	}
}

// Start begins the poll loop. The first cycle runs immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return utils.NewAppError(utils.ErrCodeInternal, "Scheduler already running", "")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(loopCtx)

	s.logger.WithField("interval", s.config.PollInterval).Info("Monitoring scheduler started")
	return nil
}

// Stop halts the poll loop and waits for the current cycle to finish
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.logger.Info("Monitoring scheduler stopped")
	return nil
}

// IsRunning reports whether the poll loop is active
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// loop runs monitoring cycles until the context is cancelled
func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	var budgetReset <-chan time.Time
	if s.controller != nil && s.config.BudgetResetInterval > 0 {
		budgetTicker := time.NewTicker(s.config.BudgetResetInterval)
		defer budgetTicker.Stop()
		budgetReset = budgetTicker.C
	}

	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		case <-budgetReset:
			s.controller.ResetBudget()
			s.logger.Debug("Emergency action budget reset for new incident window")
		}
	}
}

// runCycle executes one monitoring pass
func (s *Scheduler) runCycle(ctx context.Context) {
	start := time.Now()

	metrics := s.monitor.CheckAll(ctx)
	for name, metric := range metrics {
		if err := s.storage.SaveSnapshot(ctx, &metric); err != nil {
			s.logger.WithFields(logrus.Fields{"contract": name, "error": err}).Error("Failed to persist snapshot")
		}

		switch metric.Status {
		case models.HealthStatusWarning:
			s.dispatcher.Dispatch(ctx, models.AlertEvent{
				Severity: models.SeverityWarning,
				Subject:  name,
				Message:  fmt.Sprintf("Contract balance below threshold: %s wei", metric.NativeBalance.String()),
			})
		case models.HealthStatusCritical:
			s.dispatcher.Dispatch(ctx, models.AlertEvent{
				Severity: models.SeverityCritical,
				Subject:  name,
				Message:  fmt.Sprintf("Contract health critical: %s", metric.Error),
			})
			if s.controller != nil {
				s.controller.RespondToCritical(ctx, metric)
			}
		}
	}

	fees := s.monitor.CheckFees(ctx)
	switch fees.Status {
	case models.FeeStatusHigh:
		s.dispatcher.Dispatch(ctx, models.AlertEvent{
			Severity: models.SeverityWarning,
			Subject:  "network_fees",
			Message:  fmt.Sprintf("Network gas price elevated: %s wei", fees.FeeValue.String()),
		})
	case models.FeeStatusCritical:
		s.dispatcher.Dispatch(ctx, models.AlertEvent{
			Severity: models.SeverityCritical,
			Subject:  "network_fees",
			Message:  fmt.Sprintf("Network gas price critical: %s wei", fees.FeeValue.String()),
		})
	}

	if s.config.SnapshotRetain > 0 {
		if err := s.storage.PruneSnapshots(ctx, s.config.SnapshotRetain); err != nil {
			s.logger.WithError(err).Warn("Failed to prune snapshots")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"contracts": len(metrics),
		"fee_level": fees.Status,
		"duration":  time.Since(start),
	}).Debug("Monitoring cycle finished")
}
