// File: internal/alert/dispatcher.go
package alert

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/metrics"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/storage"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// Channel delivers an alert to one remote notification sink.
// Delivery is best-effort; the dispatcher's local log is the source
// of truth.
type Channel interface {
	Name() string
	Send(ctx context.Context, event models.AlertEvent, network string) error
}

// DispatcherConfig holds alert dispatcher configuration
type DispatcherConfig struct {
	Cooldown time.Duration `json:"cooldown"`
	Network  string        `json:"network"`
}

// Dispatcher fans out alert events to the configured channels,
// suppressing repeats of the same (subject, severity) pair within the
// cooldown window
type Dispatcher struct {
	config  *DispatcherConfig
	storage storage.Storage
	logger  *logrus.Logger

	mu       sync.Mutex
	channels []Channel
	lastSent map[string]time.Time

	metricsManager *metrics.Manager

	// now is swappable for tests
	now func() time.Time
}

// NewDispatcher creates a new alert dispatcher
func NewDispatcher(config *DispatcherConfig, store storage.Storage) *Dispatcher {
	return &Dispatcher{
		config:   config,
		storage:  store,
		logger:   utils.GetLogger(),
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// SetMetricsManager wires the optional metrics manager
func (d *Dispatcher) SetMetricsManager(m *metrics.Manager) {
	d.metricsManager = m
}

// AddChannel registers a notification channel
func (d *Dispatcher) AddChannel(channel Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels = append(d.channels, channel)
	d.logger.WithField("channel", channel.Name()).Info("Alert channel registered")
}

// ChannelNames returns the names of the registered channels
func (d *Dispatcher) ChannelNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Dispatch records the event in the durable local log and, unless the
// cooldown suppresses it, delivers it to every configured channel.
// Channel failures are isolated per channel and never fail the
// dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.AlertEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now()
	}

	// The local log records every event, suppressed or not
	if err := d.storage.SaveAlert(ctx, &event); err != nil {
		d.logger.WithError(err).Error("Failed to persist alert to local log")
	}

	// The cooldown check and the window update share one critical
	// section, so concurrent dispatches of the same pair cannot both
	// claim the window
	d.mu.Lock()
	last, seen := d.lastSent[event.DedupeKey()]
	if seen && event.Timestamp.Sub(last) < d.config.Cooldown {
		d.mu.Unlock()
		d.logger.WithFields(logrus.Fields{
			"subject":  event.Subject,
			"severity": event.Severity,
		}).Debug("Alert suppressed by cooldown")
		if d.metricsManager != nil {
			d.metricsManager.GetPrometheusMetrics().RecordAlertSuppressed(string(event.Severity))
		}
		return
	}
	d.lastSent[event.DedupeKey()] = event.Timestamp
	channels := make([]Channel, len(d.channels))
	copy(channels, d.channels)
	d.mu.Unlock()

	var wg sync.WaitGroup
	for _, channel := range channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			if err := ch.Send(ctx, event, d.config.Network); err != nil {
				d.logger.WithFields(logrus.Fields{
					"channel": ch.Name(),
					"subject": event.Subject,
					"error":   err,
				}).Warn("Alert channel delivery failed")
				if d.metricsManager != nil {
					d.metricsManager.GetPrometheusMetrics().RecordChannelFailure(ch.Name())
				}
			}
		}(channel)
	}
	wg.Wait()

	if d.metricsManager != nil {
		d.metricsManager.GetPrometheusMetrics().RecordAlertDispatched(string(event.Severity))
	}

	d.logger.WithFields(logrus.Fields{
		"subject":  event.Subject,
		"severity": event.Severity,
		"channels": len(channels),
	}).Info("Alert dispatched")
}
