package metrics

import (
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for the readiness
// orchestrator
type PrometheusMetrics struct {
	// Health monitoring metrics
	HealthChecksTotal  *prometheus.CounterVec
	ContractsMonitored prometheus.Gauge
	GasPriceWei        prometheus.Gauge

	// Alert metrics
	AlertsDispatchedTotal *prometheus.CounterVec
	AlertsSuppressedTotal *prometheus.CounterVec
	ChannelFailuresTotal  *prometheus.CounterVec

	// Emergency response metrics
	EmergencyActionsTotal *prometheus.CounterVec
	ActionBudgetRemaining prometheus.Gauge

	// Orchestration metrics
	PhaseDuration   *prometheus.HistogramVec
	PhaseItemsTotal *prometheus.CounterVec
	RunsTotal       *prometheus.CounterVec

	// Connection metrics
	RPCRequestsTotal   *prometheus.CounterVec
	RPCRequestDuration *prometheus.HistogramVec

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application health metrics
	ApplicationUptime prometheus.Gauge
	ComponentHealth   *prometheus.GaugeVec
}

// NewPrometheusMetrics creates and registers all Prometheus metrics
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		HealthChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "readiness_health_checks_total",
				Help: "Total number of per-contract health checks by resulting status",
			},
			[]string{"contract", "status"},
		),

		ContractsMonitored: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "readiness_contracts_monitored",
				Help: "Number of contracts in the registry",
			},
		),

		GasPriceWei: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "readiness_gas_price_wei",
				Help: "Last observed network gas price in wei",
			},
		),

		AlertsDispatchedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "readiness_alerts_dispatched_total",
				Help: "Total number of alerts dispatched to remote channels",
			},
			[]string{"severity"},
		),

		AlertsSuppressedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "readiness_alerts_suppressed_total",
				Help: "Total number of alerts suppressed by the cooldown window",
			},
			[]string{"severity"},
		),

		ChannelFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "readiness_alert_channel_failures_total",
				Help: "Total number of alert channel delivery failures",
			},
			[]string{"channel"},
		),

		EmergencyActionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "readiness_emergency_actions_total",
				Help: "Total number of emergency mitigation attempts by outcome",
			},
			[]string{"kind", "outcome"},
		),

		ActionBudgetRemaining: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "readiness_action_budget_remaining",
				Help: "Automated mitigation budget remaining in the current incident window",
			},
		),

		PhaseDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "readiness_phase_duration_seconds",
				Help:    "Duration of orchestration phases",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"phase"},
		),

		PhaseItemsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "readiness_phase_items_total",
				Help: "Total number of per-item phase outcomes",
			},
			[]string{"phase", "result"},
		),

		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "readiness_runs_total",
				Help: "Total number of orchestration runs by overall status",
			},
			[]string{"status"},
		),

		RPCRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "readiness_rpc_requests_total",
				Help: "Total number of RPC requests made to RSK nodes",
			},
			[]string{"method", "status"},
		),

		RPCRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "readiness_rpc_request_duration_seconds",
				Help:    "Duration of RPC requests to RSK nodes",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "readiness_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "readiness_http_request_duration_seconds",
				Help:    "Duration of HTTP requests served",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ApplicationUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "readiness_application_uptime_seconds",
				Help: "Application uptime in seconds",
			},
		),

		ComponentHealth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "readiness_component_health",
				Help: "Component health status (1 healthy, 0 unhealthy)",
			},
			[]string{"component"},
		),
	}
}

// RecordHealthCheck records one per-contract health check outcome
func (pm *PrometheusMetrics) RecordHealthCheck(contract, status string) {
	pm.HealthChecksTotal.WithLabelValues(contract, status).Inc()
}

// UpdateGasPrice records the last observed gas price
func (pm *PrometheusMetrics) UpdateGasPrice(gasPrice *big.Int) {
	f, _ := new(big.Float).SetInt(gasPrice).Float64()
	pm.GasPriceWei.Set(f)
}

// RecordAlertDispatched records a remote alert delivery
func (pm *PrometheusMetrics) RecordAlertDispatched(severity string) {
	pm.AlertsDispatchedTotal.WithLabelValues(severity).Inc()
}

// RecordAlertSuppressed records a cooldown suppression
func (pm *PrometheusMetrics) RecordAlertSuppressed(severity string) {
	pm.AlertsSuppressedTotal.WithLabelValues(severity).Inc()
}

// RecordChannelFailure records a channel delivery failure
func (pm *PrometheusMetrics) RecordChannelFailure(channel string) {
	pm.ChannelFailuresTotal.WithLabelValues(channel).Inc()
}

// RecordEmergencyAction records one mitigation attempt
func (pm *PrometheusMetrics) RecordEmergencyAction(kind, outcome string) {
	pm.EmergencyActionsTotal.WithLabelValues(kind, outcome).Inc()
}

// UpdateActionBudget records the remaining automated action budget
func (pm *PrometheusMetrics) UpdateActionBudget(remaining int) {
	pm.ActionBudgetRemaining.Set(float64(remaining))
}

// RecordPhase records a completed phase execution
func (pm *PrometheusMetrics) RecordPhase(phase string, duration time.Duration, succeeded, failed int) {
	pm.PhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
	pm.PhaseItemsTotal.WithLabelValues(phase, "success").Add(float64(succeeded))
	pm.PhaseItemsTotal.WithLabelValues(phase, "failure").Add(float64(failed))
}

// RecordRun records a finished orchestration run
func (pm *PrometheusMetrics) RecordRun(status string) {
	pm.RunsTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request
func (pm *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	pm.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	pm.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateComponentHealth records a component health state
func (pm *PrometheusMetrics) UpdateComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	pm.ComponentHealth.WithLabelValues(component).Set(value)
}

// UpdateApplicationUptime updates the uptime gauge
func (pm *PrometheusMetrics) UpdateApplicationUptime(startTime time.Time) {
	pm.ApplicationUptime.Set(time.Since(startTime).Seconds())
}
