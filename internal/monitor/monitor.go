// File: internal/monitor/monitor.go
package monitor

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/connection"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/metrics"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/registry"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// Monitor defines the health monitor interface. Both checks are
// side-effect-free reads; the monitor holds no timer state, the caller
// owns the poll loop.
type Monitor interface {
	CheckAll(ctx context.Context) map[string]models.HealthMetric
	CheckFees(ctx context.Context) models.FeeLevel
}

// MonitorConfig holds health monitor thresholds
type MonitorConfig struct {
	BalanceThreshold  *big.Int      `json:"balance_threshold"`
	GasPriceThreshold *big.Int      `json:"gas_price_threshold"`
	CheckTimeout      time.Duration `json:"check_timeout"`
}

// HealthMonitor implements the Monitor interface
type HealthMonitor struct {
	client   connection.Client
	registry *registry.Registry
	config   *MonitorConfig
	logger   *logrus.Logger

	metricsManager *metrics.Manager
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(client connection.Client, reg *registry.Registry, config *MonitorConfig) *HealthMonitor {
	return &HealthMonitor{
		client:   client,
		registry: reg,
		config:   config,
		logger:   utils.GetLogger(),
	}
}

// SetMetricsManager wires the optional metrics manager
func (hm *HealthMonitor) SetMetricsManager(m *metrics.Manager) {
	hm.metricsManager = m
}

// CheckAll polls every registered contract and returns exactly one
// metric per contract. Checks fan out concurrently; a failed read on
// one contract never aborts the others and produces a synthesized
// Critical metric instead of an omission.
func (hm *HealthMonitor) CheckAll(ctx context.Context) map[string]models.HealthMetric {
	contracts := hm.registry.All()
	results := make(map[string]models.HealthMetric, len(contracts))

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, contract := range contracts {
		wg.Add(1)
		go func(record models.ContractRecord) {
			defer wg.Done()

			metric := hm.checkContract(ctx, record)

			mu.Lock()
			results[record.Name] = metric
			mu.Unlock()
		}(contract)
	}

	wg.Wait()

	if hm.metricsManager != nil {
		hm.metricsManager.GetPrometheusMetrics().ContractsMonitored.Set(float64(len(results)))
		for _, metric := range results {
			hm.metricsManager.GetPrometheusMetrics().RecordHealthCheck(metric.ContractName, string(metric.Status))
		}
	}

	hm.logger.WithField("contracts", len(results)).Debug("Health check cycle completed")
	return results
}

// checkContract reads one contract's state and classifies it
func (hm *HealthMonitor) checkContract(ctx context.Context, record models.ContractRecord) models.HealthMetric {
	checkCtx, cancel := context.WithTimeout(ctx, hm.config.CheckTimeout)
	defer cancel()

	metric := models.HealthMetric{
		ContractName:   record.Name,
		Address:        record.Address,
		NativeBalance:  big.NewInt(0),
		LastObservedAt: time.Now(),
	}

	balance, err := hm.client.GetBalance(checkCtx, record.Address)
	if err != nil {
		hm.logger.WithFields(logrus.Fields{"contract": record.Name, "error": err}).Warn("Balance read failed")
		metric.Status = models.HealthStatusCritical
		metric.Error = err.Error()
		return metric
	}

	activity, err := hm.client.GetActivityCount(checkCtx, record.Address)
	if err != nil {
		hm.logger.WithFields(logrus.Fields{"contract": record.Name, "error": err}).Warn("Activity read failed")
		metric.Status = models.HealthStatusCritical
		metric.Error = err.Error()
		return metric
	}

	metric.NativeBalance = balance
	metric.ActivityCount = activity
	metric.Status = hm.classifyBalance(balance)

	return metric
}

// classifyBalance is a pure function of the threshold and current state
func (hm *HealthMonitor) classifyBalance(balance *big.Int) models.HealthStatus {
	if balance.Cmp(hm.config.BalanceThreshold) < 0 {
		return models.HealthStatusWarning
	}
	return models.HealthStatusHealthy
}

// CheckFees reads the network gas price and classifies it: High above
// the threshold, Critical above twice the threshold.
func (hm *HealthMonitor) CheckFees(ctx context.Context) models.FeeLevel {
	checkCtx, cancel := context.WithTimeout(ctx, hm.config.CheckTimeout)
	defer cancel()

	level := models.FeeLevel{
		FeeValue:   big.NewInt(0),
		Status:     models.FeeStatusNormal,
		ObservedAt: time.Now(),
	}

	gasPrice, err := hm.client.GetFeeLevel(checkCtx)
	if err != nil {
		hm.logger.WithError(err).Warn("Fee level read failed")
		level.Status = models.FeeStatusCritical
		return level
	}

	level.FeeValue = gasPrice
	level.Status = hm.classifyFee(gasPrice)

	if hm.metricsManager != nil {
		hm.metricsManager.GetPrometheusMetrics().UpdateGasPrice(gasPrice)
	}

	return level
}

// classifyFee classifies a gas price against the configured threshold
func (hm *HealthMonitor) classifyFee(gasPrice *big.Int) models.FeeStatus {
	doubled := new(big.Int).Mul(hm.config.GasPriceThreshold, big.NewInt(2))
	switch {
	case gasPrice.Cmp(doubled) > 0:
		return models.FeeStatusCritical
	case gasPrice.Cmp(hm.config.GasPriceThreshold) > 0:
		return models.FeeStatusHigh
	default:
		return models.FeeStatusNormal
	}
}

var _ Monitor = (*HealthMonitor)(nil)
