// File: internal/monitor/scheduler_test.go
package monitor

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/alert"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/storage"
)

// cycleStorage records scheduler writes
type cycleStorage struct {
	storage.Storage

	mu        sync.Mutex
	snapshots []models.HealthMetric
	alerts    []models.AlertEvent
	pruned    []int
}

func (cs *cycleStorage) SaveSnapshot(ctx context.Context, metric *models.HealthMetric) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.snapshots = append(cs.snapshots, *metric)
	return nil
}

func (cs *cycleStorage) SaveAlert(ctx context.Context, event *models.AlertEvent) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.alerts = append(cs.alerts, *event)
	return nil
}

func (cs *cycleStorage) PruneSnapshots(ctx context.Context, retain int) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.pruned = append(cs.pruned, retain)
	return nil
}

// cannedMonitor returns fixed readings
type cannedMonitor struct {
	metrics map[string]models.HealthMetric
	fees    models.FeeLevel
}

func (cm *cannedMonitor) CheckAll(ctx context.Context) map[string]models.HealthMetric {
	return cm.metrics
}

func (cm *cannedMonitor) CheckFees(ctx context.Context) models.FeeLevel {
	return cm.fees
}

func TestSchedulerCycleRaisesAlertsAndPersists(t *testing.T) {
	store := &cycleStorage{}
	dispatcher := alert.NewDispatcher(&alert.DispatcherConfig{Cooldown: time.Minute, Network: "rsk-testnet"}, store)

	mon := &cannedMonitor{
		metrics: map[string]models.HealthMetric{
			"alpha": {ContractName: "alpha", NativeBalance: big.NewInt(5), LastObservedAt: time.Now(), Status: models.HealthStatusWarning},
			"bravo": {ContractName: "bravo", NativeBalance: big.NewInt(100), LastObservedAt: time.Now(), Status: models.HealthStatusHealthy},
		},
		fees: models.FeeLevel{FeeValue: big.NewInt(5000), Status: models.FeeStatusHigh, ObservedAt: time.Now()},
	}

	s := NewScheduler(&SchedulerConfig{PollInterval: time.Hour, SnapshotRetain: 10}, mon, dispatcher, nil, store)
	s.runCycle(context.Background())

	store.mu.Lock()
	defer store.mu.Unlock()

	assert.Len(t, store.snapshots, 2, "every reading is persisted")
	assert.Equal(t, []int{10}, store.pruned)

	subjects := make(map[string]models.AlertSeverity)
	for _, event := range store.alerts {
		subjects[event.Subject] = event.Severity
	}
	assert.Equal(t, models.SeverityWarning, subjects["alpha"])
	assert.Equal(t, models.SeverityWarning, subjects["network_fees"])
	_, healthyAlerted := subjects["bravo"]
	assert.False(t, healthyAlerted, "healthy contracts raise no alerts")
}

func TestSchedulerStartStop(t *testing.T) {
	store := &cycleStorage{}
	dispatcher := alert.NewDispatcher(&alert.DispatcherConfig{Cooldown: time.Minute, Network: "rsk-testnet"}, store)

	mon := &cannedMonitor{
		metrics: map[string]models.HealthMetric{},
		fees:    models.FeeLevel{FeeValue: big.NewInt(1), Status: models.FeeStatusNormal, ObservedAt: time.Now()},
	}

	s := NewScheduler(&SchedulerConfig{PollInterval: time.Hour}, mon, dispatcher, nil, store)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start(context.Background()), "double start is rejected")

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop(), "stop is idempotent")
}
