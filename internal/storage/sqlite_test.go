// File: internal/storage/sqlite_test.go
package storage

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store := NewSQLiteStorage(&StorageConfig{
		Type:             "sqlite",
		ConnectionString: filepath.Join(t.TempDir(), "test.db"),
		MaxConnections:   4,
		MaxIdleTime:      time.Minute,
	})
	require.NoError(t, store.Connect())
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAlertLogRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveAlert(ctx, &models.AlertEvent{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Severity:  models.SeverityWarning,
			Subject:   "token_bridge",
			Message:   "balance low",
		}))
	}

	alerts, err := store.GetRecentAlerts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.True(t, alerts[0].Timestamp.After(alerts[1].Timestamp), "newest first")
	assert.Equal(t, models.SeverityWarning, alerts[0].Severity)
}

func TestActionLogRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	action := &models.EmergencyAction{
		Target: models.ContractRecord{
			Name:    "token_bridge",
			Address: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		},
		Kind:        models.ActionPause,
		AttemptedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Outcome:     models.OutcomeSucceeded,
		TxHash:      "0xabc123",
	}
	require.NoError(t, store.SaveAction(ctx, action))

	actions, err := store.GetRecentActions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "token_bridge", actions[0].Target.Name)
	assert.Equal(t, action.Target.Address, actions[0].Target.Address)
	assert.Equal(t, models.ActionPause, actions[0].Kind)
	assert.Equal(t, models.OutcomeSucceeded, actions[0].Outcome)
	assert.Equal(t, "0xabc123", actions[0].TxHash)
}

func TestLatestSnapshotsPerContract(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	save := func(name string, balance int64, at time.Time, status models.HealthStatus) {
		require.NoError(t, store.SaveSnapshot(ctx, &models.HealthMetric{
			ContractName:   name,
			Address:        common.HexToAddress("0x1111111111111111111111111111111111111111"),
			NativeBalance:  big.NewInt(balance),
			ActivityCount:  3,
			LastObservedAt: at,
			Status:         status,
		}))
	}

	save("alpha", 100, base, models.HealthStatusHealthy)
	save("alpha", 50, base.Add(time.Minute), models.HealthStatusWarning)
	save("bravo", 900, base, models.HealthStatusHealthy)

	latest, err := store.GetLatestSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2, "one snapshot per contract")

	assert.Equal(t, "alpha", latest[0].ContractName)
	assert.Equal(t, big.NewInt(50), latest[0].NativeBalance)
	assert.Equal(t, models.HealthStatusWarning, latest[0].Status)
	assert.Equal(t, "bravo", latest[1].ContractName)
}

func TestSnapshotBigBalanceSurvivesRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	// Larger than int64
	balance, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)

	require.NoError(t, store.SaveSnapshot(ctx, &models.HealthMetric{
		ContractName:   "whale",
		Address:        common.HexToAddress("0x2222222222222222222222222222222222222222"),
		NativeBalance:  balance,
		LastObservedAt: time.Now().UTC(),
		Status:         models.HealthStatusHealthy,
	}))

	latest, err := store.GetLatestSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Zero(t, balance.Cmp(latest[0].NativeBalance))
}

func TestPruneSnapshots(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, store.SaveSnapshot(ctx, &models.HealthMetric{
			ContractName:   "alpha",
			Address:        common.HexToAddress("0x1111111111111111111111111111111111111111"),
			NativeBalance:  big.NewInt(int64(i)),
			LastObservedAt: time.Now().UTC(),
			Status:         models.HealthStatusHealthy,
		}))
	}

	require.NoError(t, store.PruneSnapshots(ctx, 3))

	stats, err := store.GetStorageStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalSnapshots)

	latest, err := store.GetLatestSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, big.NewInt(9), latest[0].NativeBalance, "newest snapshot survives pruning")
}

func TestPruneSnapshotsIsPerContract(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	save := func(name string, balance int64) {
		require.NoError(t, store.SaveSnapshot(ctx, &models.HealthMetric{
			ContractName:   name,
			Address:        common.HexToAddress("0x1111111111111111111111111111111111111111"),
			NativeBalance:  big.NewInt(balance),
			LastObservedAt: time.Now().UTC(),
			Status:         models.HealthStatusHealthy,
		}))
	}

	for i := 0; i < 8; i++ {
		save("chatty", int64(i))
	}
	save("quiet", 42)

	require.NoError(t, store.PruneSnapshots(ctx, 3))

	stats, err := store.GetStorageStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalSnapshots, "retention applies per contract")

	latest, err := store.GetLatestSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2, "a chatty contract cannot evict another's only snapshot")
	assert.Equal(t, big.NewInt(42), latest[1].NativeBalance)
}

func TestReportRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	report := &models.OperationReport{
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Network:   "rsk-testnet",
		PhaseResults: []models.PhaseResult{
			{PhaseName: models.PhaseVerification, Completed: true, SucceededCount: 2, TotalCount: 3, FailedItems: []string{"bridge"}},
		},
		OverallStatus:   models.OverallPartial,
		Recommendations: []string{"Retry source verification for: bridge"},
	}
	require.NoError(t, store.SaveReport(ctx, report))

	reports, err := store.GetRecentReports(ctx, 5)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, report.Network, reports[0].Network)
	assert.Equal(t, report.OverallStatus, reports[0].OverallStatus)
	require.Len(t, reports[0].PhaseResults, 1)
	assert.Equal(t, report.PhaseResults[0], reports[0].PhaseResults[0])
	assert.Equal(t, report.Recommendations, reports[0].Recommendations)
}

func TestStorageStats(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	stats, err := store.GetStorageStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalAlerts)
	assert.Nil(t, stats.LatestAlertAt)

	require.NoError(t, store.SaveAlert(ctx, &models.AlertEvent{
		Timestamp: time.Now().UTC(),
		Severity:  models.SeverityInfo,
		Subject:   "x",
	}))

	stats, err = store.GetStorageStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalAlerts)
	assert.NotNil(t, stats.LatestAlertAt)
}
