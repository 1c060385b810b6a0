// File: internal/emergency/controller_test.go
package emergency

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/alert"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/registry"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/storage"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// actionStorage records persisted actions and alerts
type actionStorage struct {
	storage.Storage

	mu      sync.Mutex
	actions []models.EmergencyAction
	alerts  []models.AlertEvent
}

func (as *actionStorage) SaveAction(ctx context.Context, action *models.EmergencyAction) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.actions = append(as.actions, *action)
	return nil
}

func (as *actionStorage) SaveAlert(ctx context.Context, event *models.AlertEvent) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.alerts = append(as.alerts, *event)
	return nil
}

// txClient counts Transact calls and can fail a configurable number of
// times per target before succeeding
type txClient struct {
	hasSigner bool

	mu        sync.Mutex
	attempts  map[common.Address]int
	failFirst map[common.Address]int
	alwaysErr error
}

func newTxClient() *txClient {
	return &txClient{
		hasSigner: true,
		attempts:  make(map[common.Address]int),
		failFirst: make(map[common.Address]int),
	}
}

func (c *txClient) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (c *txClient) GetActivityCount(ctx context.Context, address common.Address) (uint64, error) {
	return 0, nil
}

func (c *txClient) GetFeeLevel(ctx context.Context) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (c *txClient) CallContract(ctx context.Context, address common.Address, data []byte) ([]byte, error) {
	return nil, nil
}

func (c *txClient) Transact(ctx context.Context, address common.Address, data []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts[address]++
	if c.alwaysErr != nil {
		return "", c.alwaysErr
	}
	if c.attempts[address] <= c.failFirst[address] {
		return "", utils.NewAppError(utils.ErrCodeTransientIO, "nonce too low", "")
	}
	return "0xabc123", nil
}

func (c *txClient) HasSigner() bool                       { return c.hasSigner }
func (c *txClient) HealthCheck(ctx context.Context) error { return nil }
func (c *txClient) Close() error                          { return nil }

func (c *txClient) attemptCount(address common.Address) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts[address]
}

var (
	addrA = common.HexToAddress("0x1111111111111111111111111111111111111111")
	addrB = common.HexToAddress("0x2222222222222222222222222222222222222222")
	addrC = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func newTestController(t *testing.T, client *txClient, budget int) (*Controller, *actionStorage) {
	t.Helper()

	reg, err := registry.FromRecords([]models.ContractRecord{
		{Name: "alpha", Address: addrA, Capabilities: []models.Capability{models.CapabilityPause}},
		{Name: "bravo", Address: addrB, Capabilities: []models.Capability{models.CapabilityPause, models.CapabilityWithdraw}},
		{Name: "charlie", Address: addrC},
	})
	require.NoError(t, err)

	store := &actionStorage{}
	dispatcher := alert.NewDispatcher(&alert.DispatcherConfig{
		Cooldown: time.Minute,
		Network:  "rsk-testnet",
	}, store)

	controller := NewController(client, reg, dispatcher, store, &ControllerConfig{
		MaxAutomatedActions: budget,
		RetryBackoff:        time.Millisecond,
		ActionTimeout:       5 * time.Second,
	})
	return controller, store
}

func criticalMetric(name string, address common.Address) models.HealthMetric {
	return models.HealthMetric{
		ContractName:   name,
		Address:        address,
		NativeBalance:  big.NewInt(0),
		LastObservedAt: time.Now(),
		Status:         models.HealthStatusCritical,
		Error:          "node unreachable",
	}
}

func TestRespondToCriticalExecutesPause(t *testing.T) {
	client := newTxClient()
	controller, store := newTestController(t, client, 5)

	actions := controller.RespondToCritical(context.Background(), criticalMetric("alpha", addrA))

	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionPause, actions[0].Kind)
	assert.Equal(t, models.OutcomeSucceeded, actions[0].Outcome)
	assert.Equal(t, "0xabc123", actions[0].TxHash)
	assert.Len(t, store.actions, 1, "every action is persisted")
}

func TestRespondToCriticalIgnoresNonCritical(t *testing.T) {
	client := newTxClient()
	controller, _ := newTestController(t, client, 5)

	metric := criticalMetric("alpha", addrA)
	metric.Status = models.HealthStatusWarning

	assert.Nil(t, controller.RespondToCritical(context.Background(), metric))
	assert.Equal(t, 0, client.attemptCount(addrA))
}

func TestRespondToCriticalSkipsUnsupported(t *testing.T) {
	client := newTxClient()
	controller, _ := newTestController(t, client, 5)

	actions := controller.RespondToCritical(context.Background(), criticalMetric("charlie", addrC))

	require.Len(t, actions, 1)
	assert.Equal(t, models.OutcomeSkipped, actions[0].Outcome)
	assert.Equal(t, "unsupported", actions[0].Reason)
	assert.Equal(t, 0, client.attemptCount(addrC), "no transaction for unsupported targets")
	assert.Equal(t, 5, controller.BudgetRemaining(), "skips never consume budget")
}

func TestBudgetExhaustionBecomesAlertOnly(t *testing.T) {
	client := newTxClient()
	controller, store := newTestController(t, client, 2)

	var executed, skipped int
	for _, target := range []struct {
		name    string
		address common.Address
	}{
		{"alpha", addrA}, {"bravo", addrB}, {"alpha", addrA},
	} {
		actions := controller.RespondToCritical(context.Background(), criticalMetric(target.name, target.address))
		require.Len(t, actions, 1)
		switch actions[0].Outcome {
		case models.OutcomeSucceeded:
			executed++
		case models.OutcomeSkipped:
			skipped++
			assert.Equal(t, "budget exhausted", actions[0].Reason)
		}
	}

	assert.Equal(t, 2, executed, "exactly the budgeted number of actions run")
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 0, controller.BudgetRemaining())

	store.mu.Lock()
	defer store.mu.Unlock()
	require.NotEmpty(t, store.alerts, "budget exhaustion raises an alert")
}

func TestResetBudgetStartsNewIncidentWindow(t *testing.T) {
	client := newTxClient()
	controller, _ := newTestController(t, client, 1)

	controller.RespondToCritical(context.Background(), criticalMetric("alpha", addrA))
	assert.Equal(t, 0, controller.BudgetRemaining())

	controller.ResetBudget()
	assert.Equal(t, 1, controller.BudgetRemaining())

	actions := controller.RespondToCritical(context.Background(), criticalMetric("bravo", addrB))
	require.Len(t, actions, 1)
	assert.Equal(t, models.OutcomeSucceeded, actions[0].Outcome)
}

func TestExecuteRetriesOnceOnTransientError(t *testing.T) {
	client := newTxClient()
	client.failFirst[addrA] = 1
	controller, _ := newTestController(t, client, 5)

	actions := controller.RespondToCritical(context.Background(), criticalMetric("alpha", addrA))

	require.Len(t, actions, 1)
	assert.Equal(t, models.OutcomeSucceeded, actions[0].Outcome)
	assert.Equal(t, 2, client.attemptCount(addrA), "one retry after the first transient failure")
}

func TestExecuteFailsAfterSecondFailure(t *testing.T) {
	client := newTxClient()
	client.failFirst[addrA] = 2
	controller, _ := newTestController(t, client, 5)

	actions := controller.RespondToCritical(context.Background(), criticalMetric("alpha", addrA))

	require.Len(t, actions, 1)
	assert.Equal(t, models.OutcomeFailed, actions[0].Outcome)
	assert.Equal(t, 2, client.attemptCount(addrA), "no third attempt")
}

func TestPauseAllBypassesBudgetAndIsolatesTargets(t *testing.T) {
	client := newTxClient()
	controller, _ := newTestController(t, client, 0)

	actions := controller.PauseAll(context.Background())

	require.Len(t, actions, 3)

	byName := make(map[string]models.EmergencyAction)
	for _, action := range actions {
		byName[action.Target.Name] = action
	}

	assert.Equal(t, models.OutcomeSucceeded, byName["alpha"].Outcome)
	assert.Equal(t, models.OutcomeSucceeded, byName["bravo"].Outcome)
	assert.Equal(t, models.OutcomeSkipped, byName["charlie"].Outcome)
	assert.Equal(t, "unsupported", byName["charlie"].Reason)
}

func TestSweepFundsRequiresWithdrawCapability(t *testing.T) {
	client := newTxClient()
	controller, _ := newTestController(t, client, 5)

	action := controller.SweepFunds(context.Background(), "bravo")
	assert.Equal(t, models.OutcomeSucceeded, action.Outcome)
	assert.Equal(t, models.ActionWithdraw, action.Kind)

	action = controller.SweepFunds(context.Background(), "alpha")
	assert.Equal(t, models.OutcomeSkipped, action.Outcome)
	assert.Equal(t, "unsupported", action.Reason)
}

func TestActionLogIsAppendOnly(t *testing.T) {
	client := newTxClient()
	controller, _ := newTestController(t, client, 5)

	controller.RespondToCritical(context.Background(), criticalMetric("alpha", addrA))
	controller.SweepFunds(context.Background(), "bravo")

	log := controller.ActionLog()
	require.Len(t, log, 2)
	assert.Equal(t, "alpha", log[0].Target.Name)
	assert.Equal(t, "bravo", log[1].Target.Name)
}
