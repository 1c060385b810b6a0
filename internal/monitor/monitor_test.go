// File: internal/monitor/monitor_test.go
package monitor

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/registry"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// stubClient is a canned-response ledger client for monitor tests
type stubClient struct {
	balances map[common.Address]*big.Int
	failing  map[common.Address]bool
	gasPrice *big.Int
	feeErr   error
}

func (c *stubClient) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	if c.failing[address] {
		return nil, utils.NewAppError(utils.ErrCodeTransientIO, "node unreachable", "")
	}
	return new(big.Int).Set(c.balances[address]), nil
}

func (c *stubClient) GetActivityCount(ctx context.Context, address common.Address) (uint64, error) {
	if c.failing[address] {
		return 0, utils.NewAppError(utils.ErrCodeTransientIO, "node unreachable", "")
	}
	return 7, nil
}

func (c *stubClient) GetFeeLevel(ctx context.Context) (*big.Int, error) {
	if c.feeErr != nil {
		return nil, c.feeErr
	}
	return new(big.Int).Set(c.gasPrice), nil
}

func (c *stubClient) CallContract(ctx context.Context, address common.Address, data []byte) ([]byte, error) {
	return nil, nil
}

func (c *stubClient) Transact(ctx context.Context, address common.Address, data []byte) (string, error) {
	return "", nil
}

func (c *stubClient) HasSigner() bool                       { return false }
func (c *stubClient) HealthCheck(ctx context.Context) error { return nil }
func (c *stubClient) Close() error                          { return nil }

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.FromRecords([]models.ContractRecord{
		{Name: "alpha", Address: common.HexToAddress("0x1111111111111111111111111111111111111111")},
		{Name: "bravo", Address: common.HexToAddress("0x2222222222222222222222222222222222222222")},
		{Name: "charlie", Address: common.HexToAddress("0x3333333333333333333333333333333333333333")},
	})
	require.NoError(t, err)
	return reg
}

// rbtc converts an RBTC amount in hundredths to wei
func rbtc(hundredths int64) *big.Int {
	wei := new(big.Int).Mul(big.NewInt(hundredths), big.NewInt(1e16))
	return wei
}

func TestCheckAllClassification(t *testing.T) {
	reg := testRegistry(t)

	client := &stubClient{
		balances: map[common.Address]*big.Int{
			common.HexToAddress("0x1111111111111111111111111111111111111111"): rbtc(5),   // 0.05 RBTC
			common.HexToAddress("0x2222222222222222222222222222222222222222"): rbtc(100), // 1.0 RBTC
		},
		failing: map[common.Address]bool{
			common.HexToAddress("0x3333333333333333333333333333333333333333"): true,
		},
		gasPrice: big.NewInt(1e8),
	}

	hm := NewHealthMonitor(client, reg, &MonitorConfig{
		BalanceThreshold:  rbtc(10), // 0.1 RBTC
		GasPriceThreshold: big.NewInt(1e9),
		CheckTimeout:      5 * time.Second,
	})

	metrics := hm.CheckAll(context.Background())

	require.Len(t, metrics, reg.Len(), "one metric per registered contract")

	assert.Equal(t, models.HealthStatusWarning, metrics["alpha"].Status)
	assert.Equal(t, models.HealthStatusHealthy, metrics["bravo"].Status)
	assert.Equal(t, models.HealthStatusCritical, metrics["charlie"].Status)
	assert.NotEmpty(t, metrics["charlie"].Error)
	assert.Equal(t, big.NewInt(0), metrics["charlie"].NativeBalance)
}

func TestCheckAllIsIdempotent(t *testing.T) {
	reg := testRegistry(t)

	client := &stubClient{
		balances: map[common.Address]*big.Int{
			common.HexToAddress("0x1111111111111111111111111111111111111111"): rbtc(5),
			common.HexToAddress("0x2222222222222222222222222222222222222222"): rbtc(100),
		},
		failing: map[common.Address]bool{
			common.HexToAddress("0x3333333333333333333333333333333333333333"): true,
		},
		gasPrice: big.NewInt(1e8),
	}

	hm := NewHealthMonitor(client, reg, &MonitorConfig{
		BalanceThreshold:  rbtc(10),
		GasPriceThreshold: big.NewInt(1e9),
		CheckTimeout:      5 * time.Second,
	})

	first := hm.CheckAll(context.Background())
	second := hm.CheckAll(context.Background())

	for name := range first {
		assert.Equal(t, first[name].Status, second[name].Status,
			"classification must not change when state does not change: %s", name)
	}
}

func TestCheckFeesClassification(t *testing.T) {
	reg := testRegistry(t)

	cfg := &MonitorConfig{
		BalanceThreshold:  rbtc(10),
		GasPriceThreshold: big.NewInt(1000),
		CheckTimeout:      5 * time.Second,
	}

	cases := []struct {
		name     string
		gasPrice *big.Int
		want     models.FeeStatus
	}{
		{"normal at threshold", big.NewInt(1000), models.FeeStatusNormal},
		{"high above threshold", big.NewInt(1500), models.FeeStatusHigh},
		{"critical above double", big.NewInt(2001), models.FeeStatusCritical},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &stubClient{gasPrice: tc.gasPrice}
			hm := NewHealthMonitor(client, reg, cfg)

			level := hm.CheckFees(context.Background())
			assert.Equal(t, tc.want, level.Status)
			assert.Equal(t, tc.gasPrice, level.FeeValue)
		})
	}
}

func TestCheckFeesReadFailureIsCritical(t *testing.T) {
	reg := testRegistry(t)

	client := &stubClient{
		feeErr: utils.NewAppError(utils.ErrCodeTransientIO, "node unreachable", ""),
	}
	hm := NewHealthMonitor(client, reg, &MonitorConfig{
		BalanceThreshold:  rbtc(10),
		GasPriceThreshold: big.NewInt(1000),
		CheckTimeout:      5 * time.Second,
	})

	level := hm.CheckFees(context.Background())
	assert.Equal(t, models.FeeStatusCritical, level.Status)
}
