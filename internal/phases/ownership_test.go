// File: internal/phases/ownership_test.go
package phases

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/registry"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// ownerClient serves owner() reads and records transfer transactions
type ownerClient struct {
	mu       sync.Mutex
	owners   map[common.Address]common.Address
	readErr  map[common.Address]error
	txErr    map[common.Address]error
	transfer map[common.Address][]byte
}

func newOwnerClient() *ownerClient {
	return &ownerClient{
		owners:   make(map[common.Address]common.Address),
		readErr:  make(map[common.Address]error),
		txErr:    make(map[common.Address]error),
		transfer: make(map[common.Address][]byte),
	}
}

func (c *ownerClient) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (c *ownerClient) GetActivityCount(ctx context.Context, address common.Address) (uint64, error) {
	return 0, nil
}

func (c *ownerClient) GetFeeLevel(ctx context.Context) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (c *ownerClient) CallContract(ctx context.Context, address common.Address, data []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readErr[address]; err != nil {
		return nil, err
	}
	return common.LeftPadBytes(c.owners[address].Bytes(), 32), nil
}

func (c *ownerClient) Transact(ctx context.Context, address common.Address, data []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.txErr[address]; err != nil {
		return "", err
	}
	c.transfer[address] = data
	return "0xdeadbeef", nil
}

func (c *ownerClient) HasSigner() bool                       { return true }
func (c *ownerClient) HealthCheck(ctx context.Context) error { return nil }
func (c *ownerClient) Close() error                          { return nil }

var (
	ownAddrA = common.HexToAddress("0x4444444444444444444444444444444444444444")
	ownAddrB = common.HexToAddress("0x5555555555555555555555555555555555555555")
	multisig = common.HexToAddress("0x9999999999999999999999999999999999999999")
	deployer = common.HexToAddress("0x8888888888888888888888888888888888888888")
)

func ownableRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.FromRecords([]models.ContractRecord{
		{Name: "alpha", Address: ownAddrA, Capabilities: []models.Capability{models.CapabilityOwnable}},
		{Name: "bravo", Address: ownAddrB, Capabilities: []models.Capability{models.CapabilityOwnable}},
		{Name: "charlie", Address: common.HexToAddress("0x6666666666666666666666666666666666666666")},
	})
	require.NoError(t, err)
	return reg
}

func TestOwnershipPhaseTransfersToMultisig(t *testing.T) {
	reg := ownableRegistry(t)
	client := newOwnerClient()
	client.owners[ownAddrA] = deployer
	client.owners[ownAddrB] = deployer

	phase := NewOwnershipPhase(reg, client, multisig)
	result := phase.Execute(context.Background())

	assert.Equal(t, models.PhaseOwnershipTransfer, result.PhaseName)
	assert.True(t, result.FullySucceeded())
	assert.Equal(t, 2, result.TotalCount, "only ownable contracts are targets")

	data := client.transfer[ownAddrA]
	require.Len(t, data, 36, "selector plus padded address")
	assert.Equal(t, utils.MethodSelector("transferOwnership(address)"), data[:4])
	assert.Equal(t, common.LeftPadBytes(multisig.Bytes(), 32), data[4:])
}

func TestOwnershipPhaseSkipsExistingMultisigOwner(t *testing.T) {
	reg := ownableRegistry(t)
	client := newOwnerClient()
	client.owners[ownAddrA] = multisig
	client.owners[ownAddrB] = deployer

	phase := NewOwnershipPhase(reg, client, multisig)
	result := phase.Execute(context.Background())

	assert.True(t, result.FullySucceeded())
	_, transferred := client.transfer[ownAddrA]
	assert.False(t, transferred, "no transaction when the multisig already owns the contract")
	_, transferred = client.transfer[ownAddrB]
	assert.True(t, transferred)
}

func TestOwnershipPhaseIsolatesFailures(t *testing.T) {
	reg := ownableRegistry(t)
	client := newOwnerClient()
	client.owners[ownAddrA] = deployer
	client.owners[ownAddrB] = deployer
	client.txErr[ownAddrA] = utils.NewAppError(utils.ErrCodeBlockchain, "execution reverted", "")

	phase := NewOwnershipPhase(reg, client, multisig)
	result := phase.Execute(context.Background())

	assert.True(t, result.Completed)
	assert.Equal(t, 1, result.SucceededCount)
	assert.Equal(t, []string{"alpha"}, result.FailedItems)
}

func TestOwnershipPhaseCancellation(t *testing.T) {
	reg := ownableRegistry(t)
	client := newOwnerClient()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	phase := NewOwnershipPhase(reg, client, multisig)
	result := phase.Execute(ctx)

	assert.False(t, result.Completed)
	assert.Equal(t, []string{"cancelled"}, result.FailedItems)
}
