// File: internal/phases/verification_test.go
package phases

import (
	"context"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/registry"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// stubVerifier is a canned source verifier
type stubVerifier struct {
	mu        sync.Mutex
	verified  map[common.Address]bool
	checkErr  map[common.Address]error
	submitErr map[common.Address]error
	submitted []common.Address
}

func newStubVerifier() *stubVerifier {
	return &stubVerifier{
		verified:  make(map[common.Address]bool),
		checkErr:  make(map[common.Address]error),
		submitErr: make(map[common.Address]error),
	}
}

func (sv *stubVerifier) IsVerified(ctx context.Context, address common.Address) (bool, error) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if err := sv.checkErr[address]; err != nil {
		return false, err
	}
	return sv.verified[address], nil
}

func (sv *stubVerifier) Verify(ctx context.Context, address common.Address) error {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if err := sv.submitErr[address]; err != nil {
		return err
	}
	sv.submitted = append(sv.submitted, address)
	return nil
}

var (
	verAddrA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	verAddrB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func verifyRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.FromRecords([]models.ContractRecord{
		{Name: "alpha", Address: verAddrA, Capabilities: []models.Capability{models.CapabilityVerify}},
		{Name: "bravo", Address: verAddrB, Capabilities: []models.Capability{models.CapabilityVerify}},
	})
	require.NoError(t, err)
	return reg
}

func TestVerificationPhaseSubmitsUnverified(t *testing.T) {
	reg := verifyRegistry(t)
	verifier := newStubVerifier()

	phase := NewVerificationPhase(reg, verifier)
	result := phase.Execute(context.Background())

	assert.Equal(t, models.PhaseVerification, result.PhaseName)
	assert.True(t, result.Completed)
	assert.Equal(t, 2, result.SucceededCount)
	assert.Equal(t, 2, result.TotalCount)
	assert.Len(t, verifier.submitted, 2)
}

func TestVerificationPhaseIsIdempotent(t *testing.T) {
	reg := verifyRegistry(t)
	verifier := newStubVerifier()
	verifier.verified[verAddrA] = true
	verifier.verified[verAddrB] = true

	phase := NewVerificationPhase(reg, verifier)
	result := phase.Execute(context.Background())

	assert.True(t, result.FullySucceeded())
	assert.Empty(t, verifier.submitted, "already-verified contracts are not resubmitted")
}

func TestVerificationPhaseIsolatesFailures(t *testing.T) {
	reg := verifyRegistry(t)
	verifier := newStubVerifier()
	verifier.checkErr[verAddrA] = utils.NewAppError(utils.ErrCodeTransientIO, "explorer down", "")

	phase := NewVerificationPhase(reg, verifier)
	result := phase.Execute(context.Background())

	assert.True(t, result.Completed)
	assert.Equal(t, 1, result.SucceededCount)
	assert.Equal(t, []string{"alpha"}, result.FailedItems)
}

func TestVerificationPhaseCancellation(t *testing.T) {
	reg := verifyRegistry(t)
	verifier := newStubVerifier()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	phase := NewVerificationPhase(reg, verifier)
	result := phase.Execute(ctx)

	assert.False(t, result.Completed)
	assert.Zero(t, result.SucceededCount)
	assert.Equal(t, []string{"cancelled"}, result.FailedItems)
}

func TestVerificationPhaseCoversWholeRegistryWithoutTags(t *testing.T) {
	reg, err := registry.FromRecords([]models.ContractRecord{
		{Name: "alpha", Address: verAddrA},
		{Name: "bravo", Address: verAddrB, Capabilities: []models.Capability{models.CapabilityPause}},
	})
	require.NoError(t, err)

	phase := NewVerificationPhase(reg, newStubVerifier())
	result := phase.Execute(context.Background())

	assert.Equal(t, 2, result.TotalCount, "untagged registries are verified in full")
}
