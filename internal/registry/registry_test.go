// File: internal/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

func writeRegistryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contracts.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValidRegistry(t *testing.T) {
	path := writeRegistryFile(t, `[
		{"name": "token_bridge", "address": "0x1111111111111111111111111111111111111111", "capabilities": ["pause", "ownable"]},
		{"name": "staking_pool", "address": "0x2222222222222222222222222222222222222222", "capabilities": ["withdraw"]},
		{"name": "oracle_feed", "address": "0x3333333333333333333333333333333333333333"}
	]`)

	reg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())

	bridge, ok := reg.Get("token_bridge")
	require.True(t, ok)
	assert.True(t, bridge.HasCapability(models.CapabilityPause))
	assert.True(t, bridge.HasCapability(models.CapabilityOwnable))
	assert.False(t, bridge.HasCapability(models.CapabilityWithdraw))

	_, ok = reg.Get("unknown")
	assert.False(t, ok)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeConfiguration, utils.ErrorCode(err))
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeRegistryFile(t, `{"not": "a list"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeConfiguration, utils.ErrorCode(err))
}

func TestLoadRejectsInvalidEntries(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing name", `[{"address": "0x1111111111111111111111111111111111111111"}]`},
		{"bad address", `[{"name": "bridge", "address": "not-an-address"}]`},
		{"duplicate name", `[
			{"name": "bridge", "address": "0x1111111111111111111111111111111111111111"},
			{"name": "bridge", "address": "0x2222222222222222222222222222222222222222"}
		]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeRegistryFile(t, tc.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Equal(t, utils.ErrCodeValidation, utils.ErrorCode(err))
		})
	}
}

func TestAllReturnsStableOrder(t *testing.T) {
	path := writeRegistryFile(t, `[
		{"name": "zulu", "address": "0x1111111111111111111111111111111111111111"},
		{"name": "alpha", "address": "0x2222222222222222222222222222222222222222"},
		{"name": "mike", "address": "0x3333333333333333333333333333333333333333"}
	]`)

	reg, err := Load(path)
	require.NoError(t, err)

	var names []string
	for _, record := range reg.All() {
		names = append(names, record.Name)
	}
	assert.Equal(t, []string{"alpha", "mike", "zulu"}, names)
}

func TestWithCapability(t *testing.T) {
	path := writeRegistryFile(t, `[
		{"name": "bridge", "address": "0x1111111111111111111111111111111111111111", "capabilities": ["pause"]},
		{"name": "vault", "address": "0x2222222222222222222222222222222222222222", "capabilities": ["pause", "withdraw"]},
		{"name": "feed", "address": "0x3333333333333333333333333333333333333333"}
	]`)

	reg, err := Load(path)
	require.NoError(t, err)

	pauseable := reg.WithCapability(models.CapabilityPause)
	require.Len(t, pauseable, 2)
	assert.Equal(t, "bridge", pauseable[0].Name)
	assert.Equal(t, "vault", pauseable[1].Name)

	assert.Empty(t, reg.WithCapability(models.CapabilityVerify))
}
