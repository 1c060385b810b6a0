// File: internal/registry/registry.go
package registry

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// Registry is an immutable-for-the-run mapping from logical contract
// name to its on-chain record, loaded once at startup
type Registry struct {
	records map[string]models.ContractRecord
}

// registryEntry is the on-disk representation of one contract
type registryEntry struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Load reads the contract registry from a JSON file. A registry that
// cannot be read or parsed is a fatal configuration error for the run.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeConfiguration, "Failed to read contract registry", err.Error())
	}

	var entries []registryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeConfiguration, "Failed to parse contract registry", err.Error())
	}

	records := make(map[string]models.ContractRecord, len(entries))
	for _, entry := range entries {
		if entry.Name == "" {
			return nil, utils.NewAppError(utils.ErrCodeValidation, "Registry entry missing contract name", "")
		}
		if !utils.IsValidAddress(entry.Address) {
			return nil, utils.NewAppError(utils.ErrCodeValidation, "Registry entry has invalid address", entry.Name+": "+entry.Address)
		}
		if _, exists := records[entry.Name]; exists {
			return nil, utils.NewAppError(utils.ErrCodeValidation, "Duplicate contract name in registry", entry.Name)
		}

		caps := make([]models.Capability, 0, len(entry.Capabilities))
		for _, c := range entry.Capabilities {
			caps = append(caps, models.Capability(c))
		}

		records[entry.Name] = models.ContractRecord{
			Name:         entry.Name,
			Address:      common.HexToAddress(entry.Address),
			Capabilities: caps,
		}
	}

	utils.GetLogger().WithField("contracts", len(records)).Info("Contract registry loaded")
	return &Registry{records: records}, nil
}

// FromRecords builds a registry from already-validated records
func FromRecords(records []models.ContractRecord) (*Registry, error) {
	byName := make(map[string]models.ContractRecord, len(records))
	for _, record := range records {
		if _, exists := byName[record.Name]; exists {
			return nil, utils.NewAppError(utils.ErrCodeValidation, "Duplicate contract name in registry", record.Name)
		}
		byName[record.Name] = record
	}
	return &Registry{records: byName}, nil
}

// Get returns the record for a logical contract name
func (r *Registry) Get(name string) (models.ContractRecord, bool) {
	record, ok := r.records[name]
	return record, ok
}

// All returns every registered contract, sorted by name for stable
// iteration order
func (r *Registry) All() []models.ContractRecord {
	records := make([]models.ContractRecord, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records
}

// WithCapability returns every registered contract exposing the given
// capability, sorted by name
func (r *Registry) WithCapability(cap models.Capability) []models.ContractRecord {
	var records []models.ContractRecord
	for _, record := range r.All() {
		if record.HasCapability(cap) {
			records = append(records, record)
		}
	}
	return records
}

// Len returns the number of registered contracts
func (r *Registry) Len() int {
	return len(r.records)
}
