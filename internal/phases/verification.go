// File: internal/phases/verification.go
package phases

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/registry"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// SourceVerifier checks or submits contract source verification with
// an external explorer service
type SourceVerifier interface {
	// IsVerified reports whether the contract's source is already
	// verified with the explorer
	IsVerified(ctx context.Context, address common.Address) (bool, error)
	// Verify submits the contract for verification
	Verify(ctx context.Context, address common.Address) error
}

// ExplorerVerifier implements SourceVerifier against a
// Blockscout-compatible explorer API
type ExplorerVerifier struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Entry
}

// NewExplorerVerifier creates a new explorer-backed source verifier
func NewExplorerVerifier(baseURL, apiKey string, timeout time.Duration) *ExplorerVerifier {
	return &ExplorerVerifier{
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  utils.ComponentLogger("explorer_verifier"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// explorerResponse is the envelope of Blockscout-style API responses
type explorerResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// IsVerified queries the explorer for existing verified source
func (ev *ExplorerVerifier) IsVerified(ctx context.Context, address common.Address) (bool, error) {
	query := url.Values{}
	query.Set("module", "contract")
	query.Set("action", "getsourcecode")
	query.Set("address", address.Hex())
	if ev.apiKey != "" {
		query.Set("apikey", ev.apiKey)
	}

	resp, err := ev.get(ctx, query)
	if err != nil {
		return false, err
	}

	var sources []struct {
		SourceCode string `json:"SourceCode"`
	}
	if err := json.Unmarshal(resp.Result, &sources); err != nil {
		return false, utils.NewAppError(utils.ErrCodeExternal, "Unexpected explorer response", err.Error())
	}

	verified := len(sources) > 0 && sources[0].SourceCode != ""
	ev.logger.WithFields(logrus.Fields{
		"address":  address.Hex(),
		"verified": verified,
	}).Debug("Checked source verification status")
	return verified, nil
}

// Verify submits the contract for source verification
func (ev *ExplorerVerifier) Verify(ctx context.Context, address common.Address) error {
	query := url.Values{}
	query.Set("module", "contract")
	query.Set("action", "verify")
	query.Set("address", address.Hex())
	if ev.apiKey != "" {
		query.Set("apikey", ev.apiKey)
	}

	resp, err := ev.get(ctx, query)
	if err != nil {
		return err
	}

	if resp.Status != "1" {
		return utils.NewAppError(utils.ErrCodeExternal, "Explorer rejected verification request", resp.Message)
	}
	return nil
}

// get issues one explorer API request and decodes the envelope
func (ev *ExplorerVerifier) get(ctx context.Context, query url.Values) (*explorerResponse, error) {
	requestURL := fmt.Sprintf("%s/api?%s", ev.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeInternal, "Failed to create explorer request", err.Error())
	}

	resp, err := ev.httpClient.Do(req)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeTransientIO, "Explorer request failed", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, utils.NewAppError(utils.ErrCodeExternal,
			"Explorer returned non-success status",
			fmt.Sprintf("status: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeTransientIO, "Failed to read explorer response", err.Error())
	}

	var envelope explorerResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeExternal, "Failed to parse explorer response", err.Error())
	}
	return &envelope, nil
}

var _ SourceVerifier = (*ExplorerVerifier)(nil)

// VerificationPhase ensures every registered contract's source is
// verified with the explorer. Already-verified contracts count as
// immediate successes, so the phase is idempotent across runs.
type VerificationPhase struct {
	registry *registry.Registry
	verifier SourceVerifier
	logger   *logrus.Entry
}

// NewVerificationPhase creates a new verification phase
func NewVerificationPhase(reg *registry.Registry, verifier SourceVerifier) *VerificationPhase {
	return &VerificationPhase{
		registry: reg,
		verifier: verifier,
		logger:   utils.ComponentLogger("verification_phase"),
	}
}

// Name returns the phase name
func (vp *VerificationPhase) Name() string {
	return models.PhaseVerification
}

// Execute verifies each contract's source, isolating per-contract
// failures
func (vp *VerificationPhase) Execute(ctx context.Context) models.PhaseResult {
	contracts := vp.targets()
	result := models.PhaseResult{
		PhaseName:  vp.Name(),
		TotalCount: len(contracts),
	}

	for _, record := range contracts {
		select {
		case <-ctx.Done():
			return CancelledResult(vp.Name())
		default:
		}

		if err := vp.verifyOne(ctx, record); err != nil {
			vp.logger.WithFields(logrus.Fields{
				"contract": record.Name,
				"error":    err,
			}).Warn("Contract verification failed")
			result.FailedItems = append(result.FailedItems, record.Name)
			continue
		}
		result.SucceededCount++
	}

	result.Completed = true
	return result
}

// targets returns the contracts this phase covers: contracts that
// declare the verify capability, or the whole registry when none do
func (vp *VerificationPhase) targets() []models.ContractRecord {
	tagged := vp.registry.WithCapability(models.CapabilityVerify)
	if len(tagged) > 0 {
		return tagged
	}
	return vp.registry.All()
}

// verifyOne ensures one contract is verified, skipping submission when
// the explorer already has its source
func (vp *VerificationPhase) verifyOne(ctx context.Context, record models.ContractRecord) error {
	verified, err := vp.verifier.IsVerified(ctx, record.Address)
	if err != nil {
		return err
	}
	if verified {
		vp.logger.WithField("contract", record.Name).Debug("Source already verified")
		return nil
	}

	return vp.verifier.Verify(ctx, record.Address)
}

var _ Phase = (*VerificationPhase)(nil)
