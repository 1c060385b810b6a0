// File: internal/phases/phase.go
package phases

import (
	"context"

	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
)

// Phase is one step of a readiness run. Execute never returns an
// error: every failure mode is normalized into the PhaseResult so the
// orchestrator can always continue to the next phase.
type Phase interface {
	Name() string
	Execute(ctx context.Context) models.PhaseResult
}

// CancelledResult normalizes a context cancellation into a phase
// result that did not complete
func CancelledResult(name string) models.PhaseResult {
	return models.PhaseResult{
		PhaseName:   name,
		Completed:   false,
		FailedItems: []string{"cancelled"},
	}
}
