// File: cmd/orchestrator/main_test.go
package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
)

func TestVerdictErrorExitsZeroWhenReportProduced(t *testing.T) {
	failed := &models.OperationReport{OverallStatus: models.OverallFailed}

	assert.NoError(t, verdictError(false, failed), "a produced report exits zero by default, failed verdict included")
	assert.Error(t, verdictError(true, failed), "strict mode opts in to failing the process")
	assert.NoError(t, verdictError(true, &models.OperationReport{OverallStatus: models.OverallPartial}))
	assert.NoError(t, verdictError(true, &models.OperationReport{OverallStatus: models.OverallSuccess}))
}
