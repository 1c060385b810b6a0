// File: internal/orchestrator/report.go
package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// ReportWriter persists operation reports as write-once files. Paths
// embed the run timestamp and an existing file is never overwritten.
type ReportWriter struct {
	outputDir string
	logger    *logrus.Entry
}

// NewReportWriter creates a new report writer
func NewReportWriter(outputDir string) *ReportWriter {
	return &ReportWriter{
		outputDir: outputDir,
		logger:    utils.ComponentLogger("report_writer"),
	}
}

// Write persists the report as JSON and Markdown and returns the paths
func (rw *ReportWriter) Write(report *models.OperationReport) (string, string, error) {
	if err := os.MkdirAll(rw.outputDir, 0o755); err != nil {
		return "", "", utils.NewAppError(utils.ErrCodePersistence, "Failed to create report directory", err.Error())
	}

	stamp := report.Timestamp.UTC().Format("20060102-150405")

	jsonPath, err := rw.writeOnce(fmt.Sprintf("readiness-%s", stamp), ".json", func() ([]byte, error) {
		return json.MarshalIndent(report, "", "  ")
	})
	if err != nil {
		return "", "", err
	}

	mdPath, err := rw.writeOnce(fmt.Sprintf("readiness-%s", stamp), ".md", func() ([]byte, error) {
		return []byte(renderMarkdown(report)), nil
	})
	if err != nil {
		return jsonPath, "", err
	}

	rw.logger.WithFields(logrus.Fields{
		"json": jsonPath,
		"md":   mdPath,
	}).Info("Operation report persisted")
	return jsonPath, mdPath, nil
}

// writeOnce writes a file, suffixing the name instead of overwriting
// when a run in the same second already produced one
func (rw *ReportWriter) writeOnce(base, ext string, render func() ([]byte, error)) (string, error) {
	data, err := render()
	if err != nil {
		return "", utils.NewAppError(utils.ErrCodeInternal, "Failed to render report", err.Error())
	}

	for suffix := 0; suffix < 100; suffix++ {
		name := base + ext
		if suffix > 0 {
			name = fmt.Sprintf("%s-%d%s", base, suffix, ext)
		}
		path := filepath.Join(rw.outputDir, name)

		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", utils.NewAppError(utils.ErrCodePersistence, "Failed to create report file", err.Error())
		}

		if _, err := file.Write(data); err != nil {
			file.Close()
			return "", utils.NewAppError(utils.ErrCodePersistence, "Failed to write report file", err.Error())
		}
		if err := file.Close(); err != nil {
			return "", utils.NewAppError(utils.ErrCodePersistence, "Failed to close report file", err.Error())
		}
		return path, nil
	}

	return "", utils.NewAppError(utils.ErrCodePersistence, "Exhausted report path suffixes", base)
}

// renderMarkdown renders the human-readable report
func renderMarkdown(report *models.OperationReport) string {
	var b strings.Builder

	b.WriteString("# Production Readiness Report\n\n")
	b.WriteString(fmt.Sprintf("- **Network:** %s\n", report.Network))
	b.WriteString(fmt.Sprintf("- **Run at:** %s\n", report.Timestamp.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("- **Overall status:** %s\n\n", strings.ToUpper(string(report.OverallStatus))))

	b.WriteString("## Phases\n\n")
	b.WriteString("| Phase | Completed | Succeeded | Total | Failed items |\n")
	b.WriteString("|-------|-----------|-----------|-------|--------------|\n")
	for _, phase := range report.PhaseResults {
		failed := "-"
		if len(phase.FailedItems) > 0 {
			failed = strings.Join(phase.FailedItems, ", ")
		}
		b.WriteString(fmt.Sprintf("| %s | %t | %d | %d | %s |\n",
			phase.PhaseName, phase.Completed, phase.SucceededCount, phase.TotalCount, failed))
	}

	if len(report.Recommendations) > 0 {
		b.WriteString("\n## Recommendations\n\n")
		for _, rec := range report.Recommendations {
			b.WriteString(fmt.Sprintf("- %s\n", rec))
		}
	}

	b.WriteString("\n")
	return b.String()
}
