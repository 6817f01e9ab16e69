// File: internal/reporting/summary.go
package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/verihawk/verihawk/internal/engine"
	"github.com/verihawk/verihawk/internal/orchestrator"
)

// SummaryReporter renders a compact human-readable digest: one line per
// scenario, plus the first failure and the artifact list when relevant.
type SummaryReporter struct {
	writer io.WriteCloser
}

// NewSummaryReporter takes ownership of the writer.
func NewSummaryReporter(w io.WriteCloser) *SummaryReporter {
	return &SummaryReporter{writer: w}
}

// Write renders the digest.
func (r *SummaryReporter) Write(report *orchestrator.Report) error {
	var b strings.Builder
	passed := 0
	for i := range report.Scenarios {
		if report.Scenarios[i].Status == engine.StatusPassed {
			passed++
		}
	}
	fmt.Fprintf(&b, "Run %s: %s (%d/%d scenarios passed, %s)\n",
		report.RunID, strings.ToUpper(string(report.Status)),
		passed, len(report.Scenarios), report.Duration.Round(1e6))

	for i := range report.Scenarios {
		res := &report.Scenarios[i]
		marker := "PASS"
		if res.Status != engine.StatusPassed {
			marker = "FAIL"
		}
		fmt.Fprintf(&b, "  [%s] %-24s %d steps, %d assertions, %d artifacts (%s)\n",
			marker, res.Scenario, len(res.Steps), len(res.Assertions), len(res.Artifacts),
			res.Duration.Round(1e6))

		if res.Status != engine.StatusPassed {
			if res.Failure != "" {
				fmt.Fprintf(&b, "         failure: [%s] %s\n", res.FailureKind, res.Failure)
			}
			for _, a := range res.Assertions {
				if a.Status == engine.StatusFailed {
					fmt.Fprintf(&b, "         assertion %q: expected %q, got %q\n",
						a.Description, a.Expected, a.Actual)
					break
				}
			}
		}
		for _, art := range res.Artifacts {
			fmt.Fprintf(&b, "         artifact: %s (%s, %d bytes)\n", art.Path, art.Kind, art.Bytes)
		}
	}

	_, err := io.WriteString(r.writer, b.String())
	return err
}

// Close releases the underlying writer.
func (r *SummaryReporter) Close() error {
	return r.writer.Close()
}
