// File: internal/reporting/reporter_test.go
package reporting_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verihawk/verihawk/internal/engine"
	"github.com/verihawk/verihawk/internal/orchestrator"
	"github.com/verihawk/verihawk/internal/reporting"
)

func sampleReport() *orchestrator.Report {
	return &orchestrator.Report{
		RunID:     "0c9d7c1e-5ad2-4ab2-9e7b-0b9a45f2d111",
		StartedAt: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		Duration:  3 * time.Second,
		Status:    engine.StatusFailed,
		Scenarios: []engine.Result{
			{
				Scenario: "layout-mobile",
				Status:   engine.StatusPassed,
				States:   []engine.State{engine.StateNotStarted, engine.StateClosed},
				Steps: []engine.StepOutcome{
					{Index: 0, Kind: "scroll", Target: "top", Status: engine.StatusPassed},
				},
				Artifacts: []engine.Artifact{
					{Name: "layout-top", Kind: "viewport", Path: "artifacts/layout-mobile/layout-top.png", Bytes: 4096},
				},
			},
			{
				Scenario:    "region-default",
				Status:      engine.StatusFailed,
				States:      []engine.State{engine.StateNotStarted, engine.StateClosed},
				FailureKind: engine.KindAssertion,
				Failure:     `AssertionFailure: assert (step 0)`,
				Assertions: []engine.AssertionOutcome{
					{StepIndex: 0, Description: "default region", Status: engine.StatusFailed,
						Expected: "england-wales", Actual: "scotland", ErrorKind: engine.KindAssertion},
				},
			},
		},
	}
}

// TestNew_Formats covers the format switch and the stdout wrapper.
func TestNew_Formats(t *testing.T) {
	r, err := reporting.New("json", "stdout")
	require.NoError(t, err)
	assert.NoError(t, r.Close())

	r, err = reporting.New("summary", "")
	require.NoError(t, err)
	assert.NoError(t, r.Close())

	_, err = reporting.New("sarif", "stdout")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format: sarif")
}

// TestJSONReporter_RoundTrip writes the report to a file and decodes it back
// unchanged.
func TestJSONReporter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	r, err := reporting.New("json", path)
	require.NoError(t, err)

	report := sampleReport()
	require.NoError(t, r.Write(report))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded orchestrator.Report
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &decoded))
	if diff := cmp.Diff(report, &decoded); diff != "" {
		t.Errorf("report changed across encode/decode (-want +got):\n%s", diff)
	}
}

// TestSummaryReporter_Content checks the digest names the failure and the
// artifacts.
func TestSummaryReporter_Content(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.txt")
	r, err := reporting.New("summary", path)
	require.NoError(t, err)

	require.NoError(t, r.Write(sampleReport()))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "FAILED (1/2 scenarios passed")
	assert.Contains(t, out, "[PASS] layout-mobile")
	assert.Contains(t, out, "[FAIL] region-default")
	assert.Contains(t, out, `assertion "default region": expected "england-wales", got "scotland"`)
	assert.Contains(t, out, "artifacts/layout-mobile/layout-top.png")
}
