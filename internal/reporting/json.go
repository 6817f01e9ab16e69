// File: internal/reporting/json.go
package reporting

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/verihawk/verihawk/internal/orchestrator"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReporter renders the run report as one indented JSON document, the
// machine-readable surface CI systems consume.
type JSONReporter struct {
	writer io.WriteCloser
}

// NewJSONReporter takes ownership of the writer.
func NewJSONReporter(w io.WriteCloser) *JSONReporter {
	return &JSONReporter{writer: w}
}

// Write serializes the report.
func (r *JSONReporter) Write(report *orchestrator.Report) error {
	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// Close releases the underlying writer.
func (r *JSONReporter) Close() error {
	return r.writer.Close()
}
