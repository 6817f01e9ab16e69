// File: internal/engine/types.go
package engine

import (
	"time"

	"github.com/verihawk/verihawk/internal/scenario"
)

// Status is the terminal outcome of a scenario or a single outcome record.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// State tracks a scenario flow through its lifecycle. Closed is always
// reached, even when an earlier stage fails.
type State string

const (
	StateNotStarted       State = "not_started"
	StateSessionAcquiring State = "session_acquiring"
	StateContextReady     State = "context_ready"
	StateNavigating       State = "navigating"
	StateRunningSteps     State = "running_steps"
	StatePassed           State = "passed"
	StateFailed           State = "failed"
	StateClosed           State = "closed"
)

// StepOutcome records one executed step.
type StepOutcome struct {
	Index    int               `json:"index"`
	Kind     scenario.StepKind `json:"kind"`
	Target   string            `json:"target,omitempty"`
	Status   Status            `json:"status"`
	Duration time.Duration     `json:"duration"`
	// Detail carries step-specific info, e.g. an evaluate result.
	Detail string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AssertionOutcome records one evaluated assertion with verbatim
// expected/actual values.
type AssertionOutcome struct {
	StepIndex   int    `json:"step_index"`
	Description string `json:"description"`
	Status      Status `json:"status"`
	Expected    string `json:"expected"`
	Actual      string `json:"actual"`
	// ErrorKind distinguishes AccessorError from AssertionFailure.
	ErrorKind Kind `json:"error_kind,omitempty"`
}

// Artifact is one captured, durably written image.
type Artifact struct {
	Name  string                `json:"name"`
	Kind  scenario.CaptureKind  `json:"kind"`
	Path  string                `json:"path"`
	Bytes int                   `json:"bytes"`
}

// Result aggregates everything one scenario flow produced.
type Result struct {
	Scenario   string             `json:"scenario"`
	Status     Status             `json:"status"`
	States     []State            `json:"states"`
	Steps      []StepOutcome      `json:"steps"`
	Assertions []AssertionOutcome `json:"assertions"`
	Artifacts  []Artifact         `json:"artifacts"`
	// FailureKind and Failure describe the first fatal error, if any.
	FailureKind Kind          `json:"failure_kind,omitempty"`
	Failure     string        `json:"failure,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// NewResult starts a result in the NotStarted state.
func NewResult(name string) *Result {
	return &Result{
		Scenario:  name,
		States:    []State{StateNotStarted},
		StartedAt: time.Now(),
	}
}

// Transition appends a lifecycle state.
func (r *Result) Transition(s State) {
	r.States = append(r.States, s)
}

// CurrentState returns the most recent lifecycle state.
func (r *Result) CurrentState() State {
	return r.States[len(r.States)-1]
}

// RecordFailure marks the scenario failed with the given error. Only the
// first fatal error is kept; later teardown noise must not mask it.
func (r *Result) RecordFailure(err error) {
	if r.Status == StatusFailed {
		return
	}
	r.Status = StatusFailed
	r.FailureKind = KindOf(err)
	r.Failure = err.Error()
}

// Finalize stamps the duration and settles the terminal status: a scenario
// passes iff no step raised a fatal error and every assertion passed.
func (r *Result) Finalize() {
	r.Duration = time.Since(r.StartedAt)
	if r.Status == "" {
		r.Status = StatusPassed
		for _, a := range r.Assertions {
			if a.Status == StatusFailed {
				r.Status = StatusFailed
				break
			}
		}
	}
}
