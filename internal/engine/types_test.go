// File: internal/engine/types_test.go
package engine_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verihawk/verihawk/internal/engine"
)

// TestResult_Lifecycle walks a passing scenario through its states.
func TestResult_Lifecycle(t *testing.T) {
	res := engine.NewResult("layout-mobile")
	assert.Equal(t, engine.StateNotStarted, res.CurrentState())

	res.Transition(engine.StateSessionAcquiring)
	res.Transition(engine.StateContextReady)
	res.Transition(engine.StateNavigating)
	res.Transition(engine.StateRunningSteps)
	res.Finalize()
	res.Transition(engine.StatePassed)
	res.Transition(engine.StateClosed)

	assert.Equal(t, engine.StatusPassed, res.Status)
	assert.Equal(t, engine.StateClosed, res.CurrentState())
	require.Len(t, res.States, 7)
}

// TestResult_FirstFailureWins keeps the original fatal error when teardown
// piles more errors on top.
func TestResult_FirstFailureWins(t *testing.T) {
	res := engine.NewResult("x")
	first := &engine.Error{Kind: engine.KindNavigationTimeout, Op: "wait for readiness selector", StepIndex: -1, Err: errors.New("deadline")}
	res.RecordFailure(first)
	res.RecordFailure(errors.New("teardown noise"))
	res.Finalize()

	assert.Equal(t, engine.StatusFailed, res.Status)
	assert.Equal(t, engine.KindNavigationTimeout, res.FailureKind)
	assert.Contains(t, res.Failure, "NavigationTimeout")
}

// TestResult_FailedAssertionFailsScenario fails the run even when no step
// raised a fatal error.
func TestResult_FailedAssertionFailsScenario(t *testing.T) {
	res := engine.NewResult("x")
	res.Assertions = append(res.Assertions, engine.AssertionOutcome{
		StepIndex: 0, Description: "d", Status: engine.StatusFailed,
	})
	res.Finalize()
	assert.Equal(t, engine.StatusFailed, res.Status)
}

// TestResult_FinalizeIdempotentStatus leaves an already-failed status alone.
func TestResult_FinalizeIdempotentStatus(t *testing.T) {
	res := engine.NewResult("x")
	res.RecordFailure(errors.New("boom"))
	res.Finalize()
	assert.Equal(t, engine.StatusFailed, res.Status)
}
