// File: internal/engine/errors_test.go
package engine_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/verihawk/verihawk/internal/engine"
)

// TestKindOf extracts the failure kind through wrapping.
func TestKindOf(t *testing.T) {
	inner := &engine.Error{Kind: engine.KindWaitTimeout, Op: "wait for selector", StepIndex: 2, Target: ".toast.success"}
	wrapped := fmt.Errorf("scenario failed: %w", inner)

	assert.Equal(t, engine.KindWaitTimeout, engine.KindOf(wrapped))
	assert.Equal(t, engine.Kind(""), engine.KindOf(errors.New("plain")))
	assert.Equal(t, engine.Kind(""), engine.KindOf(nil))
}

// TestError_Message checks the rendered form carries the diagnostic fields.
func TestError_Message(t *testing.T) {
	err := &engine.Error{
		Kind:      engine.KindAssertion,
		Op:        "assert",
		StepIndex: 1,
		Target:    "#region-select",
		Expected:  "england-wales",
		Actual:    "scotland",
		Err:       errors.New(`assertion "default region" failed`),
	}
	msg := err.Error()
	assert.Contains(t, msg, "AssertionFailure")
	assert.Contains(t, msg, "step 1")
	assert.Contains(t, msg, `"#region-select"`)
	assert.Contains(t, msg, `expected="england-wales"`)
	assert.Contains(t, msg, `actual="scotland"`)
}

// TestError_UnattributedOmitsStep keeps launch-level failures free of a bogus
// step index.
func TestError_UnattributedOmitsStep(t *testing.T) {
	err := &engine.Error{Kind: engine.KindLaunch, Op: "launch browser", StepIndex: -1, Err: errors.New("exec not found")}
	assert.NotContains(t, err.Error(), "step")
	assert.Contains(t, err.Error(), "LaunchError")
}

// TestError_Unwrap preserves the cause chain for errors.Is.
func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &engine.Error{Kind: engine.KindAction, Op: "click", StepIndex: 0, Err: cause}
	assert.True(t, errors.Is(err, cause))
}
