// File: internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
)

// Kind classifies a verification failure. The distinction matters to whoever
// reads the report: an AccessorError usually means the script or a selector
// is broken, an AssertionFailure means the application regressed.
type Kind string

const (
	// KindLaunch: the browser process failed to start. Fatal to the whole run.
	KindLaunch Kind = "LaunchError"
	// KindContext: an isolated browser context could not be created.
	KindContext Kind = "ContextError"
	// KindNavigation: the navigation itself failed, including a final HTTP
	// response with status >= 400.
	KindNavigation Kind = "NavigationError"
	// KindNavigationTimeout: the readiness selector never appeared in time.
	KindNavigationTimeout Kind = "NavigationTimeout"
	// KindWaitTimeout: a wait_selector step expired.
	KindWaitTimeout Kind = "WaitTimeout"
	// KindAction: a step's target never became actionable within its timeout.
	KindAction Kind = "ActionError"
	// KindAccessor: an assertion's data read failed (element missing,
	// expression threw).
	KindAccessor Kind = "AccessorError"
	// KindAssertion: the accessor read fine but the predicate did not hold.
	KindAssertion Kind = "AssertionFailure"
)

// Error is the structured failure record every engine operation produces.
// It keeps enough context (step index, target, expected/actual, last DOM
// snapshot) for a human or CI system to diagnose without re-running.
type Error struct {
	Kind      Kind
	Op        string
	StepIndex int // -1 when the failure is not attributable to a step
	Target    string
	Expected  string
	Actual    string
	// LastDOM holds the last observed document snapshot for timeout kinds.
	LastDOM string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Op)
	if e.StepIndex >= 0 {
		msg = fmt.Sprintf("%s (step %d)", msg, e.StepIndex)
	}
	if e.Target != "" {
		msg = fmt.Sprintf("%s target=%q", msg, e.Target)
	}
	if e.Kind == KindAssertion {
		msg = fmt.Sprintf("%s expected=%q actual=%q", msg, e.Expected, e.Actual)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from an error chain, or "" if the error
// did not originate in the engine.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
