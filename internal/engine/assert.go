// File: internal/engine/assert.go
// Description: Reads observable page state through accessors and evaluates
// predicates against it. Assertion failures are fatal to the scenario, so the
// outcome carries enough detail (expected vs actual) to diagnose from the
// report alone.

package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/verihawk/verihawk/internal/scenario"
)

// Asserter evaluates scenario assertions against the live page.
type Asserter struct {
	logger *zap.Logger
}

// NewAsserter creates an Asserter.
func NewAsserter(logger *zap.Logger) *Asserter {
	return &Asserter{logger: logger.Named("asserter")}
}

// Check reads the accessor, applies the predicate, and returns the outcome.
// A non-nil error means either the read failed (AccessorError) or a clean
// read failed the predicate (AssertionFailure).
func (a *Asserter) Check(ctx context.Context, stepIndex int, as *scenario.Assertion) (AssertionOutcome, error) {
	actual, present, err := a.read(ctx, stepIndex, &as.Accessor)
	if err != nil {
		return AssertionOutcome{
			StepIndex:   stepIndex,
			Description: as.Describe(),
			Expected:    as.Expect.Value,
			Status:      StatusFailed,
			ErrorKind:   KindAccessor,
		}, err
	}

	outcome, verr := judge(stepIndex, as, actual, present)
	switch {
	case verr == nil:
		a.logger.Debug("Assertion passed.", zap.Int("step", stepIndex), zap.String("assertion", outcome.Description))
	case outcome.ErrorKind == KindAssertion:
		a.logger.Warn("Assertion failed.",
			zap.Int("step", stepIndex),
			zap.String("assertion", outcome.Description),
			zap.String("expected", outcome.Expected),
			zap.String("actual", outcome.Actual))
	}
	return outcome, verr
}

// judge applies the predicate to a completed read. A selector that matched
// nothing is a script defect, not an application regression: it becomes an
// AccessorError for every operator except the two that reason about presence
// itself (exists/absent).
func judge(stepIndex int, as *scenario.Assertion, actual string, present bool) (AssertionOutcome, error) {
	outcome := AssertionOutcome{
		StepIndex:   stepIndex,
		Description: as.Describe(),
		Expected:    as.Expect.Value,
		Actual:      actual,
	}

	if !present && as.Expect.Op != scenario.OpExists && as.Expect.Op != scenario.OpAbsent {
		outcome.Status = StatusFailed
		outcome.ErrorKind = KindAccessor
		return outcome, &Error{
			Kind:      KindAccessor,
			Op:        "read accessor",
			StepIndex: stepIndex,
			Target:    as.Accessor.Target(),
			Err:       fmt.Errorf("no element matches %q", as.Accessor.Target()),
		}
	}

	ok, err := applyPredicate(&as.Expect, actual, present)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.ErrorKind = KindAccessor
		return outcome, &Error{Kind: KindAccessor, Op: "evaluate predicate", StepIndex: stepIndex, Target: as.Accessor.Target(), Err: err}
	}
	if !ok {
		outcome.Status = StatusFailed
		outcome.ErrorKind = KindAssertion
		return outcome, &Error{
			Kind:      KindAssertion,
			Op:        "assert",
			StepIndex: stepIndex,
			Target:    as.Accessor.Target(),
			Expected:  outcome.Expected,
			Actual:    outcome.Actual,
			Err:       fmt.Errorf("assertion %q failed", outcome.Description),
		}
	}

	outcome.Status = StatusPassed
	return outcome, nil
}

// read resolves an accessor to its actual value. The second return reports
// whether the target was present at all, which the exists/absent predicates
// key off. Reads go through page-side JS so absence is distinguishable from
// an empty value without tripping chromedp's wait-for-node behavior.
func (a *Asserter) read(ctx context.Context, stepIndex int, acc *scenario.Accessor) (string, bool, error) {
	var expr string
	switch acc.Kind {
	case scenario.AccessorValue:
		expr = fmt.Sprintf(
			`(() => { const el = document.querySelector(%q); return el === null ? null : String(el.value ?? ""); })()`,
			acc.Selector)
	case scenario.AccessorText:
		expr = fmt.Sprintf(
			`(() => { const el = document.querySelector(%q); return el === null ? null : (el.textContent ?? ""); })()`,
			acc.Selector)
	case scenario.AccessorAttribute:
		// A present element with a missing attribute reads as empty, not as
		// an accessor failure.
		expr = fmt.Sprintf(
			`(() => { const el = document.querySelector(%q); return el === null ? null : (el.getAttribute(%q) ?? ""); })()`,
			acc.Selector, acc.Attribute)
	case scenario.AccessorExists:
		expr = fmt.Sprintf(
			`(() => document.querySelector(%q) === null ? null : "present")()`,
			acc.Selector)
	case scenario.AccessorCount:
		expr = fmt.Sprintf(
			`String(document.querySelectorAll(%q).length)`,
			acc.Selector)
	case scenario.AccessorExpression:
		expr = fmt.Sprintf(`(() => { const v = (%s); return v === null || v === undefined ? "" : String(v); })()`, acc.Expression)
	default:
		return "", false, &Error{Kind: KindAccessor, Op: "read accessor", StepIndex: stepIndex,
			Target: acc.Target(), Err: fmt.Errorf("unknown accessor kind %q", acc.Kind)}
	}

	var raw any
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &raw)); err != nil {
		return "", false, &Error{Kind: KindAccessor, Op: "read accessor", StepIndex: stepIndex,
			Target: acc.Target(), Err: err}
	}
	if raw == nil {
		// count never yields null; null means the selector matched nothing.
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		s = fmt.Sprintf("%v", raw)
	}
	if acc.Kind == scenario.AccessorExists {
		return "", true, nil
	}
	return s, true, nil
}

// applyPredicate evaluates op against the actual value.
func applyPredicate(p *scenario.Predicate, actual string, present bool) (bool, error) {
	switch p.Op {
	case scenario.OpEquals:
		return present && actual == p.Value, nil
	case scenario.OpNotEquals:
		return present && actual != p.Value, nil
	case scenario.OpContains:
		return present && strings.Contains(actual, p.Value), nil
	case scenario.OpMatches:
		if !present {
			return false, nil
		}
		re, err := regexp.Compile(p.Value)
		if err != nil {
			return false, fmt.Errorf("invalid match pattern %q: %w", p.Value, err)
		}
		return re.MatchString(actual), nil
	case scenario.OpExists:
		return present, nil
	case scenario.OpAbsent:
		return !present, nil
	default:
		return false, fmt.Errorf("unknown predicate op %q", p.Op)
	}
}
