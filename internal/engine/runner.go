// File: internal/engine/runner.go
// Description: Sequentially interprets a scenario's step script against a live
// tab. Steps are strictly ordered; the first fatal failure halts the scenario
// while preserving every outcome and artifact produced before it.

package engine

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/verihawk/verihawk/internal/scenario"
)

// RouteSealer freezes a context's network rule set. Sealing happens at first
// navigation so rule mutation races with in-flight requests are impossible.
type RouteSealer interface {
	Seal()
}

// Engine executes scenarios step by step inside an already-prepared context.
type Engine struct {
	logger      *zap.Logger
	nav         *Navigator
	asserter    *Asserter
	stepTimeout time.Duration
}

// NewEngine wires the step engine. stepTimeout bounds each individual step
// that does not carry its own timeout.
func NewEngine(logger *zap.Logger, stepTimeout time.Duration) *Engine {
	return &Engine{
		logger:      logger.Named("engine"),
		nav:         NewNavigator(logger),
		asserter:    NewAsserter(logger),
		stepTimeout: stepTimeout,
	}
}

// RunScenario navigates and executes every step of scn in order, recording
// outcomes into res. The returned error is the first fatal failure; res is
// always left internally consistent regardless.
func (e *Engine) RunScenario(ctx context.Context, sealer RouteSealer, scn *scenario.Scenario, capturer *Capturer, baseURL string, navTimeout time.Duration, res *Result) error {
	sealer.Seal()

	res.Transition(StateNavigating)
	target, err := scn.ResolveURL(baseURL)
	if err != nil {
		return &Error{Kind: KindNavigation, Op: "resolve scenario URL", StepIndex: -1, Target: scn.URL, Err: err}
	}
	if err := e.nav.Goto(ctx, target, scn.ReadySelector, navTimeout); err != nil {
		return err
	}

	res.Transition(StateRunningSteps)
	for i := range scn.Steps {
		st := &scn.Steps[i]
		if err := e.runStep(ctx, i, st, capturer, baseURL, res); err != nil {
			return err
		}
	}
	return nil
}

// runStep executes one step plus its attached assertion and capture, and
// appends the outcome to res.
func (e *Engine) runStep(ctx context.Context, index int, st *scenario.Step, capturer *Capturer, baseURL string, res *Result) error {
	out := StepOutcome{Index: index, Kind: st.Kind, Target: stepTarget(st)}
	started := time.Now()

	e.logger.Debug("Running step.",
		zap.Int("step", index),
		zap.String("kind", string(st.Kind)),
		zap.String("target", out.Target))

	detail, err := e.doAction(ctx, index, st, baseURL)
	out.Duration = time.Since(started)
	out.Detail = detail
	if err != nil {
		out.Status = StatusFailed
		out.Error = err.Error()
		res.Steps = append(res.Steps, out)
		return err
	}

	if st.Assert != nil {
		ao, aerr := e.asserter.Check(ctx, index, st.Assert)
		res.Assertions = append(res.Assertions, ao)
		if aerr != nil {
			out.Status = StatusFailed
			out.Error = aerr.Error()
			out.Duration = time.Since(started)
			res.Steps = append(res.Steps, out)
			return aerr
		}
	}

	if st.Capture != nil {
		art, cerr := capturer.Capture(ctx, index, st.Capture)
		if cerr != nil {
			out.Status = StatusFailed
			out.Error = cerr.Error()
			out.Duration = time.Since(started)
			res.Steps = append(res.Steps, out)
			return cerr
		}
		res.Artifacts = append(res.Artifacts, art)
	}

	out.Status = StatusPassed
	out.Duration = time.Since(started)
	res.Steps = append(res.Steps, out)
	return nil
}

// doAction performs the step's primary effect. The returned detail string is
// step-specific diagnostic output (e.g. an evaluate result).
func (e *Engine) doAction(ctx context.Context, index int, st *scenario.Step, baseURL string) (string, error) {
	// wait_timeout deliberately pauses, so it runs under the parent context
	// rather than a per-step deadline it would always exhaust.
	if st.Kind == scenario.StepWaitTimeout {
		if err := chromedp.Run(ctx, chromedp.Sleep(st.Timeout.Std())); err != nil {
			return "", &Error{Kind: KindAction, Op: "wait", StepIndex: index, Err: err}
		}
		return "", nil
	}

	timeout := e.stepTimeout
	if st.Timeout > 0 {
		timeout = st.Timeout.Std()
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch st.Kind {
	case scenario.StepGoto:
		return "", e.gotoStep(stepCtx, ctx, index, st.Value, baseURL)
	case scenario.StepClick:
		if err := chromedp.Run(stepCtx, chromedp.Click(st.Selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
			return "", e.actionError(ctx, stepCtx, index, "click", st.Selector, err)
		}
	case scenario.StepSelect:
		return "", e.selectOption(stepCtx, ctx, index, st.Selector, st.Value)
	case scenario.StepType:
		if err := chromedp.Run(stepCtx, chromedp.SendKeys(st.Selector, st.Value, chromedp.ByQuery)); err != nil {
			return "", e.actionError(ctx, stepCtx, index, "type", st.Selector, err)
		}
	case scenario.StepScroll:
		expr := `window.scrollTo({top: 0, behavior: "instant"})`
		if st.Position == "end" {
			expr = `window.scrollTo({top: document.body.scrollHeight, behavior: "instant"})`
		}
		if err := chromedp.Run(stepCtx, chromedp.Evaluate(expr, nil)); err != nil {
			return "", e.actionError(ctx, stepCtx, index, "scroll", st.Position, err)
		}
	case scenario.StepEvaluate:
		expr := fmt.Sprintf(`(() => { const v = (%s); return v === null || v === undefined ? "" : String(v); })()`, st.Value)
		var result string
		if err := chromedp.Run(stepCtx, chromedp.Evaluate(expr, &result)); err != nil {
			return "", e.actionError(ctx, stepCtx, index, "evaluate", st.Value, err)
		}
		return result, nil
	case scenario.StepWaitSelector:
		if err := chromedp.Run(stepCtx, chromedp.WaitVisible(st.Selector, chromedp.ByQuery)); err != nil {
			if stepCtx.Err() != nil && ctx.Err() == nil {
				snapshot := snapshotDOM(ctx)
				e.logger.Warn("Wait for selector expired.",
					zap.Int("step", index),
					zap.String("selector", st.Selector),
					zap.String("last_dom", SummarizeDOM(snapshot)))
				return "", &Error{Kind: KindWaitTimeout, Op: "wait for selector", StepIndex: index,
					Target: st.Selector, LastDOM: snapshot, Err: err}
			}
			return "", &Error{Kind: KindWaitTimeout, Op: "wait for selector", StepIndex: index,
				Target: st.Selector, Err: err}
		}
	default:
		return "", &Error{Kind: KindAction, Op: "run step", StepIndex: index,
			Err: fmt.Errorf("unknown step kind %q", st.Kind)}
	}
	return "", nil
}

// gotoStep performs a mid-scenario navigation. Unlike the initial navigation
// there is no readiness selector; scripts follow it with wait_selector when
// they need one.
func (e *Engine) gotoStep(stepCtx, parent context.Context, index int, raw, baseURL string) error {
	target, err := resolveStepURL(raw, baseURL)
	if err != nil {
		return &Error{Kind: KindNavigation, Op: "goto", StepIndex: index, Target: raw, Err: err}
	}
	resp, err := chromedp.RunResponse(stepCtx, chromedp.Navigate(target))
	if err != nil {
		return e.actionError(parent, stepCtx, index, "goto", target, err)
	}
	if resp != nil && resp.Status >= 400 {
		return &Error{
			Kind:      KindNavigation,
			Op:        "goto",
			StepIndex: index,
			Target:    target,
			Expected:  "HTTP status < 400",
			Actual:    fmt.Sprintf("%d", resp.Status),
			Err:       fmt.Errorf("navigation returned status %d", resp.Status),
		}
	}
	return nil
}

// selectOption sets a <select>'s value in-page and fires the input/change
// events an application listening for user interaction expects.
func (e *Engine) selectOption(stepCtx, parent context.Context, index int, selector, value string) error {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (el === null) return "missing";
		el.value = %q;
		if (el.value !== %q) return "no-option";
		el.dispatchEvent(new Event("input", {bubbles: true}));
		el.dispatchEvent(new Event("change", {bubbles: true}));
		return "ok";
	})()`, selector, value, value)

	var result string
	if err := chromedp.Run(stepCtx, chromedp.Evaluate(expr, &result)); err != nil {
		return e.actionError(parent, stepCtx, index, "select", selector, err)
	}
	switch result {
	case "ok":
		return nil
	case "missing":
		return &Error{Kind: KindAction, Op: "select", StepIndex: index, Target: selector,
			Err: fmt.Errorf("no element matches %q", selector)}
	default:
		return &Error{Kind: KindAction, Op: "select", StepIndex: index, Target: selector,
			Expected: value, Err: fmt.Errorf("select %q has no option with value %q", selector, value)}
	}
}

// actionError classifies a failed step action, distinguishing a per-step
// deadline expiry from a hard protocol failure.
func (e *Engine) actionError(parent, stepCtx context.Context, index int, op, target string, cause error) *Error {
	err := &Error{Kind: KindAction, Op: op, StepIndex: index, Target: target, Err: cause}
	if stepCtx.Err() != nil && parent.Err() == nil {
		err.LastDOM = snapshotDOM(parent)
		e.logger.Warn("Step timed out.",
			zap.Int("step", index),
			zap.String("op", op),
			zap.String("target", target),
			zap.String("last_dom", SummarizeDOM(err.LastDOM)))
	}
	return err
}

// resolveStepURL resolves a goto target against the harness base URL; an
// absolute URL passes through untouched.
func resolveStepURL(raw, baseURL string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	base, err := url.Parse(baseURL)
	if err != nil || !base.IsAbs() {
		return "", fmt.Errorf("cannot resolve relative URL %q without an absolute base URL (got %q)", raw, baseURL)
	}
	return base.ResolveReference(u).String(), nil
}

// stepTarget picks the most descriptive label for a step outcome record.
func stepTarget(st *scenario.Step) string {
	if st.Selector != "" {
		return st.Selector
	}
	if st.Position != "" {
		return st.Position
	}
	return st.Value
}
