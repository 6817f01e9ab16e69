// File: internal/browser/intercept.go
package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync/atomic"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"github.com/verihawk/verihawk/internal/scenario"
)

// compiledRule pairs a route rule with its compiled glob matcher.
type compiledRule struct {
	rule    scenario.RouteRule
	matcher glob.Glob
}

// InterceptStats counts what the interceptor did to this context's traffic.
// Useful when diagnosing why a run that should have been deterministic
// still reached the network.
type InterceptStats struct {
	Paused    uint64 `json:"paused"`
	Aborted   uint64 `json:"aborted"`
	Fulfilled uint64 `json:"fulfilled"`
	Continued uint64 `json:"continued"`
}

// Interceptor evaluates route rules against every outgoing request of one
// context, in insertion order, first match wins. It exists to keep runs
// deterministic: slow or flaky third-party fetches (fonts, analytics) are
// cut out of the critical path before they can reach the network.
type Interceptor struct {
	logger *zap.Logger
	rules  []compiledRule

	// sealed flips at the first navigation; the rule set is immutable after.
	sealed atomic.Bool

	paused    atomic.Uint64
	aborted   atomic.Uint64
	fulfilled atomic.Uint64
	continued atomic.Uint64
}

// NewInterceptor compiles the rule set. Patterns use glob syntax with '/' as
// the separator, so "**/*.{woff,woff2}" matches font URLs on any host.
func NewInterceptor(logger *zap.Logger, rules []scenario.RouteRule) (*Interceptor, error) {
	i := &Interceptor{logger: logger.Named("interceptor")}
	if err := i.AddRules(rules...); err != nil {
		return nil, err
	}
	return i, nil
}

// AddRules appends rules to the set. Adding rules after the context has
// navigated is a scripting error and is rejected, not silently ignored.
func (i *Interceptor) AddRules(rules ...scenario.RouteRule) error {
	if i.sealed.Load() {
		return fmt.Errorf("route rules are sealed: context has already navigated")
	}
	for _, r := range rules {
		matcher, err := glob.Compile(r.Pattern, '/')
		if err != nil {
			return fmt.Errorf("invalid route pattern %q: %w", r.Pattern, err)
		}
		i.rules = append(i.rules, compiledRule{rule: r, matcher: matcher})
	}
	return nil
}

// Seal freezes the rule set. The navigator calls this before the first
// navigation that uses the rules.
func (i *Interceptor) Seal() {
	i.sealed.Store(true)
}

// Decide returns the action for a request URL: the first matching rule's
// action, or continue when nothing matches.
func (i *Interceptor) Decide(url string) (scenario.RouteAction, *scenario.RouteRule) {
	for idx := range i.rules {
		if i.rules[idx].matcher.Match(url) {
			return i.rules[idx].rule.Action, &i.rules[idx].rule
		}
	}
	return scenario.RouteContinue, nil
}

// Stats returns a snapshot of the interception counters.
func (i *Interceptor) Stats() InterceptStats {
	return InterceptStats{
		Paused:    i.paused.Load(),
		Aborted:   i.aborted.Load(),
		Fulfilled: i.fulfilled.Load(),
		Continued: i.continued.Load(),
	}
}

// Install enables the Fetch domain on the context's page and starts the
// event loop that resolves every paused request. Must run before the first
// navigation so no request slips through unjudged.
func (i *Interceptor) Install(tabCtx context.Context) error {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*fetch.EventRequestPaused); ok {
			// Resolving a paused request issues CDP commands, which must not
			// run inside the listener callback.
			go i.resolve(tabCtx, e)
		}
	})

	return chromedp.Run(tabCtx, fetch.Enable())
}

// resolve applies the first matching rule's action to one paused request.
func (i *Interceptor) resolve(tabCtx context.Context, ev *fetch.EventRequestPaused) {
	i.paused.Add(1)

	chromeCtx := chromedp.FromContext(tabCtx)
	if chromeCtx == nil || chromeCtx.Target == nil {
		return
	}
	ectx := cdp.WithExecutor(tabCtx, chromeCtx.Target)

	action, rule := i.Decide(ev.Request.URL)

	var err error
	switch action {
	case scenario.RouteAbort:
		err = fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient).Do(ectx)
		if err == nil {
			i.aborted.Add(1)
			i.logger.Debug("Request aborted.",
				zap.String("url", ev.Request.URL),
				zap.String("pattern", rule.Pattern))
		}
	case scenario.RouteFulfill:
		status := rule.Status
		if status == 0 {
			status = 200
		}
		contentType := rule.ContentType
		if contentType == "" {
			contentType = "text/plain"
		}
		err = fetch.FulfillRequest(ev.RequestID, status).
			WithResponseHeaders([]*fetch.HeaderEntry{{Name: "Content-Type", Value: contentType}}).
			WithBody(base64.StdEncoding.EncodeToString([]byte(rule.Body))).
			Do(ectx)
		if err == nil {
			i.fulfilled.Add(1)
			i.logger.Debug("Request fulfilled with canned response.",
				zap.String("url", ev.Request.URL),
				zap.Int64("status", status))
		}
	default:
		err = fetch.ContinueRequest(ev.RequestID).Do(ectx)
		if err == nil {
			i.continued.Add(1)
		}
	}

	if err != nil && tabCtx.Err() == nil {
		i.logger.Debug("Failed to resolve paused request.",
			zap.String("url", ev.Request.URL), zap.Error(err))
	}
}
