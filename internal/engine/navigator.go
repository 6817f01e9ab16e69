// File: internal/engine/navigator.go
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Navigator drives a page to a URL and blocks until an observable readiness
// condition holds. Readiness-by-selector is the core correctness decision of
// the harness: "proceed" is coupled to application state, not to a guessed
// wall-clock delay.
type Navigator struct {
	logger *zap.Logger
}

// NewNavigator creates a Navigator.
func NewNavigator(logger *zap.Logger) *Navigator {
	return &Navigator{logger: logger.Named("navigator")}
}

// Goto navigates to url and waits until an element matching readySelector is
// visible, or until timeout elapses. A final HTTP response with status >= 400
// fails the navigation outright; a missed readiness condition returns a
// NavigationTimeout carrying the last observed DOM for diagnostics.
func (n *Navigator) Goto(ctx context.Context, url, readySelector string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	n.logger.Info("Navigating.", zap.String("url", url), zap.String("ready_selector", readySelector))

	resp, err := chromedp.RunResponse(navCtx, chromedp.Navigate(url))
	if err != nil {
		if navCtx.Err() != nil && ctx.Err() == nil {
			return n.timeoutError(ctx, "navigate", url, err)
		}
		return &Error{Kind: KindNavigation, Op: "navigate", StepIndex: -1, Target: url, Err: err}
	}
	if resp != nil && resp.Status >= 400 {
		return &Error{
			Kind:      KindNavigation,
			Op:        "navigate",
			StepIndex: -1,
			Target:    url,
			Expected:  "HTTP status < 400",
			Actual:    fmt.Sprintf("%d", resp.Status),
			Err:       fmt.Errorf("navigation returned status %d", resp.Status),
		}
	}

	if err := chromedp.Run(navCtx, chromedp.WaitVisible(readySelector, chromedp.ByQuery)); err != nil {
		if navCtx.Err() != nil && ctx.Err() == nil {
			return n.timeoutError(ctx, "wait for readiness selector", readySelector, err)
		}
		return &Error{Kind: KindNavigation, Op: "wait for readiness selector", StepIndex: -1, Target: readySelector, Err: err}
	}

	n.logger.Debug("Page ready.", zap.String("url", url))
	return nil
}

// timeoutError builds a NavigationTimeout carrying the last-known DOM state.
// The snapshot runs on the parent context, which is still alive; only the
// bounded wait expired.
func (n *Navigator) timeoutError(ctx context.Context, op, target string, cause error) *Error {
	snapshot := snapshotDOM(ctx)
	n.logger.Warn("Navigation timed out.",
		zap.String("op", op),
		zap.String("target", target),
		zap.String("last_dom", SummarizeDOM(snapshot)))
	return &Error{
		Kind:      KindNavigationTimeout,
		Op:        op,
		StepIndex: -1,
		Target:    target,
		LastDOM:   snapshot,
		Err:       cause,
	}
}
