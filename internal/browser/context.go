// File: internal/browser/context.go
package browser

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verihawk/verihawk/internal/engine"
	"github.com/verihawk/verihawk/internal/scenario"
)

// Context is one isolated browsing environment (storage, cookies, viewport,
// route rules) within the managed browser process, hosting a single page
// target.
type Context struct {
	id     string
	logger *zap.Logger

	// ctx is the chromedp context attached to this context's page target.
	ctx    context.Context
	cancel context.CancelFunc

	// browserCtx reaches the browser-level Target domain for disposal.
	browserCtx       context.Context
	browserContextID cdp.BrowserContextID

	interceptor *Interceptor

	onClose   func()
	closeOnce sync.Once
}

// newContext creates the CDP browser context, spawns a page target inside it,
// applies device emulation, and installs the route rules before any
// navigation can happen.
func newContext(browserCtx context.Context, dev scenario.Device, rules []scenario.RouteRule, logger *zap.Logger) (*Context, error) {
	ctxErr := func(op string, err error) *engine.Error {
		return &engine.Error{Kind: engine.KindContext, Op: op, StepIndex: -1, Err: err}
	}

	chromeCtx := chromedp.FromContext(browserCtx)
	if chromeCtx == nil || chromeCtx.Browser == nil {
		return nil, ctxErr("new context", context.Canceled)
	}
	// Target domain commands go to the browser-level executor, not a page.
	ectx := cdp.WithExecutor(browserCtx, chromeCtx.Browser)

	browserContextID, err := target.CreateBrowserContext().
		WithDisposeOnDetach(true).
		Do(ectx)
	if err != nil {
		return nil, ctxErr("create browser context", err)
	}

	targetID, err := target.CreateTarget("about:blank").
		WithBrowserContextID(browserContextID).
		Do(ectx)
	if err != nil {
		return nil, ctxErr("create page target", err)
	}

	id := uuid.New().String()
	tabCtx, tabCancel := chromedp.NewContext(browserCtx, chromedp.WithTargetID(targetID))

	c := &Context{
		id:               id,
		logger:           logger.Named("context").With(zap.String("context_id", id)),
		ctx:              tabCtx,
		cancel:           tabCancel,
		browserCtx:       browserCtx,
		browserContextID: browserContextID,
	}

	// Attach to the target before issuing any commands against it.
	if err := chromedp.Run(tabCtx); err != nil {
		c.Close(browserCtx)
		return nil, ctxErr("attach page target", err)
	}

	if err := c.applyEmulation(dev); err != nil {
		c.Close(browserCtx)
		return nil, err
	}

	interceptor, err := NewInterceptor(c.logger, rules)
	if err != nil {
		c.Close(browserCtx)
		return nil, ctxErr("compile route rules", err)
	}
	if err := interceptor.Install(tabCtx); err != nil {
		c.Close(browserCtx)
		return nil, ctxErr("install route rules", err)
	}
	c.interceptor = interceptor

	return c, nil
}

// applyEmulation configures viewport metrics and touch support. A zero-size
// device leaves the browser defaults alone.
func (c *Context) applyEmulation(dev scenario.Device) error {
	var tasks chromedp.Tasks

	if dev.Width > 0 && dev.Height > 0 {
		scale := dev.Scale
		if scale == 0 {
			scale = 1.0
		}
		tasks = append(tasks, emulation.SetDeviceMetricsOverride(dev.Width, dev.Height, scale, dev.Mobile))
	}
	if dev.Touch {
		tasks = append(tasks, emulation.SetTouchEmulationEnabled(true).WithMaxTouchPoints(5))
	}
	if len(tasks) == 0 {
		return nil
	}

	if err := chromedp.Run(c.ctx, tasks); err != nil {
		return &engine.Error{Kind: engine.KindContext, Op: "apply device emulation", StepIndex: -1, Err: err}
	}
	return nil
}

// ID returns the unique identifier for this context.
func (c *Context) ID() string { return c.id }

// Ctx returns the chromedp context for the hosted page. Engine operations
// run their actions against it; callers must not use it after Close.
func (c *Context) Ctx() context.Context { return c.ctx }

// Interceptor returns the context's route interceptor.
func (c *Context) Interceptor() *Interceptor { return c.interceptor }

// Close tears the context down: the page target is cancelled and the CDP
// browser context disposed so its storage cannot bleed into a later run.
// Safe to call multiple times and on every exit path.
func (c *Context) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		c.logger.Debug("Closing context.")
		c.cancel()

		if chromeCtx := chromedp.FromContext(c.browserCtx); chromeCtx != nil && chromeCtx.Browser != nil {
			ectx := cdp.WithExecutor(c.browserCtx, chromeCtx.Browser)
			if derr := target.DisposeBrowserContext(c.browserContextID).Do(ectx); derr != nil {
				// The browser may already be gone during shutdown; log, don't fail teardown.
				c.logger.Debug("Could not dispose browser context.", zap.Error(derr))
			}
		}

		if c.onClose != nil {
			c.onClose()
		}
	})
	return err
}
