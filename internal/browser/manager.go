// File: internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/verihawk/verihawk/internal/config"
	"github.com/verihawk/verihawk/internal/engine"
	"github.com/verihawk/verihawk/internal/scenario"
)

const shutdownGracePeriod = 15 * time.Second

// Manager owns the browser process: one Chrome instance per run, launched at
// construction and guaranteed to be gone after Shutdown regardless of how the
// scenarios fared.
type Manager struct {
	logger *zap.Logger
	cfg    *config.Config

	// allocatorCtx manages the browser process. All contexts derive from it.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	// browserCtx is the long-lived first target; isolated contexts are
	// created through its Target domain.
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// wg tracks active contexts for a graceful shutdown.
	wg sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewManager launches the browser process and verifies it is responsive.
// A browser that cannot start within browser.launch_timeout is a LaunchError,
// which is fatal to the entire run.
func NewManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}

	opts := m.buildAllocatorOptions()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	m.allocatorCtx = allocCtx
	m.allocatorCancel = allocCancel

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	m.browserCtx = browserCtx
	m.browserCancel = browserCancel

	// Probe with a trivial navigation to confirm the process started and the
	// CDP connection is alive.
	probeCtx, probeCancel := context.WithTimeout(browserCtx, cfg.Browser.LaunchTimeout)
	defer probeCancel()

	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		allocCancel()
		return nil, &engine.Error{
			Kind:      engine.KindLaunch,
			Op:        "launch browser",
			StepIndex: -1,
			Err:       err,
		}
	}

	m.logger.Info("Browser launched and responsive.",
		zap.Bool("headless", cfg.Browser.Headless))
	return m, nil
}

// buildAllocatorOptions assembles the launch flags for a stable, configurable
// browser instance.
func (m *Manager) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("headless", m.cfg.Browser.Headless),
		chromedp.Flag("ignore-certificate-errors", m.cfg.Browser.IgnoreTLSErrors),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", m.cfg.Browser.Headless),
	)

	if m.cfg.Browser.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(m.cfg.Browser.ExecPath))
	}

	// Custom arguments from the config file, "--name=value" or "--name".
	for _, arg := range m.cfg.Browser.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	// Flags required for running inside containers (e.g., Docker on Linux).
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	return opts
}

// NewContext creates a fully isolated browsing context: its own storage and
// cookies, its own viewport/device emulation, its own route rules. Two
// contexts under the same manager never share mutable state.
func (m *Manager) NewContext(ctx context.Context, dev scenario.Device, rules []scenario.RouteRule) (*Context, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, &engine.Error{
			Kind:      engine.KindContext,
			Op:        "new context",
			StepIndex: -1,
			Err:       fmt.Errorf("browser manager is shut down"),
		}
	}
	m.mu.Unlock()

	c, err := newContext(m.browserCtx, dev, rules, m.logger)
	if err != nil {
		return nil, err
	}

	m.wg.Add(1)
	c.onClose = func() {
		m.wg.Done()
		m.logger.Debug("Context released.", zap.String("context_id", c.ID()))
	}

	m.logger.Info("New isolated context created.",
		zap.String("context_id", c.ID()),
		zap.Int64("width", dev.Width),
		zap.Int64("height", dev.Height),
		zap.Bool("mobile", dev.Mobile),
		zap.Int("routes", len(rules)))
	return c, nil
}

// Shutdown waits for active contexts to close and then terminates the
// browser process. It is safe to call more than once and must run on every
// exit path so no OS process leaks.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.logger.Info("Browser manager shutdown initiated.")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	grace, cancel := context.WithTimeout(ctx, shutdownGracePeriod)
	defer cancel()

	select {
	case <-done:
		m.logger.Debug("All contexts closed gracefully.")
	case <-grace.Done():
		m.logger.Warn("Timeout waiting for contexts to close; terminating browser anyway.")
	}

	// Cancelling the browser context closes the CDP connection; cancelling
	// the allocator kills the process and reaps it.
	m.browserCancel()
	m.allocatorCancel()

	m.logger.Info("Browser manager shutdown complete.")
	return nil
}
