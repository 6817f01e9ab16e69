// File: internal/orchestrator/orchestrator.go
// Description: Manages the high-level lifecycle of a verification run. One
// shared browser process hosts an isolated context per scenario; scenarios run
// concurrently under a bounded worker pool, and a failure in one never
// disturbs its siblings.

package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/verihawk/verihawk/internal/browser"
	"github.com/verihawk/verihawk/internal/config"
	"github.com/verihawk/verihawk/internal/engine"
	"github.com/verihawk/verihawk/internal/scenario"
)

// contextTeardownTimeout bounds per-scenario context disposal so a wedged tab
// cannot stall the whole run's teardown.
const contextTeardownTimeout = 10 * time.Second

// Report is the aggregate outcome of one run.
type Report struct {
	RunID     string          `json:"run_id"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
	Status    engine.Status   `json:"status"`
	Scenarios []engine.Result `json:"scenarios"`
}

// Orchestrator owns the scenario worker pool on top of a shared browser.
type Orchestrator struct {
	cfg     *config.Config
	logger  *zap.Logger
	manager *browser.Manager
	engine  *engine.Engine
}

// New constructs an Orchestrator. All dependencies are required.
func New(cfg *config.Config, logger *zap.Logger, manager *browser.Manager) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("orchestrator requires a non-nil config")
	}
	if logger == nil {
		return nil, fmt.Errorf("orchestrator requires a non-nil logger")
	}
	if manager == nil {
		return nil, fmt.Errorf("orchestrator requires a non-nil browser manager")
	}
	return &Orchestrator{
		cfg:     cfg,
		logger:  logger.Named("orchestrator"),
		manager: manager,
		engine:  engine.NewEngine(logger, cfg.Harness.StepTimeout),
	}, nil
}

// Run executes every scenario to completion and returns the aggregate report.
// The returned error covers run-level problems only; individual scenario
// failures are reported through the per-scenario results.
func (o *Orchestrator) Run(ctx context.Context, scenarios []scenario.Scenario) (*Report, error) {
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios to run")
	}

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Scenarios: make([]engine.Result, len(scenarios)),
	}
	o.logger.Info("Run starting.",
		zap.String("run_id", report.RunID),
		zap.Int("scenarios", len(scenarios)),
		zap.Int("concurrency", o.cfg.Harness.Concurrency))

	// Workers always return nil: a scenario failure lands in its own result,
	// never in the group, so siblings are not cancelled.
	var g errgroup.Group
	g.SetLimit(o.cfg.Harness.Concurrency)
	for i := range scenarios {
		i := i
		g.Go(func() error {
			report.Scenarios[i] = *o.runScenario(ctx, &scenarios[i])
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(report.StartedAt)
	report.Status = engine.StatusPassed
	for i := range report.Scenarios {
		if report.Scenarios[i].Status != engine.StatusPassed {
			report.Status = engine.StatusFailed
			break
		}
	}
	o.logger.Info("Run finished.",
		zap.String("run_id", report.RunID),
		zap.String("status", string(report.Status)),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// runScenario drives one scenario through its full lifecycle. It never
// panics upward and always leaves the result in a terminal, closed state.
func (o *Orchestrator) runScenario(ctx context.Context, scn *scenario.Scenario) (res *engine.Result) {
	res = engine.NewResult(scn.Name)
	log := o.logger.With(zap.String("scenario", scn.Name))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Scenario panicked.", zap.Any("panic", r))
			res.RecordFailure(fmt.Errorf("scenario panicked: %v", r))
		}
		res.Finalize()
		if res.Status == engine.StatusPassed {
			res.Transition(engine.StatePassed)
		} else {
			res.Transition(engine.StateFailed)
		}
		res.Transition(engine.StateClosed)
		log.Info("Scenario finished.",
			zap.String("status", string(res.Status)),
			zap.Duration("duration", res.Duration),
			zap.Int("steps", len(res.Steps)),
			zap.Int("artifacts", len(res.Artifacts)))
	}()

	res.Transition(engine.StateSessionAcquiring)
	bctx, err := o.manager.NewContext(ctx, scn.Device, scn.Routes)
	if err != nil {
		log.Error("Failed to acquire browser context.", zap.Error(err))
		res.RecordFailure(err)
		return res
	}
	res.Transition(engine.StateContextReady)

	// Teardown runs detached from the run context so cancellation still
	// disposes the browser-side context.
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), contextTeardownTimeout)
		defer cancel()
		stats := bctx.Interceptor().Stats()
		log.Debug("Interception stats.",
			zap.Uint64("paused", stats.Paused),
			zap.Uint64("aborted", stats.Aborted),
			zap.Uint64("fulfilled", stats.Fulfilled),
			zap.Uint64("continued", stats.Continued))
		if cerr := bctx.Close(closeCtx); cerr != nil {
			log.Warn("Failed to dispose browser context.", zap.Error(cerr))
		}
	}()

	capturer := engine.NewCapturer(log, filepath.Join(o.cfg.Harness.ArtifactDir, scn.Name))
	if err := o.engine.RunScenario(
		bctx.Ctx(),
		bctx.Interceptor(),
		scn,
		capturer,
		o.cfg.Harness.BaseURL,
		o.cfg.Harness.NavigationTimeout,
		res,
	); err != nil {
		log.Error("Scenario failed.", zap.Error(err))
		res.RecordFailure(err)
	}
	return res
}
