// File: cmd/run.go
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/verihawk/verihawk/internal/browser"
	"github.com/verihawk/verihawk/internal/config"
	"github.com/verihawk/verihawk/internal/engine"
	"github.com/verihawk/verihawk/internal/observability"
	"github.com/verihawk/verihawk/internal/orchestrator"
	"github.com/verihawk/verihawk/internal/reporting"
	"github.com/verihawk/verihawk/internal/scenario"
)

// errVerificationFailed signals a completed run with failing scenarios, so the
// process exits non-zero for CI while the report still gets written.
var errVerificationFailed = errors.New("verification failed")

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [scenario files...]",
		Short: "Runs one or more verification scenarios against the target application",
		Args:  cobra.MinimumNArgs(1),
		// PreRunE finalizes configuration before the main execution logic in RunE.
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their corresponding Viper keys so command-line flags
			// correctly override values from the config file and environment.
			bindings := map[string]string{
				"harness.base_url":           "base-url",
				"harness.artifact_dir":       "artifact-dir",
				"harness.report_path":        "output",
				"harness.concurrency":        "concurrency",
				"harness.navigation_timeout": "navigation-timeout",
				"harness.step_timeout":       "step-timeout",
			}
			for key, flag := range bindings {
				if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			// --headed inverts browser.headless, so it cannot be a plain binding.
			if cmd.Flags().Changed("headed") {
				headed, _ := cmd.Flags().GetBool("headed")
				viper.Set("browser.headless", !headed)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			scenarios, err := scenario.LoadAll(args)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")

			logger.Info("Loaded scenarios",
				zap.Int("count", len(scenarios)),
				zap.String("base_url", cfg.Harness.BaseURL),
				zap.String("artifact_dir", cfg.Harness.ArtifactDir))

			manager, err := browser.NewManager(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to launch browser: %w", err)
			}
			defer func() {
				if err := manager.Shutdown(cmd.Context()); err != nil {
					logger.Warn("Error during browser shutdown", zap.Error(err))
				}
			}()

			orch, err := orchestrator.New(cfg, logger, manager)
			if err != nil {
				return err
			}

			report, err := orch.Run(ctx, scenarios)
			if err != nil {
				if ctx.Err() != nil {
					logger.Warn("Run aborted by signal")
					return fmt.Errorf("run aborted by user signal")
				}
				return err
			}

			if err := writeReport(report, format, cfg.Harness.ReportPath); err != nil {
				return err
			}

			if report.Status != engine.StatusPassed {
				return errVerificationFailed
			}
			return nil
		},
	}

	// Reporting flags
	runCmd.Flags().StringP("output", "o", "", "Output file path for the report. Empty or 'stdout' writes to standard output.")
	runCmd.Flags().StringP("format", "f", "json", "Format for the output report ('json' or 'summary').")

	// Harness override flags.
	runCmd.Flags().String("base-url", "", "Base URL of the application under test. (Overrides config/env)")
	runCmd.Flags().String("artifact-dir", "", "Directory where screenshots are written. (Overrides config/env)")
	runCmd.Flags().IntP("concurrency", "j", 0, "Number of scenarios to run in parallel. (Overrides config/env)")
	runCmd.Flags().Duration("navigation-timeout", 0, "Timeout for navigation and readiness. (Overrides config/env)")
	runCmd.Flags().Duration("step-timeout", 0, "Default per-step timeout. (Overrides config/env)")
	runCmd.Flags().Bool("headed", false, "Run the browser with a visible window.")

	return runCmd
}

// writeReport renders the machine-readable report to the configured output and
// always prints a human digest to stderr, where the logs already live.
func writeReport(report *orchestrator.Report, format, path string) error {
	reporter, err := reporting.New(format, path)
	if err != nil {
		return err
	}
	if err := reporter.Write(report); err != nil {
		reporter.Close()
		return err
	}
	if err := reporter.Close(); err != nil {
		return err
	}

	if format != "summary" {
		digest := reporting.NewSummaryReporter(reporting.NopWriteCloser(os.Stderr))
		if err := digest.Write(report); err != nil {
			return err
		}
	}
	return nil
}
