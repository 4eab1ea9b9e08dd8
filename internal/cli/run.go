package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/conformer/internal/harness"
	"github.com/roach88/conformer/internal/registry"
	"github.com/roach88/conformer/internal/report"
	"github.com/roach88/conformer/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	configFlags
}

// RunOutput is the JSON payload of the run command.
type RunOutput struct {
	RunID    string                   `json:"run_id,omitempty"`
	Summary  *report.Summary          `json:"summary"`
	Features []*harness.FeatureResult `json:"features"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run feature files against the target service",
		Long: `Run the scenarios of every selected feature file, in order.

Scenarios whose fingerprint is listed under stage1.pending are reported
as pending instead of executed. After the run, request statistics,
cleanup records that were never removed and stale pending fingerprints
are reported.

Examples:
  conformer run --config conformer.yaml
  conformer run --config conformer.yaml --feature features/statements
  conformer run --config conformer.yaml --diagnostics --db runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts, cmd)
		},
	}

	addConfigFlags(cmd, &opts.configFlags)
	f := cmd.Flags()
	f.BoolVar(&opts.overrides.Diagnostics, "diagnostics", false, "enable every diagnostic, stale pending checks included")
	f.BoolVar(&opts.overrides.RequestCount, "count", false, "report request statistics")
	f.BoolVar(&opts.overrides.StepHash, "hash", false, "append fingerprints to scenario titles")
	f.BoolVar(&opts.overrides.Bail, "bail", false, "stop after the first failed scenario")
	f.StringVar(&opts.overrides.Database, "db", "", "record the run in this SQLite database")

	return cmd
}

// addConfigFlags registers the flags every configuration-reading command
// shares. --features is an alias of --feature.
func addConfigFlags(cmd *cobra.Command, c *configFlags) {
	f := cmd.Flags()
	f.StringVarP(&c.Path, "config", "c", "", "configuration file (.yaml, .yml, .json or .cue)")
	f.StringVar(&c.overrides.FeatureSpec, "feature", "", "feature file, directory or glob to run")
	f.StringVar(&c.overrides.FeatureSpec, "features", "", "alias of --feature")
	f.StringVar(&c.overrides.Grep, "grep", "", "only run scenarios whose title matches this pattern")
}

func runRun(opts *RunOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	logger := opts.logger(cmd)

	cfg, err := opts.load()
	if err != nil {
		return fail(out, ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	sess, err := newSession(cfg, false, logger)
	if err != nil {
		return fail(out, ExitCommandError, ErrCodeConfig, "failed to set up run", err)
	}

	var st *store.Store
	if cfg.History.Database != "" {
		st, err = store.Open(cfg.History.Database)
		if err != nil {
			return fail(out, ExitCommandError, ErrCodeHistory, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := now(st)
	logger.Info("run starting", "feature_spec", cfg.Stage1.FeatureSpec, "pending", sess.runner.Pending().Len())
	result, runErr := sess.runner.Run(ctx)
	finished := now(st)
	if result == nil {
		return fail(out, ExitCommandError, ErrCodeRun, "run failed", runErr)
	}

	// Report lines go to stdout in text mode and to stderr next to a JSON
	// document.
	reportOut := cmd.OutOrStdout()
	if out.JSON() {
		reportOut = cmd.ErrOrStderr()
	} else if err := report.WriteResult(reportOut, result); err != nil {
		return fail(out, ExitCommandError, ErrCodeRun, "failed to write result", err)
	}
	summary, err := report.New(reportOut, sess.reportOptions(), logger).Report(sess.reportInput(result))
	if err != nil {
		return fail(out, ExitCommandError, ErrCodeRun, "failed to write report", err)
	}

	runID := ""
	if st != nil {
		runID, err = recordRun(context.WithoutCancel(ctx), st, cfg.Stage1.FeatureSpec, started, finished, result, summary, logger)
		if err != nil {
			return fail(out, ExitCommandError, ErrCodeHistory, "failed to record run", err)
		}
	}

	if runErr != nil {
		return fail(out, ExitCommandError, ErrCodeRun, "run aborted", runErr)
	}
	if err := out.Success(RunOutput{RunID: runID, Summary: summary, Features: result.Features}, nil); err != nil {
		return err
	}
	if result.Failed() {
		c := result.Counts()
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenarios failed, %d feature files unreadable", c.Failed, c.Errored))
	}
	return nil
}

// recordRun stores the run in the history database and returns its ID.
func recordRun(ctx context.Context, st *store.Store, spec string, started, finished time.Time, result *harness.RunResult, summary *report.Summary, logger *slog.Logger) (string, error) {
	var stale []registry.StaleEntry
	if summary.StaleChecked {
		stale = summary.Stale
	}
	rec := store.NewRunRecord(st.NewRunID(), spec, started, finished, result, stale)
	if err := st.WriteRun(ctx, rec); err != nil {
		return "", err
	}
	logger.Info("run recorded", "run_id", rec.ID, "scenarios", len(result.Scenarios()))
	return rec.ID, nil
}

// now reads the store clock so recorded timestamps follow it.
func now(st *store.Store) time.Time {
	if st == nil {
		return time.Now().UTC()
	}
	return st.Now()
}
