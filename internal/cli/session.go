package cli

import (
	"fmt"
	"log/slog"

	"github.com/roach88/conformer/internal/cleanup"
	"github.com/roach88/conformer/internal/config"
	"github.com/roach88/conformer/internal/feature"
	"github.com/roach88/conformer/internal/harness"
	"github.com/roach88/conformer/internal/registry"
	"github.com/roach88/conformer/internal/report"
	"github.com/roach88/conformer/internal/request"
	"github.com/roach88/conformer/internal/steps"
)

// configFlags are the flags shared by commands that read a configuration.
type configFlags struct {
	Path      string
	overrides config.Overrides
}

// load reads the configuration and layers the command-line overrides over
// it.
func (c *configFlags) load() (*config.Config, error) {
	cfg, err := config.Load(c.Path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Apply(c.overrides); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is the object graph of one run. Every collaborator is created
// here so nothing outlives the run.
type session struct {
	cfg     *config.Config
	client  *request.Client
	tracker *cleanup.Tracker
	runner  *harness.Runner
}

// newSession wires a run from cfg. With dryRun set scenarios are only
// fingerprinted.
func newSession(cfg *config.Config, dryRun bool, logger *slog.Logger) (*session, error) {
	pending, err := registry.NewPending(cfg.Stage1.Pending)
	if err != nil {
		return nil, fmt.Errorf("%w: stage1.pending: %v", config.ErrInvalidConfig, err)
	}
	grep, err := cfg.GrepPattern()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	client, err := request.NewClient(request.Options{
		Endpoint: cfg.Target.Endpoint,
		Header:   cfg.Target.Headers,
		Timeout:  cfg.RequestTimeout(),
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: target: %v", config.ErrInvalidConfig, err)
	}

	tracker := cleanup.NewTracker()
	series := &request.Series{Client: client, OnComplete: tracker.Observe}
	executor := harness.NewExecutor(steps.NewBase(client, tracker, logger), series, logger)

	runner, err := harness.NewRunner(harness.Config{
		FeatureSpec: cfg.Stage1.FeatureSpec,
		Bail:        cfg.Bail,
		Grep:        grep,
		DryRun:      dryRun,
		Hashes:      registry.NewHashes(cfg.Diagnostics.StepHash),
		Pending:     pending,
		Parser:      feature.TextParser{},
		Executor:    executor,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, client: client, tracker: tracker, runner: runner}, nil
}

// reportOptions maps the configuration onto the report sections.
func (s *session) reportOptions() report.Options {
	return report.Options{
		RequestCount:       s.cfg.Diagnostics.RequestCount,
		StalePending:       s.cfg.Stage1.StalePending,
		FeatureSpecFromCLI: s.cfg.FeatureSpecFromCLI,
	}
}

// reportInput collects the run's accumulated state for the reporter.
func (s *session) reportInput(result *harness.RunResult) report.Input {
	return report.Input{
		Stats:   s.client.Stats(),
		Cleanup: s.tracker,
		Hashes:  s.runner.Hashes(),
		Pending: s.runner.Pending(),
		Result:  result,
	}
}
