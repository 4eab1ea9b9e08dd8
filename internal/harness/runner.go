package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/roach88/conformer/internal/feature"
	"github.com/roach88/conformer/internal/registry"
	"github.com/roach88/conformer/internal/resolve"
)

// errBail stops scheduling after the first failed scenario.
var errBail = errors.New("bail after first failure")

// Config wires a Runner. Hashes, Pending, Parser and Executor are
// required; the rest default.
type Config struct {
	// FeatureSpec is the path or glob naming the feature files to run.
	FeatureSpec string
	// Bail stops the run after the first failed scenario.
	Bail bool
	// Grep, when set, runs only scenarios whose title matches.
	Grep *regexp.Regexp
	// DryRun fingerprints and annotates scenarios without executing them.
	DryRun bool

	Hashes   *registry.Hashes
	Pending  *registry.Pending
	Parser   feature.Parser
	Searcher feature.Searcher
	Executor *Executor
	Logger   *slog.Logger
}

// Runner coordinates one run. It owns the fingerprint table, the pending
// index and the file cache for the run's lifetime; nothing is global.
type Runner struct {
	cfg      Config
	resolver *resolve.Resolver
	logger   *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Hashes == nil || cfg.Pending == nil || cfg.Parser == nil || cfg.Executor == nil {
		return nil, fmt.Errorf("runner: hashes, pending, parser and executor are required")
	}
	if cfg.Searcher == nil {
		cfg.Searcher = feature.FileSearch{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		cfg:      cfg,
		resolver: resolve.New(cfg.Searcher, cfg.Logger),
		logger:   cfg.Logger,
	}, nil
}

// Hashes returns the run's fingerprint table.
func (r *Runner) Hashes() *registry.Hashes {
	return r.cfg.Hashes
}

// Pending returns the run's pending index.
func (r *Runner) Pending() *registry.Pending {
	return r.cfg.Pending
}

// Dispatched returns the feature files dispatched so far, in order.
func (r *Runner) Dispatched() []string {
	return r.resolver.Cache.Dispatched()
}

// Run resolves the feature spec and executes every dispatched file. Step
// failures are recorded in the result and do not stop the run. The
// returned error is non-nil only for an invalid feature spec or a
// cancelled context; the partial result is returned alongside it.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	err := r.resolver.Run(r.cfg.FeatureSpec, func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		fres, failed := r.runFile(ctx, path)
		result.Features = append(result.Features, fres)
		if err := ctx.Err(); err != nil {
			return err
		}
		if failed && r.cfg.Bail {
			return errBail
		}
		return nil
	})

	switch {
	case errors.Is(err, errBail):
		result.Bailed = true
		r.logger.Info("run stopped after first failure")
		return result, nil
	case err != nil:
		return result, err
	}
	return result, nil
}

// runFile parses one feature file, fingerprints and annotates all of its
// scenarios, then executes them in order.
func (r *Runner) runFile(ctx context.Context, path string) (*FeatureResult, bool) {
	f, err := r.cfg.Parser.ParseFile(path)
	if err != nil {
		r.logger.Error("feature file not parsed", "path", path, "error", err)
		return &FeatureResult{SourceFile: path, Error: err.Error()}, true
	}

	fres := &FeatureResult{Title: f.Title, SourceFile: f.SourceFile}
	if fres.SourceFile == "" {
		fres.SourceFile = path
		f.SourceFile = path
	}

	// Every scenario gets its fingerprint before any step of the feature
	// runs, so the table also covers scenarios that end up not executed.
	for _, sc := range f.Scenarios {
		if _, err := r.cfg.Hashes.Fingerprint(sc); err != nil {
			r.logger.Error("scenario not fingerprinted", "path", path, "scenario", sc.Title, "error", err)
			fres.Error = err.Error()
			return fres, true
		}
		r.cfg.Pending.Annotate(sc)
	}

	fr := NewFeatureResource()
	failed := false
	for _, sc := range f.Scenarios {
		if err := ctx.Err(); err != nil {
			break
		}
		res := r.runScenario(ctx, fr, f, sc)
		fres.Scenarios = append(fres.Scenarios, res)
		if res.Status == StatusFailed {
			failed = true
			if r.cfg.Bail {
				break
			}
		}
	}

	r.logger.Info("feature finished",
		"path", fres.SourceFile,
		"feature", fres.Title,
		"scenarios", len(fres.Scenarios),
	)
	return fres, failed
}

func (r *Runner) runScenario(ctx context.Context, fr *FeatureResource, f *feature.Feature, sc *feature.Scenario) ScenarioResult {
	base := ScenarioResult{
		Title:       sc.Title,
		Fingerprint: sc.Fingerprint,
		SourceFile:  f.SourceFile,
		Line:        sc.Line,
	}

	if r.cfg.Grep != nil && !r.cfg.Grep.MatchString(sc.Title) {
		base.Status = StatusSkipped
		return base
	}

	if r.cfg.DryRun {
		base.Status = StatusSkipped
		return base
	}

	r.cfg.Hashes.MarkEncountered(sc.Fingerprint)

	if sc.Pending() {
		base.Status = StatusPending
		r.logger.Info("scenario pending", "scenario", sc.Title, "fingerprint", sc.Fingerprint)
		return base
	}

	res := r.cfg.Executor.Execute(ctx, fr, f, sc)
	level := slog.LevelInfo
	if res.Status == StatusFailed {
		level = slog.LevelWarn
	}
	r.logger.Log(ctx, level, "scenario finished",
		"scenario", res.Title,
		"status", res.Status,
		"fingerprint", res.Fingerprint,
	)
	return res
}
