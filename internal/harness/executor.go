package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/conformer/internal/feature"
)

// State is the lifecycle of one scenario execution.
//
//	NotStarted -> Running -> Completing -> Done
//	Running | Completing -> Errored
//
// Errored is absorbing: once a step fails no further step runs.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateCompleting
	StateDone
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateCompleting:
		return "completing"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Executor drives the steps of one scenario through an Interpreter.
type Executor struct {
	Interpreter Interpreter
	// Series runs the cleanup requests queued by a scenario. When nil,
	// queued cleanup is dropped with a warning.
	Series SeriesRunner
	Logger *slog.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(interp Interpreter, series SeriesRunner, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Executor{Interpreter: interp, Series: series, Logger: logger}
}

// Execute runs sc's steps in order and returns the scenario result.
//
// sc must already be fingerprinted: sc.LastStep marks the step on which
// queued cleanup requests are flushed. The flush runs after that step's
// interpreter call returns and before its result is recorded, whether or
// not the step failed. A failing cleanup is logged and attached to the
// step result; the step keeps its own status.
func (e *Executor) Execute(ctx context.Context, fr *FeatureResource, f *feature.Feature, sc *feature.Scenario) ScenarioResult {
	res := ScenarioResult{
		Title:       sc.Title,
		Fingerprint: sc.Fingerprint,
		SourceFile:  f.SourceFile,
		Line:        sc.Line,
		Steps:       make([]StepResult, 0, len(sc.Steps)),
	}

	sr := NewScenarioResource()
	trace := make([]string, 0, len(sc.Steps))
	state := StateRunning

	for i, step := range sc.Steps {
		if state == StateErrored {
			res.Steps = append(res.Steps, StepResult{Text: step, Status: StatusSkipped})
			continue
		}
		if err := ctx.Err(); err != nil {
			state = StateErrored
			res.Error = err.Error()
			res.Steps = append(res.Steps, StepResult{Text: step, Status: StatusSkipped})
			continue
		}

		trace = append(trace, step)
		ec := &ExecutionContext{
			Feature:       fr,
			Scenario:      sr,
			Trace:         trace[:len(trace):len(trace)],
			Fingerprint:   sc.Fingerprint,
			Index:         i,
			IsLast:        i == sc.LastStep,
			ScenarioTitle: sc.Title,
			SourceFile:    f.SourceFile,
		}

		info, err := e.Interpreter.Interpret(ctx, step, ec)
		sres := StepResult{Text: step, Status: StatusPassed, Info: info}

		if ec.IsLast {
			state = StateCompleting
			if cerr := e.flush(ctx, sr, sc); cerr != nil {
				sres.CleanupError = cerr.Error()
			}
		}

		if err != nil {
			state = StateErrored
			sres.Status = StatusFailed
			sres.Error = err.Error()
			res.Error = fmt.Sprintf("step %d %q: %v", i+1, step, err)
			e.Logger.Debug("step failed", "scenario", sc.Title, "step", step, "error", err)
		}
		res.Steps = append(res.Steps, sres)
	}

	if state == StateErrored {
		res.Status = StatusFailed
	} else {
		state = StateDone
		res.Status = StatusPassed
	}
	e.Logger.Debug("scenario finished", "scenario", sc.Title, "state", state)

	if left := sr.Cleanup(); len(left) > 0 {
		e.Logger.Warn("cleanup requests not flushed",
			"scenario", sc.Title,
			"fingerprint", sc.Fingerprint,
			"count", len(left),
		)
	}
	return res
}

// flush runs the queued cleanup requests as one sequential series, even
// when ctx has been cancelled. An empty list returns immediately.
func (e *Executor) flush(ctx context.Context, sr *ScenarioResource, sc *feature.Scenario) error {
	reqs := sr.takeCleanup()
	if len(reqs) == 0 {
		return nil
	}
	if e.Series == nil {
		e.Logger.Warn("no series runner, cleanup dropped", "scenario", sc.Title, "count", len(reqs))
		return nil
	}

	// Cleanup outlives cancellation of the run; per-request timeouts bound it.
	err := e.Series.RunSeries(context.WithoutCancel(ctx), reqs)
	if err != nil {
		e.Logger.Warn("cleanup failed",
			"scenario", sc.Title,
			"fingerprint", sc.Fingerprint,
			"error", err,
		)
		return fmt.Errorf("cleanup: %w", err)
	}
	e.Logger.Debug("cleanup flushed", "scenario", sc.Title, "count", len(reqs))
	return nil
}
