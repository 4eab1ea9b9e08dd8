package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/conformer/internal/harness"
	"github.com/roach88/conformer/internal/registry"
)

// ErrEmptyRunID is returned when writing a run without an ID.
var ErrEmptyRunID = errors.New("run id is empty")

// Run is one stored orchestration run.
type Run struct {
	ID          string         `json:"id"`
	FeatureSpec string         `json:"feature_spec"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Counts      harness.Counts `json:"counts"`
	Bailed      bool           `json:"bailed,omitempty"`
}

// RunRecord bundles everything WriteRun persists.
type RunRecord struct {
	Run
	Result *harness.RunResult
	Stale  []registry.StaleEntry
}

// NewRunRecord fills a RunRecord from a finished run. Counts and Bailed
// are taken from result.
func NewRunRecord(id, featureSpec string, started, finished time.Time, result *harness.RunResult, stale []registry.StaleEntry) RunRecord {
	return RunRecord{
		Run: Run{
			ID:          id,
			FeatureSpec: featureSpec,
			StartedAt:   started,
			FinishedAt:  finished,
			Counts:      result.Counts(),
			Bailed:      result.Bailed,
		},
		Result: result,
		Stale:  stale,
	}
}

// WriteRun stores a run, every scenario result in run order and the stale
// pending fingerprints, all in one transaction. Writing the same run ID
// twice fails on the primary key.
func (s *Store) WriteRun(ctx context.Context, rec RunRecord) error {
	if rec.ID == "" {
		return ErrEmptyRunID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	c := rec.Counts
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, started_at, finished_at, feature_spec, passed, failed, pending, skipped, errored, bailed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		formatTime(rec.StartedAt),
		formatTime(rec.FinishedAt),
		rec.FeatureSpec,
		c.Passed, c.Failed, c.Pending, c.Skipped, c.Errored,
		rec.Bailed,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	if rec.Result != nil {
		for seq, sc := range rec.Result.Scenarios() {
			steps, err := marshalSteps(sc.Steps)
			if err != nil {
				return fmt.Errorf("write run: scenario %d: %w", seq, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO scenario_results
				(run_id, seq, fingerprint, title, source_file, line, status, error, steps)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				rec.ID, seq, sc.Fingerprint, sc.Title, sc.SourceFile, sc.Line,
				string(sc.Status), sc.Error, steps,
			)
			if err != nil {
				return fmt.Errorf("write run: scenario %d: %w", seq, err)
			}
		}
	}

	for _, st := range rec.Stale {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO stale_pending (run_id, fingerprint, label)
			VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING
		`, rec.ID, st.Fingerprint, st.Label)
		if err != nil {
			return fmt.Errorf("write run: stale %s: %w", st.Fingerprint, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}
