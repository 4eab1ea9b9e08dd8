package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/conformer/internal/harness"
	"github.com/roach88/conformer/internal/registry"
)

// ErrRunNotFound is returned by ReadRun for an unknown ID.
var ErrRunNotFound = errors.New("run not found")

// ScenarioRecord is one stored scenario outcome.
type ScenarioRecord struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	harness.ScenarioResult
}

// ListRuns returns the most recent runs, newest first.
// Ties on start time are broken by ID so output is deterministic.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, feature_spec, passed, failed, pending, skipped, errored, bailed
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns a run with its scenario results in run order.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, []ScenarioRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, feature_spec, passed, failed, pending, skipped, errored, bailed
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, nil, err
	}

	scenarios, err := s.queryScenarios(ctx, `
		SELECT r.id, r.started_at, s.fingerprint, s.title, s.source_file, s.line, s.status, s.error, s.steps
		FROM scenario_results s
		JOIN runs r ON r.id = s.run_id
		WHERE s.run_id = ?
		ORDER BY s.seq ASC
	`, id)
	if err != nil {
		return Run{}, nil, err
	}
	return run, scenarios, nil
}

// ScenarioHistory returns a fingerprint's outcomes across runs, newest run
// first.
func (s *Store) ScenarioHistory(ctx context.Context, fingerprint string, limit int) ([]ScenarioRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryScenarios(ctx, `
		SELECT r.id, r.started_at, s.fingerprint, s.title, s.source_file, s.line, s.status, s.error, s.steps
		FROM scenario_results s
		JOIN runs r ON r.id = s.run_id
		WHERE s.fingerprint = ?
		ORDER BY r.started_at DESC, r.id COLLATE BINARY DESC, s.seq ASC
		LIMIT ?
	`, fingerprint, limit)
}

// StalePending returns the stale fingerprints recorded for a run, ordered
// by label then fingerprint.
func (s *Store) StalePending(ctx context.Context, runID string) ([]registry.StaleEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fingerprint, label
		FROM stale_pending
		WHERE run_id = ?
		ORDER BY label COLLATE BINARY ASC, fingerprint COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query stale pending: %w", err)
	}
	defer rows.Close()

	stale := []registry.StaleEntry{}
	for rows.Next() {
		var e registry.StaleEntry
		if err := rows.Scan(&e.Fingerprint, &e.Label); err != nil {
			return nil, fmt.Errorf("scan stale pending: %w", err)
		}
		stale = append(stale, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale pending: %w", err)
	}
	return stale, nil
}

func (s *Store) queryScenarios(ctx context.Context, query string, args ...any) ([]ScenarioRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scenario results: %w", err)
	}
	defer rows.Close()

	records := []ScenarioRecord{}
	for rows.Next() {
		rec, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenario results: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run               Run
		started, finished string
		bailed            bool
	)
	err := row.Scan(
		&run.ID, &started, &finished, &run.FeatureSpec,
		&run.Counts.Passed, &run.Counts.Failed, &run.Counts.Pending,
		&run.Counts.Skipped, &run.Counts.Errored, &bailed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Bailed = bailed

	if run.StartedAt, err = parseTime(started); err != nil {
		return Run{}, err
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, err
	}
	return run, nil
}

func scanScenario(row scanner) (ScenarioRecord, error) {
	var (
		rec     ScenarioRecord
		started string
		status  string
		steps   string
	)
	err := row.Scan(
		&rec.RunID, &started, &rec.Fingerprint, &rec.Title, &rec.SourceFile,
		&rec.Line, &status, &rec.Error, &steps,
	)
	if err != nil {
		return ScenarioRecord{}, fmt.Errorf("scan scenario result: %w", err)
	}
	rec.Status = harness.Status(status)

	if rec.StartedAt, err = parseTime(started); err != nil {
		return ScenarioRecord{}, err
	}
	if rec.Steps, err = unmarshalSteps(steps); err != nil {
		return ScenarioRecord{}, err
	}
	return rec, nil
}
