// Package report reconciles a finished run: request statistics, cleanup
// records that were never torn down, and pending fingerprints no scenario
// produced any more.
package report

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/conformer/internal/cleanup"
	"github.com/roach88/conformer/internal/harness"
	"github.com/roach88/conformer/internal/ir"
	"github.com/roach88/conformer/internal/registry"
	"github.com/roach88/conformer/internal/request"
)

// StaleHeader and StaleFooter frame the stale pending section.
const (
	StaleHeader = "Stale Pending Hashes"
	StaleFooter = "---------------"
)

// CleanupSource yields cleanup records still awaiting teardown, in
// registration order.
type CleanupSource interface {
	Missing() []cleanup.Entry
}

// StatsSource yields request counters.
type StatsSource interface {
	Snapshot() request.StatsSnapshot
}

// Options selects the report sections.
type Options struct {
	// RequestCount renders request statistics (diagnostics.requestCount).
	RequestCount bool
	// StalePending enables the stale check (stage1.stalePending).
	StalePending bool
	// FeatureSpecFromCLI disables the stale check: a narrowed run cannot
	// tell a stale fingerprint from one that simply was not selected.
	FeatureSpecFromCLI bool
}

// StaleCheck reports whether the stale section is produced.
func (o Options) StaleCheck() bool {
	return !o.FeatureSpecFromCLI && o.StalePending
}

// Input is the accumulated state of a finished run.
type Input struct {
	Stats   StatsSource
	Cleanup CleanupSource
	Hashes  *registry.Hashes
	Pending *registry.Pending
	Result  *harness.RunResult
}

// UnmatchedRecord is a cleanup record never resolved.
type UnmatchedRecord struct {
	ID     string `json:"id"`
	Record any    `json:"record"`
}

// Summary is the structured form of a report.
type Summary struct {
	Counts    harness.Counts         `json:"counts"`
	Bailed    bool                   `json:"bailed,omitempty"`
	Requests  *request.StatsSnapshot `json:"requests,omitempty"`
	Unmatched []UnmatchedRecord      `json:"unmatched"`
	Stale     []registry.StaleEntry  `json:"stale"`
	// StaleChecked tells an empty Stale list apart from a skipped check.
	StaleChecked bool `json:"stale_checked"`
}

// Reporter writes the post-run report.
type Reporter struct {
	out    io.Writer
	opts   Options
	logger *slog.Logger
}

// New creates a Reporter writing report lines to out.
func New(out io.Writer, opts Options, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reporter{out: out, opts: opts, logger: logger}
}

// Report runs once after all files completed. Sections are written in
// order: request statistics, unmatched cleanup records, stale pending
// fingerprints. Empty sections write nothing.
func (r *Reporter) Report(in Input) (*Summary, error) {
	sum := &Summary{
		Unmatched: []UnmatchedRecord{},
		Stale:     []registry.StaleEntry{},
	}
	if in.Result != nil {
		sum.Counts = in.Result.Counts()
		sum.Bailed = in.Result.Bailed
	}

	if r.opts.RequestCount && in.Stats != nil {
		snap := in.Stats.Snapshot()
		sum.Requests = &snap
		if err := snap.Render(r.out); err != nil {
			return nil, fmt.Errorf("write request stats: %w", err)
		}
	}

	if in.Cleanup != nil {
		missing := in.Cleanup.Missing()
		if err := r.writeUnmatched(missing); err != nil {
			return nil, err
		}
		for _, e := range missing {
			sum.Unmatched = append(sum.Unmatched, UnmatchedRecord{ID: e.ID, Record: e.Record})
		}
		if len(missing) > 0 {
			r.logger.Warn("cleanup records never resolved", "count", len(missing))
		}
	}

	if r.opts.StaleCheck() && in.Pending != nil && in.Hashes != nil {
		sum.StaleChecked = true
		stale := in.Pending.Stale(in.Hashes)
		if err := r.writeStale(stale); err != nil {
			return nil, err
		}
		sum.Stale = append(sum.Stale, stale...)
		if len(stale) > 0 {
			r.logger.Warn("stale pending fingerprints", "count", len(stale))
		}
	}

	return sum, nil
}

// writeUnmatched renders the records as one JSON array, one record per
// line, joined by hand so each line is the record's canonical form.
func (r *Reporter) writeUnmatched(missing []cleanup.Entry) error {
	if len(missing) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(r.out, "["); err != nil {
		return err
	}
	for i, e := range missing {
		data, err := ir.MarshalCanonical(e.Record)
		if err != nil {
			return fmt.Errorf("cleanup record %q: %w", e.ID, err)
		}
		sep := ","
		if i == len(missing)-1 {
			sep = ""
		}
		if _, err := fmt.Fprintf(r.out, "%s%s\n", data, sep); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(r.out, "]")
	return err
}

func (r *Reporter) writeStale(stale []registry.StaleEntry) error {
	if len(stale) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(r.out, StaleHeader); err != nil {
		return err
	}
	for _, s := range stale {
		if _, err := fmt.Fprintf(r.out, "%s: %s\n", s.Fingerprint, s.Label); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(r.out, StaleFooter)
	return err
}
