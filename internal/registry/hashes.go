// Package registry holds the per-run bookkeeping tables that correlate
// scenarios across runs: the fingerprint table (which step sequences this
// run produced) and the pending index (which fingerprints are known to fail).
//
// Both are explicit values owned by one run coordinator. They are safe for
// concurrent use, although a run only mutates them from one goroutine.
package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/conformer/internal/feature"
	"github.com/roach88/conformer/internal/ir"
)

// LogStepPrefix marks steps that only log and never change what a scenario
// does. They are left out of fingerprints so adding or rewording a log
// line keeps a scenario's identity.
const LogStepPrefix = "given log"

// IsLogStep reports whether a step is a logging/no-op step
// (case-insensitive prefix match on LogStepPrefix).
func IsLogStep(step string) bool {
	return len(step) >= len(LogStepPrefix) && strings.EqualFold(step[:len(LogStepPrefix)], LogStepPrefix)
}

// HashableSteps returns the steps that take part in a fingerprint, in
// order, together with the index of the last such step in the input.
// When every step is a log step the index falls back to the final step,
// and to -1 for an empty scenario.
func HashableSteps(steps []string) (hashable []string, last int) {
	hashable = make([]string, 0, len(steps))
	last = len(steps) - 1
	for i, step := range steps {
		if IsLogStep(step) {
			continue
		}
		hashable = append(hashable, step)
		last = i
	}
	return hashable, last
}

// Hashes is the fingerprint table: fingerprint -> encountered.
//
// A fingerprint is recorded (encountered=false) when a scenario is
// fingerprinted and flipped to true when that scenario is scheduled. The
// first record of a key wins; later records for the same key are no-ops.
type Hashes struct {
	mu          sync.Mutex
	encountered map[string]bool
	order       []string

	// annotateTitles appends " (<fingerprint>)" to scenario titles.
	annotateTitles bool
}

// NewHashes creates an empty fingerprint table. When annotateTitles is set
// (diagnostics.stepHash), fingerprinted scenarios get the fingerprint
// appended to their title.
func NewHashes(annotateTitles bool) *Hashes {
	return &Hashes{
		encountered:    make(map[string]bool),
		annotateTitles: annotateTitles,
	}
}

// Fingerprint computes the scenario's fingerprint, stores it together with
// the last-step marker on the scenario, and records it in the table.
func (h *Hashes) Fingerprint(sc *feature.Scenario) (string, error) {
	hashable, last := HashableSteps(sc.Steps)
	fp, err := ir.StepsDigest(hashable)
	if err != nil {
		return "", fmt.Errorf("fingerprint %q: %w", sc.Title, err)
	}

	sc.Fingerprint = fp
	sc.LastStep = last

	h.record(fp)

	if h.annotateTitles {
		sc.Title += " (" + fp + ")"
	}
	return fp, nil
}

func (h *Hashes) record(fp string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.encountered[fp]; ok {
		return
	}
	h.encountered[fp] = false
	h.order = append(h.order, fp)
}

// MarkEncountered flags a fingerprint as scheduled for execution in this run.
func (h *Hashes) MarkEncountered(fp string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.encountered[fp]; !ok {
		h.order = append(h.order, fp)
	}
	h.encountered[fp] = true
}

// Seen reports whether any scenario in this run produced the fingerprint.
func (h *Hashes) Seen(fp string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.encountered[fp]
	return ok
}

// Encountered reports whether a scenario with this fingerprint was scheduled.
func (h *Hashes) Encountered(fp string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.encountered[fp]
}

// Fingerprints returns recorded fingerprints in first-seen order.
func (h *Hashes) Fingerprints() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Len returns the number of distinct fingerprints recorded.
func (h *Hashes) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.encountered)
}
