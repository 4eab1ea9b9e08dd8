package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/conformer/internal/feature"
)

// ErrDuplicatePending is returned when one fingerprint is listed under two
// different labels.
var ErrDuplicatePending = errors.New("fingerprint listed under more than one pending label")

// PendingPrefix formats the title marker for a pending scenario.
func PendingPrefix(label string) string {
	return "PENDING (" + label + "): "
}

// Pending is the pending index: fingerprint -> label. It is built once
// from configuration before any file is processed and read-only after.
type Pending struct {
	labels map[string]string
	order  []string
}

// StaleEntry is a pending fingerprint no scenario in the run produced.
type StaleEntry struct {
	Fingerprint string `json:"fingerprint"`
	Label       string `json:"label"`
}

// NewPending inverts the configured label -> fingerprints mapping.
// Iteration order is labels sorted, then fingerprints as listed.
func NewPending(byLabel map[string][]string) (*Pending, error) {
	p := &Pending{labels: make(map[string]string)}

	names := make([]string, 0, len(byLabel))
	for name := range byLabel {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, label := range names {
		for _, fp := range byLabel[label] {
			if prev, ok := p.labels[fp]; ok {
				if prev == label {
					continue
				}
				return nil, fmt.Errorf("%w: %s (%q and %q)", ErrDuplicatePending, fp, prev, label)
			}
			p.labels[fp] = label
			p.order = append(p.order, fp)
		}
	}
	return p, nil
}

// Label returns the pending label for a fingerprint.
func (p *Pending) Label(fp string) (string, bool) {
	label, ok := p.labels[fp]
	return label, ok
}

// Len returns the number of pending fingerprints.
func (p *Pending) Len() int {
	return len(p.labels)
}

// Fingerprints returns all pending fingerprints in index order.
func (p *Pending) Fingerprints() []string {
	return slices.Clone(p.order)
}

// Annotate marks a fingerprinted scenario pending when its fingerprint is
// in the index: the title gets the "PENDING (<label>): " prefix and the
// pending annotation is set. Call it exactly once per scenario, before the
// scenario is handed to the executor.
func (p *Pending) Annotate(sc *feature.Scenario) bool {
	label, ok := p.labels[sc.Fingerprint]
	if !ok {
		return false
	}
	sc.Title = PendingPrefix(label) + sc.Title
	sc.Annotate(feature.AnnotationPending, label)
	return true
}

// Stale returns the pending fingerprints the fingerprint table never saw.
func (p *Pending) Stale(h *Hashes) []StaleEntry {
	var stale []StaleEntry
	for _, fp := range p.order {
		if !h.Seen(fp) {
			stale = append(stale, StaleEntry{Fingerprint: fp, Label: p.labels[fp]})
		}
	}
	return stale
}
