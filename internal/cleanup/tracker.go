// Package cleanup tracks records created during a run that are expected to
// be torn down again. Step handlers register a record when they create it;
// the request series resolves it when the matching cleanup request
// succeeds. Whatever remains at the end of the run is reported as
// unmatched.
package cleanup

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/conformer/internal/ir"
	"github.com/roach88/conformer/internal/request"
)

// ErrEmptyID is returned when registering a record without an id.
var ErrEmptyID = errors.New("cleanup record id is empty")

// Entry is one record still awaiting cleanup.
type Entry struct {
	ID     string
	Record ir.Value
}

// Tracker is an insertion-ordered map of record id to record.
type Tracker struct {
	mu      sync.Mutex
	records map[string]ir.Value
	order   []string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{records: make(map[string]ir.Value)}
}

// Register records id as awaiting cleanup. record must be representable as
// canonical JSON. Registering an id again replaces the record but keeps its
// original position.
func (t *Tracker) Register(id string, record any) error {
	if id == "" {
		return ErrEmptyID
	}
	v, err := ir.FromAny(record)
	if err != nil {
		return fmt.Errorf("cleanup record %q: %w", id, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.records[id]; !ok {
		t.order = append(t.order, id)
	}
	t.records[id] = v
	return nil
}

// Resolve marks id as cleaned up. It reports whether id was tracked.
func (t *Tracker) Resolve(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.records[id]; !ok {
		return false
	}
	delete(t.records, id)
	t.order = slices.DeleteFunc(t.order, func(o string) bool { return o == id })
	return true
}

// Observe resolves the tracking id of a request that completed
// successfully. It has the shape of request.CompletionFunc.
func (t *Tracker) Observe(req request.Request, _ *request.Response, err error) {
	if err != nil || req.TrackingID == "" {
		return
	}
	t.Resolve(req.TrackingID)
}

// Missing returns the records never resolved, in registration order.
func (t *Tracker) Missing() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, 0, len(t.records))
	for _, id := range t.order {
		out = append(out, Entry{ID: id, Record: t.records[id]})
	}
	return out
}

// Len returns the number of unresolved records.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
