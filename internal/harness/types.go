package harness

import (
	"context"
	"sync"

	"github.com/roach88/conformer/internal/request"
)

// Info is the short note a step returns alongside its error, surfaced in
// results (e.g. "201 Created").
type Info string

// Interpreter executes one step text. It must not return before the step's
// work, including any network I/O, has finished.
type Interpreter interface {
	Interpret(ctx context.Context, step string, ec *ExecutionContext) (Info, error)
}

// SeriesRunner runs requests strictly one after another.
type SeriesRunner interface {
	RunSeries(ctx context.Context, reqs []request.Request) error
}

// FeatureResource is a key/value bag shared by every scenario of one
// feature file and discarded afterwards.
type FeatureResource struct {
	mu     sync.Mutex
	values map[string]any
}

// NewFeatureResource creates an empty bag.
func NewFeatureResource() *FeatureResource {
	return &FeatureResource{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (f *FeatureResource) Get(key string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}

// Set stores a value under key.
func (f *FeatureResource) Set(key string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = v
}

// ScenarioResource is owned by exactly one executing scenario. It carries
// the ordered cleanup requests queued by the scenario's steps.
type ScenarioResource struct {
	mu      sync.Mutex
	values  map[string]any
	cleanup []request.Request
}

// NewScenarioResource creates a bag with an empty cleanup list.
func NewScenarioResource() *ScenarioResource {
	return &ScenarioResource{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (s *ScenarioResource) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value under key.
func (s *ScenarioResource) Set(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = v
}

// QueueCleanup appends a request to run after the scenario's last step.
func (s *ScenarioResource) QueueCleanup(req request.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanup = append(s.cleanup, req)
}

// Cleanup returns a copy of the queued cleanup requests in order.
func (s *ScenarioResource) Cleanup() []request.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]request.Request, len(s.cleanup))
	copy(out, s.cleanup)
	return out
}

// takeCleanup empties the cleanup list and returns what it held.
func (s *ScenarioResource) takeCleanup() []request.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.cleanup
	s.cleanup = nil
	return out
}

// ExecutionContext is built fresh for every step and not retained.
type ExecutionContext struct {
	Feature  *FeatureResource
	Scenario *ScenarioResource

	// Trace holds the step texts executed so far, the current one last.
	Trace []string
	// Fingerprint of the running scenario.
	Fingerprint string
	// Index of the current step within the scenario.
	Index int
	// IsLast is set on the step that triggers the cleanup flush.
	IsLast bool

	ScenarioTitle string
	SourceFile    string
}

// Step returns the current step text.
func (ec *ExecutionContext) Step() string {
	if len(ec.Trace) == 0 {
		return ""
	}
	return ec.Trace[len(ec.Trace)-1]
}
