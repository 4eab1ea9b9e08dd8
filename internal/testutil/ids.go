package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator returns predetermined run IDs in order.
//
// This enables deterministic history tests: the same sequence of runs
// produces the same IDs.
//
// Thread-safety: FixedIDGenerator is safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator that returns ids in order.
// With no ids it yields "run-1", "run-2", and so on.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// Generate returns the next predetermined ID.
//
// Panics if a fixed list was given and all of it has been consumed. This is
// a fail-fast approach to catch test misconfiguration.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.idx++
	if len(g.ids) == 0 {
		return fmt.Sprintf("run-%d", g.idx)
	}
	if g.idx > len(g.ids) {
		panic("FixedIDGenerator: all ids exhausted")
	}
	return g.ids[g.idx-1]
}
