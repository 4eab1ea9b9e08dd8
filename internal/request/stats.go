package request

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"sync"
)

// Stats counts requests by method and by status code. Status 0 counts
// transport failures (no response).
type Stats struct {
	mu       sync.Mutex
	total    int
	byMethod map[string]int
	byStatus map[int]int
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Total    int            `json:"total"`
	ByMethod map[string]int `json:"by_method"`
	ByStatus map[string]int `json:"by_status"`
}

// NewStats creates empty counters.
func NewStats() *Stats {
	return &Stats{
		byMethod: make(map[string]int),
		byStatus: make(map[int]int),
	}
}

func (s *Stats) record(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.byMethod[method]++
	s.byStatus[status]++
}

// Total returns the number of requests made.
func (s *Stats) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StatsSnapshot{
		Total:    s.total,
		ByMethod: make(map[string]int, len(s.byMethod)),
		ByStatus: make(map[string]int, len(s.byStatus)),
	}
	for k, v := range s.byMethod {
		snap.ByMethod[k] = v
	}
	for k, v := range s.byStatus {
		snap.ByStatus[statusLabel(k)] = v
	}
	return snap
}

// Render writes the counters as text, methods and statuses sorted.
func (s StatsSnapshot) Render(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Requests: %d\n", s.Total); err != nil {
		return err
	}
	for _, m := range sortedKeys(s.ByMethod) {
		if _, err := fmt.Fprintf(w, "  %s: %d\n", m, s.ByMethod[m]); err != nil {
			return err
		}
	}
	for _, st := range sortedKeys(s.ByStatus) {
		if _, err := fmt.Fprintf(w, "  status %s: %d\n", st, s.ByStatus[st]); err != nil {
			return err
		}
	}
	return nil
}

func statusLabel(code int) string {
	if code == 0 {
		return "error"
	}
	return strconv.Itoa(code)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
