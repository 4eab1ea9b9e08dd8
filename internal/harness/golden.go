package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/conformer/internal/ir"
)

// toCanonicalMap converts a RunResult to a map[string]any for canonical
// JSON serialization. Empty optional fields are left out so snapshots only
// change when behavior does.
func (r *RunResult) toCanonicalMap() map[string]any {
	features := make([]any, len(r.Features))
	for i, f := range r.Features {
		scenarios := make([]any, len(f.Scenarios))
		for j, s := range f.Scenarios {
			scenarios[j] = s.toCanonicalMap()
		}
		fm := map[string]any{
			"title":     f.Title,
			"scenarios": scenarios,
		}
		if f.Error != "" {
			fm["error"] = f.Error
		}
		features[i] = fm
	}

	out := map[string]any{"features": features}
	if r.Bailed {
		out["bailed"] = true
	}
	return out
}

func (s ScenarioResult) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, st := range s.Steps {
		sm := map[string]any{
			"text":   st.Text,
			"status": string(st.Status),
		}
		if st.Info != "" {
			sm["info"] = string(st.Info)
		}
		if st.Error != "" {
			sm["error"] = st.Error
		}
		if st.CleanupError != "" {
			sm["cleanup_error"] = st.CleanupError
		}
		steps[i] = sm
	}

	m := map[string]any{
		"title":       s.Title,
		"fingerprint": s.Fingerprint,
		"line":        s.Line,
		"status":      string(s.Status),
		"steps":       steps,
	}
	if s.Error != "" {
		m["error"] = s.Error
	}
	return m
}

// AssertGolden compares a run result against testdata/golden/{name}.golden.
// Source paths are left out so snapshots do not depend on temp dirs.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *RunResult) error {
	t.Helper()

	data, err := ir.MarshalCanonical(result.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
