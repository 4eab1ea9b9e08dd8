package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/conformer/internal/harness"
	"github.com/roach88/conformer/internal/testutil"
)

// createTestStore creates a new store in a temp dir with deterministic run
// IDs and timestamps.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithIDGenerator(testutil.NewFixedIDGenerator()),
		WithClock(testutil.NewDeterministicClock(time.Minute)),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestResult builds a run with one passing and one failing scenario.
func createTestResult(fpPass, fpFail string) *harness.RunResult {
	return &harness.RunResult{Features: []*harness.FeatureResult{{
		Title:      "Statements",
		SourceFile: "features/statements.feature",
		Scenarios: []harness.ScenarioResult{
			{
				Title:       "store",
				Fingerprint: fpPass,
				SourceFile:  "features/statements.feature",
				Line:        3,
				Status:      harness.StatusPassed,
				Steps:       []harness.StepResult{{Text: "When X", Status: harness.StatusPassed, Info: "POST statements -> 200"}},
			},
			{
				Title:       "broken",
				Fingerprint: fpFail,
				SourceFile:  "features/statements.feature",
				Line:        8,
				Status:      harness.StatusFailed,
				Error:       `step 1 "Then fail": boom`,
				Steps: []harness.StepResult{
					{Text: "Then fail", Status: harness.StatusFailed, Error: "boom", CleanupError: "cleanup: 404"},
					{Text: "Then Y", Status: harness.StatusSkipped},
				},
			},
		},
	}}}
}
