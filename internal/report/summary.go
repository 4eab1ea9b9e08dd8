package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/conformer/internal/harness"
)

// WriteResult renders a run result as text: failures first, then feature
// files that could not be read, then the totals line.
func WriteResult(w io.Writer, result *harness.RunResult) error {
	var b strings.Builder

	var failed []harness.ScenarioResult
	for _, s := range result.Scenarios() {
		if s.Status == harness.StatusFailed {
			failed = append(failed, s)
		}
	}
	if len(failed) > 0 {
		b.WriteString("Failed scenarios:\n")
		for _, s := range failed {
			fmt.Fprintf(&b, "  %s (%s) %s:%d\n", s.Title, s.Fingerprint, s.SourceFile, s.Line)
			if s.Error != "" {
				fmt.Fprintf(&b, "    %s\n", s.Error)
			}
			for i, st := range s.Steps {
				if st.CleanupError != "" {
					fmt.Fprintf(&b, "    cleanup after step %d: %s\n", i+1, st.CleanupError)
				}
			}
		}
	}

	var broken []*harness.FeatureResult
	for _, f := range result.Features {
		if f.Error != "" {
			broken = append(broken, f)
		}
	}
	if len(broken) > 0 {
		b.WriteString("Unreadable feature files:\n")
		for _, f := range broken {
			fmt.Fprintf(&b, "  %s: %s\n", f.SourceFile, f.Error)
		}
	}

	c := result.Counts()
	fmt.Fprintf(&b, "%d scenarios (%d passed, %d failed, %d pending, %d skipped)\n",
		c.Total(), c.Passed, c.Failed, c.Pending, c.Skipped)
	if result.Bailed {
		b.WriteString("Stopped after first failure\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteHashes renders one "<fingerprint> <title>" line per scenario.
func WriteHashes(w io.Writer, result *harness.RunResult) error {
	var b strings.Builder
	for _, f := range result.Features {
		for _, s := range f.Scenarios {
			fmt.Fprintf(&b, "%s %s\n", s.Fingerprint, s.Title)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
