package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/conformer/internal/harness"
	"github.com/roach88/conformer/internal/report"
)

// HashOptions holds flags for the hash command.
type HashOptions struct {
	*RootOptions
	configFlags
}

// HashEntry is one scenario in the hash command's JSON output.
type HashEntry struct {
	Fingerprint string `json:"fingerprint"`
	Title       string `json:"title"`
	SourceFile  string `json:"source_file"`
	Line        int    `json:"line"`
	Pending     string `json:"pending,omitempty"`
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HashOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Print scenario fingerprints without running them",
		Long: `Print the fingerprint and title of every selected scenario.

Nothing is sent to the target service. Use the fingerprints to mark
known failures under stage1.pending.

Examples:
  conformer hash --feature features
  conformer hash --config conformer.yaml --grep statement --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(opts, cmd)
		},
	}

	addConfigFlags(cmd, &opts.configFlags)
	return cmd
}

func runHash(opts *HashOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	logger := opts.logger(cmd)

	cfg, err := opts.load()
	if err != nil {
		return fail(out, ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	sess, err := newSession(cfg, true, logger)
	if err != nil {
		return fail(out, ExitCommandError, ErrCodeConfig, "failed to set up run", err)
	}

	result, err := sess.runner.Run(cmd.Context())
	if err != nil {
		return fail(out, ExitCommandError, ErrCodeRun, "failed to fingerprint scenarios", err)
	}

	if grep, _ := cfg.GrepPattern(); grep != nil {
		result = filterResult(result, func(s harness.ScenarioResult) bool {
			return grep.MatchString(s.Title)
		})
	}

	pending := sess.runner.Pending()
	entries := []HashEntry{}
	for _, s := range result.Scenarios() {
		label, _ := pending.Label(s.Fingerprint)
		entries = append(entries, HashEntry{
			Fingerprint: s.Fingerprint,
			Title:       s.Title,
			SourceFile:  s.SourceFile,
			Line:        s.Line,
			Pending:     label,
		})
	}

	return out.Success(entries, func(w io.Writer) error {
		return report.WriteHashes(w, result)
	})
}

// filterResult keeps the scenarios keep accepts. Features left without
// scenarios are dropped.
func filterResult(result *harness.RunResult, keep func(harness.ScenarioResult) bool) *harness.RunResult {
	out := &harness.RunResult{Bailed: result.Bailed}
	for _, f := range result.Features {
		nf := &harness.FeatureResult{Title: f.Title, SourceFile: f.SourceFile, Error: f.Error}
		for _, s := range f.Scenarios {
			if keep(s) {
				nf.Scenarios = append(nf.Scenarios, s)
			}
		}
		if len(nf.Scenarios) > 0 || nf.Error != "" {
			out.Features = append(out.Features, nf)
		}
	}
	return out
}
