package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/conformer/internal/config"
	"github.com/roach88/conformer/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	ConfigPath  string
	Database    string
	Fingerprint string
	RunID       string
	Limit       int
}

// RunDetail is the JSON payload of `history --run`.
type RunDetail struct {
	Run       store.Run              `json:"run"`
	Scenarios []store.ScenarioRecord `json:"scenarios"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query recorded runs",
		Long: `Query the run history database.

Without flags, lists the most recent runs. --run shows every scenario
of one run. --fingerprint shows one scenario's outcomes across runs,
which stays meaningful when the scenario's title changes.

Examples:
  conformer history --db runs.db
  conformer history --db runs.db --run 0190a6f2-...
  conformer history --db runs.db --fingerprint dd366bfd71e81e55acdb23eda1df68ca`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "configuration file naming history.database")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "show one scenario across runs")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the scenarios of one run")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of rows")
	cmd.MarkFlagsMutuallyExclusive("fingerprint", "run")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	ctx := cmd.Context()

	dbPath := opts.Database
	if dbPath == "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return fail(out, ExitCommandError, ErrCodeConfig, "failed to load config", err)
		}
		dbPath = cfg.History.Database
	}
	if dbPath == "" {
		return fail(out, ExitCommandError, ErrCodeHistory, "no history database: pass --db or set history.database", nil)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return fail(out, ExitCommandError, ErrCodeHistory, "failed to open database", err)
	}
	defer st.Close()

	switch {
	case opts.Fingerprint != "":
		records, err := st.ScenarioHistory(ctx, opts.Fingerprint, opts.Limit)
		if err != nil {
			return fail(out, ExitCommandError, ErrCodeHistory, "failed to read scenario history", err)
		}
		return out.Success(records, func(w io.Writer) error {
			return writeScenarioHistory(w, opts.Fingerprint, records)
		})

	case opts.RunID != "":
		run, scenarios, err := st.ReadRun(ctx, opts.RunID)
		if err != nil {
			return fail(out, ExitCommandError, ErrCodeHistory, "failed to read run", err)
		}
		return out.Success(RunDetail{Run: run, Scenarios: scenarios}, func(w io.Writer) error {
			return writeRunDetail(w, run, scenarios)
		})

	default:
		runs, err := st.ListRuns(ctx, opts.Limit)
		if err != nil {
			return fail(out, ExitCommandError, ErrCodeHistory, "failed to list runs", err)
		}
		return out.Success(runs, func(w io.Writer) error {
			return writeRuns(w, runs)
		})
	}
}

func writeRuns(w io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")
		return err
	}
	for _, r := range runs {
		c := r.Counts
		bailed := ""
		if r.Bailed {
			bailed = " bailed"
		}
		if _, err := fmt.Fprintf(w, "%s  %s  %d passed, %d failed, %d pending, %d skipped  %s%s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), c.Passed, c.Failed, c.Pending, c.Skipped, r.FeatureSpec, bailed); err != nil {
			return err
		}
	}
	return nil
}

func writeRunDetail(w io.Writer, run store.Run, scenarios []store.ScenarioRecord) error {
	fmt.Fprintf(w, "Run: %s\n", run.ID)
	fmt.Fprintf(w, "Feature spec: %s\n", run.FeatureSpec)
	fmt.Fprintf(w, "Started: %s (%s)\n", run.StartedAt.Format(time.RFC3339), run.FinishedAt.Sub(run.StartedAt))
	fmt.Fprintln(w)
	for _, s := range scenarios {
		fmt.Fprintf(w, "  %-7s %s %s\n", s.Status, s.Fingerprint, s.Title)
		if s.Error != "" {
			fmt.Fprintf(w, "          %s\n", s.Error)
		}
	}
	return nil
}

func writeScenarioHistory(w io.Writer, fingerprint string, records []store.ScenarioRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintf(w, "No results for fingerprint: %s\n", fingerprint)
		return err
	}
	for _, r := range records {
		if _, err := fmt.Fprintf(w, "%s  %s  %-7s %s\n",
			r.RunID, r.StartedAt.Format(time.RFC3339), r.Status, r.Title); err != nil {
			return err
		}
	}
	return nil
}
