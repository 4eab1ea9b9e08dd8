package harness

// Status is the outcome of a step or scenario.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending"
	StatusSkipped Status = "skipped"
)

// StepResult is the outcome of one step.
type StepResult struct {
	Text   string `json:"text"`
	Status Status `json:"status"`
	Info   Info   `json:"info,omitempty"`
	Error  string `json:"error,omitempty"`
	// CleanupError is set when the cleanup flush run on this step failed.
	// It never changes Status.
	CleanupError string `json:"cleanup_error,omitempty"`
}

// ScenarioResult is the outcome of one scenario.
type ScenarioResult struct {
	Title       string       `json:"title"`
	Fingerprint string       `json:"fingerprint"`
	SourceFile  string       `json:"source_file"`
	Line        int          `json:"line"`
	Status      Status       `json:"status"`
	Error       string       `json:"error,omitempty"`
	Steps       []StepResult `json:"steps,omitempty"`
}

// FeatureResult is the outcome of one feature file.
type FeatureResult struct {
	Title      string           `json:"title"`
	SourceFile string           `json:"source_file"`
	Error      string           `json:"error,omitempty"`
	Scenarios  []ScenarioResult `json:"scenarios"`
}

// Counts tallies scenario outcomes.
type Counts struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
	Skipped int `json:"skipped"`
	// Errored counts feature files that could not be parsed.
	Errored int `json:"errored"`
}

// Total is the number of scenarios.
func (c Counts) Total() int {
	return c.Passed + c.Failed + c.Pending + c.Skipped
}

// RunResult is the outcome of a whole run.
type RunResult struct {
	Features []*FeatureResult `json:"features"`
	// Bailed is set when the run stopped early after a failure.
	Bailed bool `json:"bailed,omitempty"`
}

// Counts tallies the run.
func (r *RunResult) Counts() Counts {
	var c Counts
	for _, f := range r.Features {
		if f.Error != "" {
			c.Errored++
		}
		for _, s := range f.Scenarios {
			switch s.Status {
			case StatusPassed:
				c.Passed++
			case StatusFailed:
				c.Failed++
			case StatusPending:
				c.Pending++
			case StatusSkipped:
				c.Skipped++
			}
		}
	}
	return c
}

// Failed reports whether any scenario failed or any feature file errored.
func (r *RunResult) Failed() bool {
	c := r.Counts()
	return c.Failed > 0 || c.Errored > 0
}

// Scenarios flattens all scenario results in run order.
func (r *RunResult) Scenarios() []ScenarioResult {
	var out []ScenarioResult
	for _, f := range r.Features {
		out = append(out, f.Scenarios...)
	}
	return out
}
