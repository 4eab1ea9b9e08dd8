package harness

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/conformer/internal/feature"
	"github.com/roach88/conformer/internal/registry"
)

const statementsFeature = `Feature: Statements

  Scenario: store a statement
    Given log setup
    When X
    Then Y

  Scenario: same steps without log
    When X
    Then Y

  Scenario: broken
    When X
    Then fail
    Then Y

  Scenario: known failure
    When Z
`

const (
	fpXY     = "dd366bfd71e81e55acdb23eda1df68ca"
	fpBroken = "437e5d2cde63fbf6c914ae8427e669cf"
	fpZ      = "6545785f60c84c3f8e377d841710c6cf"
	fpW      = "b3006553bfb57c29b993bd9bea885c0b"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// countingParser counts ParseFile calls per path.
type countingParser struct {
	feature.TextParser
	calls map[string]int
}

func (p *countingParser) ParseFile(path string) (*feature.Feature, error) {
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[path]++
	return p.TextParser.ParseFile(path)
}

func failOn(step string) *fakeInterpreter {
	return &fakeInterpreter{log: &eventLog{}, steps: map[string]stepFunc{
		step: func(context.Context, *ExecutionContext) (Info, error) { return "", errors.New("boom") },
	}}
}

func newTestRunner(t *testing.T, spec string, pending map[string][]string, interp Interpreter, mutate func(*Config)) *Runner {
	t.Helper()
	p, err := registry.NewPending(pending)
	require.NoError(t, err)
	cfg := Config{
		FeatureSpec: spec,
		Hashes:      registry.NewHashes(false),
		Pending:     p,
		Parser:      feature.TextParser{},
		Executor:    NewExecutor(interp, nil, nil),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	r, err := NewRunner(cfg)
	require.NoError(t, err)
	return r
}

func TestRunGolden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "features/statements.feature", statementsFeature)

	r := newTestRunner(t, filepath.Join(root, "features"),
		map[string][]string{"TICKET-1": {fpZ}}, failOn("Then fail"), nil)

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, "statements", result))

	assert.Equal(t, Counts{Passed: 2, Failed: 1, Pending: 1}, result.Counts())
	assert.True(t, result.Failed())
}

func TestRunLogStepFilteredScenariosShareFingerprint(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "features/statements.feature", statementsFeature)

	r := newTestRunner(t, path, nil, &fakeInterpreter{log: &eventLog{}}, nil)
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	scenarios := result.Scenarios()
	require.Len(t, scenarios, 4)
	assert.Equal(t, fpXY, scenarios[0].Fingerprint)
	assert.Equal(t, scenarios[0].Fingerprint, scenarios[1].Fingerprint)
	assert.NotEqual(t, scenarios[0].Fingerprint, scenarios[2].Fingerprint)

	// Annotating one scenario object leaves its twin untouched.
	f, err := feature.TextParser{}.ParseFile(path)
	require.NoError(t, err)
	h := registry.NewHashes(false)
	for _, sc := range f.Scenarios {
		_, err := h.Fingerprint(sc)
		require.NoError(t, err)
	}
	f.Scenarios[0].Annotate(feature.AnnotationPending, "L")
	assert.True(t, f.Scenarios[0].Pending())
	assert.False(t, f.Scenarios[1].Pending())
	assert.Equal(t, f.Scenarios[0].Fingerprint, f.Scenarios[1].Fingerprint)
}

func TestRunPendingAnnotationAndEncountered(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "features/statements.feature", statementsFeature)

	log := &eventLog{}
	r := newTestRunner(t, filepath.Join(root, "features"),
		map[string][]string{"TICKET-1": {fpZ}, "TICKET-2": {fpW}}, &fakeInterpreter{log: log}, nil)

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	pending := result.Scenarios()[3]
	assert.Equal(t, StatusPending, pending.Status)
	assert.Equal(t, "PENDING (TICKET-1): known failure", pending.Title)
	assert.NotContains(t, log.all(), "step:When Z")

	assert.True(t, r.Hashes().Encountered(fpZ))
	assert.True(t, r.Hashes().Seen(fpXY))
	assert.Equal(t, []registry.StaleEntry{{Fingerprint: fpW, Label: "TICKET-2"}}, r.Pending().Stale(r.Hashes()))
}

func TestRunDispatchesEachFileOnce(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "features/a.feature", "Feature: A\n  Scenario: a\n    When A\n")
	writeFile(t, root, "features/sub/b.feature", "Feature: B\n  Scenario: b\n    When B\n")

	parser := &countingParser{}
	r := newTestRunner(t, filepath.Join(root, "features")+"/**", nil, &fakeInterpreter{log: &eventLog{}}, func(c *Config) {
		c.Parser = parser
	})

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Features, 2)
	assert.Len(t, parser.calls, 2)
	for path, n := range parser.calls {
		assert.Equal(t, 1, n, path)
	}
	assert.Len(t, r.Dispatched(), 2)
}

func TestRunGrepSkipsNonMatching(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "features/statements.feature", statementsFeature)

	log := &eventLog{}
	r := newTestRunner(t, filepath.Join(root, "features"), nil, &fakeInterpreter{log: log}, func(c *Config) {
		c.Grep = regexp.MustCompile(`^broken$`)
	})

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Counts{Passed: 1, Skipped: 3}, result.Counts())
	assert.Equal(t, []string{"step:When X", "step:Then fail", "step:Then Y"}, log.all())

	// Skipped scenarios still count for stale detection.
	assert.True(t, r.Hashes().Seen(fpZ))
	assert.False(t, r.Hashes().Encountered(fpZ))
}

func TestRunBailStopsAfterFirstFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "features/a.feature", "Feature: A\n  Scenario: fails\n    Then fail\n  Scenario: later\n    When A\n")
	writeFile(t, root, "features/b.feature", "Feature: B\n  Scenario: b\n    When B\n")

	r := newTestRunner(t, filepath.Join(root, "features"), nil, failOn("Then fail"), func(c *Config) {
		c.Bail = true
	})

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Bailed)
	require.Len(t, result.Features, 1)
	assert.Len(t, result.Features[0].Scenarios, 1)
	assert.Equal(t, Counts{Failed: 1}, result.Counts())
}

func TestRunParseErrorContinues(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "features/a.feature", "Feature: A\nFeature: again\n")
	writeFile(t, root, "features/b.feature", "Feature: B\n  Scenario: b\n    When B\n")

	r := newTestRunner(t, filepath.Join(root, "features"), nil, &fakeInterpreter{log: &eventLog{}}, nil)
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Features, 2)
	assert.Contains(t, result.Features[0].Error, feature.ErrDuplicateFeature.Error())
	assert.Equal(t, Counts{Passed: 1, Errored: 1}, result.Counts())
	assert.True(t, result.Failed())
}

func TestRunCancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "features/a.feature", "Feature: A\n  Scenario: a\n    When A\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestRunner(t, filepath.Join(root, "features"), nil, &fakeInterpreter{log: &eventLog{}}, nil)
	result, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Features)
}

func TestRunEmptySpec(t *testing.T) {
	r := newTestRunner(t, filepath.Join(t.TempDir(), "none"), nil, &fakeInterpreter{log: &eventLog{}}, nil)
	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Features)
	assert.False(t, result.Failed())
}

func TestRunInvalidSpec(t *testing.T) {
	r := newTestRunner(t, "features/[", nil, &fakeInterpreter{log: &eventLog{}}, nil)
	_, err := r.Run(context.Background())
	assert.Error(t, err)
}

func TestNewRunnerRequiresCollaborators(t *testing.T) {
	_, err := NewRunner(Config{})
	assert.Error(t, err)
}

func TestRunDryRunExecutesNothing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "features/statements.feature", statementsFeature)

	log := &eventLog{}
	r := newTestRunner(t, filepath.Join(root, "features"),
		map[string][]string{"TICKET-1": {fpZ}}, &fakeInterpreter{log: log}, func(c *Config) {
			c.DryRun = true
		})

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, log.all())
	assert.Equal(t, Counts{Skipped: 4}, result.Counts())

	scenarios := result.Scenarios()
	assert.Equal(t, fpBroken, scenarios[2].Fingerprint)
	assert.Equal(t, "PENDING (TICKET-1): known failure", scenarios[3].Title)
}
