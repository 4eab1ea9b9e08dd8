package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/conformer/internal/store"
)

func TestHistory_NoDatabase(t *testing.T) {
	_, _, err := execute(t, "history")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no history database")
}

func TestHistory_NonExistentDatabase(t *testing.T) {
	_, _, err := execute(t, "history", "--db", "/nonexistent/path/test.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestHistory_Empty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	stdout, _, err := execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded\n", stdout)
}

func TestHistory_UnknownRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	_, _, err := execute(t, "history", "--db", db, "--run", "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestHistory_FlagsExclusive(t *testing.T) {
	_, _, err := execute(t, "history", "--db", "x.db", "--run", "a", "--fingerprint", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestHistory_AcrossRuns(t *testing.T) {
	tg := newTarget(t)
	p := newProject(t, tg.URL+"/api")

	// history.database comes from the config file.
	db := filepath.Join(p.dir, "runs.db")
	cfg, err := os.ReadFile(p.config)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p.config, append(cfg, []byte("history:\n  database: "+db+"\n")...), 0o644))

	_, _, err = execute(t, "run", "--config", p.config)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	_, _, err = execute(t, "run", "--config", p.config, "--grep", "^store")
	require.NoError(t, err)

	stdout, _, err := execute(t, "history", "--config", p.config, "--format", "json")
	require.NoError(t, err)
	var runs struct {
		Data []store.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &runs))
	require.Len(t, runs.Data, 2)
	// Newest first.
	assert.Equal(t, 2, runs.Data[0].Counts.Skipped)
	assert.Equal(t, 1, runs.Data[1].Counts.Failed)
	assert.Equal(t, p.features, runs.Data[0].FeatureSpec)

	stdout, _, err = execute(t, "history", "--db", db, "--fingerprint", fpMissing)
	require.NoError(t, err)
	lines := splitLines(stdout)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "skipped missing resource")
	assert.Contains(t, lines[1], "failed  missing resource")

	stdout, _, err = execute(t, "history", "--db", db, "--fingerprint", fpStale)
	require.NoError(t, err)
	assert.Equal(t, "No results for fingerprint: "+fpStale+"\n", stdout)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
