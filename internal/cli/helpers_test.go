package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const statementsFeature = `Feature: Statements

  Scenario: store a statement
    Given a POST request to "statements"
    And the request body is '{"id":"s1"}'
    When the request is made
    Then the response status is 200
    And "s1" is cleaned up by DELETE "statements/s1"
    Given log stored

  Scenario: missing resource
    Given a GET request to "missing"
    And "m1" is cleaned up by DELETE "missing/m1"
    When the request is made
    Then the response status is 200

  Scenario: known failure
    Given a GET request to "later"
    When the request is made
`

const (
	fpStore   = "a9cac488111d7bb838376fa28f308734"
	fpMissing = "24d1b576576b7c8b7e5c80a25d6ea088"
	fpKnown   = "fa2d021c6358631663e56f7489783827"
	fpStale   = "ffffffffffffffffffffffffffffffff"
)

// target is a fake service: statements can be created and deleted,
// everything else is missing.
type target struct {
	*httptest.Server
	mu   sync.Mutex
	seen []string
}

func newTarget(t *testing.T) *target {
	t.Helper()
	tg := &target{}
	tg.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tg.mu.Lock()
		tg.seen = append(tg.seen, r.Method+" "+r.URL.Path)
		tg.mu.Unlock()
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/statements":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/statements/s1":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(tg.Close)
	return tg
}

func (tg *target) requests() []string {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	return append([]string(nil), tg.seen...)
}

// project is a temp directory with a feature tree and a config file.
type project struct {
	dir      string
	features string
	config   string
}

func newProject(t *testing.T, endpoint string) *project {
	t.Helper()
	dir := t.TempDir()
	p := &project{
		dir:      dir,
		features: filepath.Join(dir, "features"),
		config:   filepath.Join(dir, "conformer.yaml"),
	}
	require.NoError(t, os.MkdirAll(p.features, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(p.features, "statements.feature"), []byte(statementsFeature), 0o644))

	cfg := "target:\n" +
		"  endpoint: " + endpoint + "\n" +
		"stage1:\n" +
		"  featureSpec: " + p.features + "\n" +
		"  pending:\n" +
		"    TICKET-12: [" + fpKnown + "]\n" +
		"    OLD-1: [" + fpStale + "]\n"
	require.NoError(t, os.WriteFile(p.config, []byte(cfg), 0o644))
	return p
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
