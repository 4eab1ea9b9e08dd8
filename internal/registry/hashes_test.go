package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/conformer/internal/feature"
	"github.com/roach88/conformer/internal/ir"
)

func scenario(title string, steps ...string) *feature.Scenario {
	return &feature.Scenario{Title: title, Steps: steps, LastStep: -1}
}

func TestIsLogStep(t *testing.T) {
	tests := []struct {
		step string
		want bool
	}{
		{"Given log setup", true},
		{"given LOG anything", true},
		{"GIVEN log", true},
		{"Given a log entry", false},
		{"When log", false},
		{"Given lo", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLogStep(tt.step))
		})
	}
}

func TestHashableSteps(t *testing.T) {
	tests := []struct {
		name     string
		steps    []string
		hashable []string
		last     int
	}{
		{"no log steps", []string{"When X", "Then Y"}, []string{"When X", "Then Y"}, 1},
		{"leading log", []string{"Given log setup", "When X", "Then Y"}, []string{"When X", "Then Y"}, 2},
		{"trailing log", []string{"When X", "Then Y", "Given log done"}, []string{"When X", "Then Y"}, 1},
		{"only logs", []string{"Given log a", "Given log b"}, []string{}, 1},
		{"empty", nil, []string{}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashable, last := HashableSteps(tt.steps)
			assert.Equal(t, tt.hashable, hashable)
			assert.Equal(t, tt.last, last)
		})
	}
}

func TestFingerprintIgnoresTitleAndLogSteps(t *testing.T) {
	h := NewHashes(false)

	a := scenario("first", "Given log setup", "When X", "Then Y")
	b := scenario("second, reworded", "When X", "Then Y")

	fpA, err := h.Fingerprint(a)
	require.NoError(t, err)
	fpB, err := h.Fingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, fpA, fpB)
	assert.Equal(t, ir.MustStepsDigest([]string{"When X", "Then Y"}), fpA)
	assert.Equal(t, fpA, a.Fingerprint)
	assert.Equal(t, 2, a.LastStep)
	assert.Equal(t, 1, b.LastStep)
	assert.Equal(t, 1, h.Len())
}

func TestFingerprintLogFilteringIdempotent(t *testing.T) {
	h := NewHashes(false)
	base, err := h.Fingerprint(scenario("base", "When X", "Then Y"))
	require.NoError(t, err)

	variants := [][]string{
		{"Given log a", "When X", "Then Y"},
		{"When X", "Given log a", "Then Y"},
		{"When X", "Then Y", "Given log a", "Given log b"},
		{"Given log a", "Given log b", "Given log c", "When X", "Given log d", "Then Y"},
	}
	for _, steps := range variants {
		fp, err := h.Fingerprint(scenario("variant", steps...))
		require.NoError(t, err)
		assert.Equal(t, base, fp, "steps %v", steps)
	}
}

func TestFingerprintDiffersOnOneStep(t *testing.T) {
	h := NewHashes(false)
	corpus := [][]string{
		{"When X", "Then Y"},
		{"When X", "Then Z"},
		{"When X"},
		{"Then Y", "When X"},
		{"When X", "Then Y", "Then Y"},
		{"When  X", "Then Y"},
	}
	seen := map[string]int{}
	for i, steps := range corpus {
		fp, err := h.Fingerprint(scenario("s", steps...))
		require.NoError(t, err)
		if prev, ok := seen[fp]; ok {
			t.Fatalf("corpus[%d] collides with corpus[%d]", i, prev)
		}
		seen[fp] = i
	}
}

func TestFingerprintTitleSuffix(t *testing.T) {
	h := NewHashes(true)
	sc := scenario("store", "When X")
	fp, err := h.Fingerprint(sc)
	require.NoError(t, err)
	assert.Equal(t, "store ("+fp+")", sc.Title)
}

func TestHashesFirstWriteWins(t *testing.T) {
	h := NewHashes(false)
	sc := scenario("s", "When X")
	fp, err := h.Fingerprint(sc)
	require.NoError(t, err)

	assert.True(t, h.Seen(fp))
	assert.False(t, h.Encountered(fp))

	h.MarkEncountered(fp)
	assert.True(t, h.Encountered(fp))

	// Fingerprinting an identical scenario later must not reset the flag.
	_, err = h.Fingerprint(scenario("again", "When X"))
	require.NoError(t, err)
	assert.True(t, h.Encountered(fp))
	assert.Equal(t, []string{fp}, h.Fingerprints())
}

func TestHashesUnknownFingerprint(t *testing.T) {
	h := NewHashes(false)
	assert.False(t, h.Seen("nope"))
	assert.False(t, h.Encountered("nope"))
}
