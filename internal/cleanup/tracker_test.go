package cleanup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/conformer/internal/ir"
	"github.com/roach88/conformer/internal/request"
)

func TestTrackerMissingKeepsRegistrationOrder(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.Register("b", map[string]any{"kind": "statement"}))
	require.NoError(t, tr.Register("a", map[string]any{"kind": "activity"}))
	require.NoError(t, tr.Register("c", "plain"))

	assert.True(t, tr.Resolve("a"))

	missing := tr.Missing()
	require.Len(t, missing, 2)
	assert.Equal(t, "b", missing[0].ID)
	assert.Equal(t, ir.Object{"kind": ir.String("statement")}, missing[0].Record)
	assert.Equal(t, "c", missing[1].ID)
	assert.Equal(t, ir.String("plain"), missing[1].Record)
}

func TestTrackerReRegisterKeepsPosition(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.Register("x", 1))
	require.NoError(t, tr.Register("y", 2))
	require.NoError(t, tr.Register("x", 3))

	missing := tr.Missing()
	require.Len(t, missing, 2)
	assert.Equal(t, Entry{ID: "x", Record: ir.Int(3)}, missing[0])
	assert.Equal(t, 2, tr.Len())
}

func TestTrackerResolveUnknown(t *testing.T) {
	tr := NewTracker()
	assert.False(t, tr.Resolve("nope"))
	assert.Empty(t, tr.Missing())
}

func TestTrackerRegisterErrors(t *testing.T) {
	tr := NewTracker()
	assert.ErrorIs(t, tr.Register("", "x"), ErrEmptyID)
	assert.Error(t, tr.Register("f", 1.5))
	assert.Equal(t, 0, tr.Len())
}

func TestTrackerObserveResolvesOnSuccessOnly(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.Register("ok", "a"))
	require.NoError(t, tr.Register("bad", "b"))
	require.NoError(t, tr.Register("untracked", "c"))

	tr.Observe(request.Request{TrackingID: "ok"}, &request.Response{Status: 204}, nil)
	tr.Observe(request.Request{TrackingID: "bad"}, &request.Response{Status: 500}, errors.New("status 500"))
	tr.Observe(request.Request{}, &request.Response{Status: 200}, nil)

	missing := tr.Missing()
	require.Len(t, missing, 2)
	assert.Equal(t, "bad", missing[0].ID)
	assert.Equal(t, "untracked", missing[1].ID)
}

func TestTrackerRegisterAfterResolveMovesToEnd(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.Register("a", 1))
	require.NoError(t, tr.Register("b", 2))
	require.True(t, tr.Resolve("a"))
	require.NoError(t, tr.Register("a", 3))

	assert.Equal(t, []Entry{{ID: "b", Record: ir.Int(2)}, {ID: "a", Record: ir.Int(3)}}, tr.Missing())
}
