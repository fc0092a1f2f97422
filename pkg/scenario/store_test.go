// bouchon/pkg/scenario/store_test.go

package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bouchon/pkg/flow"
	"bouchon/pkg/logging"
)

func TestAddScenarioDuplicateRejected(t *testing.T) {
	st := NewStore()
	require.NoError(t, st.Add("A"))

	err := st.Add("A")
	assert.True(t, logging.IsDuplicateName(err))
}

func TestSetCurrent(t *testing.T) {
	st := NewStore()
	require.NoError(t, st.Add("A"))

	require.NoError(t, st.SetCurrent("A"))
	assert.Equal(t, "A", st.Current())

	// Empty string deactivates and is always valid.
	require.NoError(t, st.SetCurrent(""))
	assert.Equal(t, "", st.Current())

	err := st.SetCurrent("missing")
	assert.True(t, logging.IsNotFound(err))
}

func TestRemoveScenarioMissingRejected(t *testing.T) {
	st := NewStore()
	_, err := st.Remove("missing")
	assert.True(t, logging.IsNotFound(err))
}

func TestRemoveCurrentPicksPredecessor(t *testing.T) {
	st := NewStore()
	require.NoError(t, st.Add("A"))
	require.NoError(t, st.Add("B"))
	require.NoError(t, st.Add("C"))
	require.NoError(t, st.SetCurrent("B"))

	_, err := st.Remove("B")
	require.NoError(t, err)
	assert.Equal(t, "A", st.Current())
	assert.Equal(t, []string{"A", "C"}, st.Names())
}

func TestRemoveCurrentFirstPicksSuccessor(t *testing.T) {
	st := NewStore()
	require.NoError(t, st.Add("A"))
	require.NoError(t, st.Add("B"))
	require.NoError(t, st.SetCurrent("A"))

	_, err := st.Remove("A")
	require.NoError(t, err)
	assert.Equal(t, "B", st.Current())
}

func TestRemoveOnlyScenarioClearsCurrent(t *testing.T) {
	st := NewStore()
	require.NoError(t, st.Add("X"))
	require.NoError(t, st.SetCurrent("X"))

	_, err := st.Remove("X")
	require.NoError(t, err)
	assert.Equal(t, "", st.Current())
	assert.Empty(t, st.Names())
}

func TestRemoveWithoutCurrentLeavesCurrentAlone(t *testing.T) {
	st := NewStore()
	require.NoError(t, st.Add("X"))
	require.Equal(t, "", st.Current())

	_, err := st.Remove("X")
	require.NoError(t, err)
	assert.Equal(t, "", st.Current())
}

func TestRemoveNonCurrentKeepsCurrent(t *testing.T) {
	st := NewStore()
	require.NoError(t, st.Add("A"))
	require.NoError(t, st.Add("B"))
	require.NoError(t, st.SetCurrent("B"))

	_, err := st.Remove("A")
	require.NoError(t, err)
	assert.Equal(t, "B", st.Current())
}

func TestRemoveReturnsCapturedFlows(t *testing.T) {
	st := NewStore()
	require.NoError(t, st.Add("A"))
	s, err := st.Get("A")
	require.NoError(t, err)

	f1, f2 := flow.New(), flow.New()
	s.AddFlow(f1)
	s.AddFlow(f2)

	evicted, err := st.Remove("A")
	require.NoError(t, err)
	assert.Len(t, evicted, 2)
}

func TestCopyScenarioMovesContents(t *testing.T) {
	st := NewStore()
	require.NoError(t, st.Add("src"))
	src, err := st.Get("src")
	require.NoError(t, err)

	f := flow.New()
	src.AddFlow(f)
	rs, err := src.RuleSetFor(f.ID)
	require.NoError(t, err)
	rs.AddRule("Headers", Fields{"x": 1})

	require.NoError(t, st.Copy("src", "dst"))

	// The source name stops existing; this is a rename, not a duplicate.
	_, err = st.Get("src")
	assert.True(t, logging.IsNotFound(err))

	dst, err := st.Get("dst")
	require.NoError(t, err)
	assert.True(t, dst.Contains(f.ID))
	got, err := dst.RuleSetFor(f.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len("Headers"))

	assert.Equal(t, "dst", st.Current())
}

func TestCopyScenarioDuplicateDestRejected(t *testing.T) {
	st := NewStore()
	require.NoError(t, st.Add("src"))
	require.NoError(t, st.Add("dst"))

	err := st.Copy("src", "dst")
	assert.True(t, logging.IsDuplicateName(err))
}

func TestCopyScenarioMissingSourceRejected(t *testing.T) {
	st := NewStore()
	err := st.Copy("missing", "dst")
	assert.True(t, logging.IsNotFound(err))
}

func TestModeFlagsAreIndependent(t *testing.T) {
	st := NewStore()
	assert.True(t, st.SwitchLearning())
	assert.True(t, st.SwitchMock())
	assert.True(t, st.Learning())
	assert.True(t, st.Mock())

	assert.False(t, st.SwitchMock())
	assert.True(t, st.Learning())
}

func TestScenarioFlowAndRuleInvariant(t *testing.T) {
	s := NewScenario("A")
	f := flow.New()

	// Rules require membership.
	_, err := s.RuleSetFor(f.ID)
	assert.True(t, logging.IsNotFound(err))

	s.AddFlow(f)
	rs, err := s.RuleSetFor(f.ID)
	require.NoError(t, err)
	rs.AddRule("Match", Fields{"x": 1})

	// Removing the flow removes its rule set with it.
	s.RemoveFlow(f.ID)
	assert.False(t, s.Contains(f.ID))
	assert.Empty(t, s.Rules())
}

func TestScenarioMatchRuleLifecycle(t *testing.T) {
	st := NewStore()
	require.NoError(t, st.Add("A"))
	s, err := st.Get("A")
	require.NoError(t, err)

	f1 := flow.New()
	s.AddFlow(f1)
	rs, err := s.RuleSetFor(f1.ID)
	require.NoError(t, err)

	rs.AddRule("Match", Fields{"x": 1})
	assert.Equal(t, Fields{"x": 1}, rs.Rules("Match")[0])

	require.NoError(t, rs.DeleteRule("Match", 0))
	assert.NotContains(t, rs.ToMap(), "Match")
}
