// bouchon/pkg/scenario/ruleset_test.go

package scenario

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bouchon/pkg/logging"
)

func TestAddRuleAppends(t *testing.T) {
	rs := NewRuleSet()
	rs.AddRule("Headers", Fields{"x": 1})
	rs.AddRule("Headers", Fields{"x": 2})

	rules := rs.Rules("Headers")
	require.Len(t, rules, 2)
	assert.Equal(t, Fields{"x": 1}, rules[0])
	assert.Equal(t, Fields{"x": 2}, rules[1])
}

func TestSetRuleReplacesInPlace(t *testing.T) {
	rs := NewRuleSet()
	rs.AddRule("Headers", Fields{"x": 1})
	rs.AddRule("Headers", Fields{"x": 2})

	err := rs.SetRule("Headers", Fields{"x": 99}, 0)
	require.NoError(t, err)

	rules := rs.Rules("Headers")
	assert.Equal(t, Fields{"x": 99}, rules[0])
	assert.Equal(t, Fields{"x": 2}, rules[1])
}

func TestSetRuleAtLengthAppends(t *testing.T) {
	rs := NewRuleSet()
	rs.AddRule("Headers", Fields{"x": 1})

	err := rs.SetRule("Headers", Fields{"x": 2}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Len("Headers"))
}

func TestSetRuleBeyondLengthRejected(t *testing.T) {
	rs := NewRuleSet()
	rs.AddRule("Headers", Fields{"x": 1})

	err := rs.SetRule("Headers", Fields{"x": 2}, 2)
	assert.True(t, logging.IsIndexRange(err))

	err = rs.SetRule("Headers", Fields{"x": 2}, -1)
	assert.True(t, logging.IsIndexRange(err))
}

func TestSetRuleOnNewLabel(t *testing.T) {
	rs := NewRuleSet()
	err := rs.SetRule("Content", Fields{"body": "hi"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Len("Content"))
}

func TestSwitchRulesSwaps(t *testing.T) {
	rs := NewRuleSet()
	rs.AddRule("Headers", Fields{"x": 1})
	rs.AddRule("Headers", Fields{"x": 2})
	rs.AddRule("Headers", Fields{"x": 3})

	err := rs.SwitchRules("Headers", 0, 2)
	require.NoError(t, err)

	rules := rs.Rules("Headers")
	assert.Equal(t, Fields{"x": 3}, rules[0])
	assert.Equal(t, Fields{"x": 1}, rules[2])
}

func TestSwitchRulesIsItsOwnInverse(t *testing.T) {
	rs := NewRuleSet()
	rs.AddRule("Headers", Fields{"x": 1})
	rs.AddRule("Headers", Fields{"x": 2})
	rs.AddRule("Headers", Fields{"x": 3})
	before := rs.Rules("Headers")

	require.NoError(t, rs.SwitchRules("Headers", 1, 2))
	require.NoError(t, rs.SwitchRules("Headers", 1, 2))

	assert.Equal(t, before, rs.Rules("Headers"))
}

func TestSwitchRulesBoundaryRejected(t *testing.T) {
	rs := NewRuleSet()
	rs.AddRule("Headers", Fields{"x": 1})
	rs.AddRule("Headers", Fields{"x": 2})

	// Moving the first rule further up or the last rule further down must
	// fail rather than clamp or wrap.
	err := rs.SwitchRules("Headers", 0, -1)
	assert.True(t, logging.IsIndexRange(err))

	err = rs.SwitchRules("Headers", 1, 2)
	assert.True(t, logging.IsIndexRange(err))

	assert.Equal(t, Fields{"x": 1}, rs.Rules("Headers")[0])
}

func TestDeleteRuleCompactsIndices(t *testing.T) {
	rs := NewRuleSet()
	rs.AddRule("Headers", Fields{"x": 1})
	rs.AddRule("Headers", Fields{"x": 2})
	rs.AddRule("Headers", Fields{"x": 3})

	require.NoError(t, rs.DeleteRule("Headers", 1))

	rules := rs.Rules("Headers")
	require.Len(t, rules, 2)
	assert.Equal(t, Fields{"x": 1}, rules[0])
	assert.Equal(t, Fields{"x": 3}, rules[1])
}

func TestDeleteLastRuleRemovesLabel(t *testing.T) {
	rs := NewRuleSet()
	rs.AddRule("Match", Fields{"x": 1})
	require.Equal(t, 1, rs.Len("Match"))

	require.NoError(t, rs.DeleteRule("Match", 0))

	assert.Zero(t, rs.Len("Match"))
	assert.NotContains(t, rs.ToMap(), "Match")
	assert.True(t, rs.Empty())
}

func TestDeleteRuleMissingRejected(t *testing.T) {
	rs := NewRuleSet()
	rs.AddRule("Headers", Fields{"x": 1})

	err := rs.DeleteRule("Headers", 1)
	assert.True(t, logging.IsNotFound(err))

	err = rs.DeleteRule("Absent", 0)
	assert.True(t, logging.IsNotFound(err))
}

func TestIndicesStayDenseUnderMutation(t *testing.T) {
	rs := NewRuleSet()
	for i := 0; i < 6; i++ {
		rs.AddRule("Headers", Fields{"i": i})
	}
	require.NoError(t, rs.DeleteRule("Headers", 0))
	require.NoError(t, rs.DeleteRule("Headers", 3))
	require.NoError(t, rs.DeleteRule("Headers", 1))
	rs.AddRule("Headers", Fields{"i": 99})

	// Whatever the sequence, the remaining list is addressable 0..n-1.
	rules := rs.Rules("Headers")
	for i := range rules {
		require.NoError(t, rs.SetRule("Headers", rules[i], i))
	}
	assert.Equal(t, 4, rs.Len("Headers"))
}

func TestRuleSetConcurrentMutation(t *testing.T) {
	rs := NewRuleSet()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				rs.AddRule("Headers", Fields{"i": i})
				rs.Len("Headers")
				rs.ToMap()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, rs.Len("Headers"))
}

func TestRuleSetMapRoundTrip(t *testing.T) {
	rs := NewRuleSet()
	rs.AddRule("Headers", Fields{"x": 1})
	rs.AddRule("Content", Fields{"body": "hi"})

	rebuilt := RuleSetFromMap(rs.ToMap())
	assert.Equal(t, rs.ToMap(), rebuilt.ToMap())
}

func TestRuleSetFromMapDropsEmptyLabels(t *testing.T) {
	rebuilt := RuleSetFromMap(map[string][]Fields{
		"Headers": {},
		"URI":     {{"path": "/x"}},
	})
	assert.NotContains(t, rebuilt.ToMap(), "Headers")
	assert.Equal(t, 1, rebuilt.Len("URI"))
}
