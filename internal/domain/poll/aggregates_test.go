package poll

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeAggregates(t *testing.T) {
	t.Run("empty map", func(t *testing.T) {
		agg := ComputeAggregates(map[string]VoteEntry{})
		assert.Equal(t, 0, agg.TotalVoters)
		assert.Equal(t, 0, agg.TotalVotes)
		assert.Empty(t, agg.OptionTotals)
	})

	t.Run("counts voters and per-option totals", func(t *testing.T) {
		votes := map[string]VoteEntry{
			"u1@x": {OptionIDs: []string{"opt-1"}},
			"u2@x": {OptionIDs: []string{"opt-1", "opt-2"}},
			"u3@x": {OptionIDs: []string{"opt-2"}},
		}

		agg := ComputeAggregates(votes)

		assert.Equal(t, 3, agg.TotalVoters)
		assert.Equal(t, 4, agg.TotalVotes)
		assert.Equal(t, map[string]int{"opt-1": 2, "opt-2": 2}, agg.OptionTotals)
	})

	t.Run("empty selections do not count as voters", func(t *testing.T) {
		votes := map[string]VoteEntry{
			"u1@x": {OptionIDs: []string{"opt-1"}},
			"u2@x": {OptionIDs: nil},
			"u3@x": {OptionIDs: []string{"  "}},
		}

		agg := ComputeAggregates(votes)

		assert.Equal(t, 1, agg.TotalVoters)
		assert.Equal(t, 1, agg.TotalVotes)
	})

	t.Run("duplicate ids within an entry count once", func(t *testing.T) {
		votes := map[string]VoteEntry{
			"u1@x": {OptionIDs: []string{"opt-1", "opt-1"}},
		}

		agg := ComputeAggregates(votes)

		assert.Equal(t, 1, agg.TotalVotes)
		assert.Equal(t, 1, agg.OptionTotals["opt-1"])
	})
}

func TestNormalizeIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, NormalizeIDs([]string{" a ", "b", "a", ""}))
	assert.Empty(t, NormalizeIDs(nil))
}

func TestSameIDSet(t *testing.T) {
	assert.True(t, SameIDSet([]string{"a", "b"}, []string{"b", " a "}))
	assert.True(t, SameIDSet(nil, []string{}))
	assert.False(t, SameIDSet([]string{"a"}, []string{"b"}))
	assert.False(t, SameIDSet([]string{"a", "b"}, []string{"a"}))
}
