package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateIndex_RoundTrip(t *testing.T) {
	for _, comp := range [][]int{{1}, {3}, {2, 1}, {1, 0, 2}} {
		st, err := EnumerateStates(comp)
		require.NoError(t, err)
		ix, err := NewStateIndex(st)
		require.NoError(t, err)

		assert.Equal(t, st.Len(), ix.Len())
		for r := 0; r < st.Len(); r++ {
			got, ok := ix.Lookup(st.Row(r))
			require.True(t, ok, "composition %v row %d", comp, r)
			assert.Equal(t, r, got)
		}
	}
}

func TestStateIndex_UnknownStateMisses(t *testing.T) {
	// GIVEN a single-person household
	st, err := EnumerateStates([]int{1})
	require.NoError(t, err)
	ix, err := NewStateIndex(st)
	require.NoError(t, err)

	// WHEN looking up two people in one compartment
	_, ok := ix.Lookup([]int{2, 0, 0, 0, 0, 0})

	// THEN no row matches
	assert.False(t, ok)
}

func TestStateIndex_WeightsAreProductOfLaterRadices(t *testing.T) {
	st, err := EnumerateStates([]int{2, 1})
	require.NoError(t, err)
	ix, err := NewStateIndex(st)
	require.NoError(t, err)

	// six columns of radix 2 follow the last column of class 0
	assert.Equal(t, uint64(64), ix.weights[5])
	assert.Equal(t, uint64(1), ix.weights[11])
	assert.Equal(t, uint64(3*64), ix.weights[4])
}

func TestStateIndex_Overflow(t *testing.T) {
	// GIVEN a table whose code space needs more than 64 bits
	st := &StateTable{
		composition: []int{1 << 20, 1 << 20},
		present:     []int{0, 1},
		width:       2 * NumCompartments,
	}

	// WHEN indexed
	_, err := NewStateIndex(st)

	// THEN construction fails
	assert.ErrorIs(t, err, ErrCodeOverflow)
}
