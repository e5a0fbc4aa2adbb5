package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestItemRecordClone(t *testing.T) {
	rec := ItemRecord{
		Side:    SideRight,
		ID:      42,
		Count:   7,
		Factors: []float32{0.1, 0.2, 0.3},
	}

	clone := rec.Clone()
	require.Equal(t, rec, clone)

	// Mutating the clone must not leak into the original.
	clone.Factors[0] = 99
	require.Equal(t, float32(0.1), rec.Factors[0])
}

func TestStepKeyOrdering(t *testing.T) {
	require.True(t, StepKey{Epoch: 0, Iteration: 2}.Less(StepKey{Epoch: 1, Iteration: 0}))
	require.True(t, StepKey{Epoch: 1, Iteration: 0}.Less(StepKey{Epoch: 1, Iteration: 1}))
	require.False(t, StepKey{Epoch: 1, Iteration: 1}.Less(StepKey{Epoch: 1, Iteration: 1}))
	require.False(t, StepKey{Epoch: 2, Iteration: 0}.Less(StepKey{Epoch: 1, Iteration: 9}))
}

func TestParseStepKey(t *testing.T) {
	key, ok := ParseStepKey("3_17")
	require.True(t, ok)
	require.Equal(t, StepKey{Epoch: 3, Iteration: 17}, key)

	roundTrip, ok := ParseStepKey(StepKey{Epoch: 0, Iteration: 0}.String())
	require.True(t, ok)
	require.Equal(t, StepKey{}, roundTrip)

	for _, name := range []string{"", "3", "3_", "_17", "a_b", "3_b", "-1_2", "3_-2", "1_2_3"} {
		_, ok := ParseStepKey(name)
		require.False(t, ok, "name %q should not parse", name)
	}
}
