package partition

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStableHashInRangeAndSalted(t *testing.T) {
	s0 := StableHash(16, 0)
	s1 := StableHash(16, 1)

	moved := 0
	for id := int64(0); id < 2000; id++ {
		p := s0.Partition(id)
		require.GreaterOrEqual(t, p, 0)
		require.Less(t, p, 16)
		require.Equal(t, p, StableHash(16, 0).Partition(id))
		if p != s1.Partition(id) {
			moved++
		}
	}
	// A new epoch must reassign the bulk of the ids.
	require.Greater(t, moved, 1000)
}

func TestRotationSweepHitsEveryPartitionOnce(t *testing.T) {
	const numPartitions = 8
	table, err := NewTable(numPartitions, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	for _, id := range []int64{0, 1, 42, 987654321, -5} {
		seen := make(map[int]bool, numPartitions)
		for pi := 0; pi < numPartitions; pi++ {
			p := Rotation(table, 3, pi).Partition(id)
			require.False(t, seen[p], "id %d met partition %d twice during sweep", id, p)
			seen[p] = true
		}
		require.Len(t, seen, numPartitions)
	}
}

func TestRotationChangesWithEpoch(t *testing.T) {
	table, err := NewTable(8, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	moved := 0
	for id := int64(0); id < 1000; id++ {
		if Rotation(table, 0, 0).Partition(id) != Rotation(table, 1, 0).Partition(id) {
			moved++
		}
	}
	require.Greater(t, moved, 500)
}

func TestIdentityPassThrough(t *testing.T) {
	s := Identity(4)
	require.Equal(t, KindIdentity, s.Kind())
	for slot := int64(0); slot < 4; slot++ {
		require.Equal(t, int(slot), s.Partition(slot))
	}
}
