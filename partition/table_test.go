package partition

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTableRowsArePermutations(t *testing.T) {
	const numPartitions = 8
	table, err := NewTable(numPartitions, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Equal(t, TotalSize/numPartitions, table.NumBuckets())
	require.Equal(t, numPartitions, table.NumPartitions())

	// Spot-check a spread of rows: every partition appears exactly once.
	for _, bucket := range []int{0, 1, 17, 9999, table.NumBuckets() - 1} {
		seen := make(map[int]bool, numPartitions)
		for pi := 0; pi < numPartitions; pi++ {
			p := table.Lookup(bucket, pi)
			require.GreaterOrEqual(t, p, 0)
			require.Less(t, p, numPartitions)
			require.False(t, seen[p], "partition %d repeated in bucket %d", p, bucket)
			seen[p] = true
		}
		require.Len(t, seen, numPartitions)
	}
}

func TestNewTableDeterministicForSeed(t *testing.T) {
	a, err := NewTable(4, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	b, err := NewTable(4, rand.New(rand.NewSource(99)))
	require.NoError(t, err)

	for _, bucket := range []int{0, 123, 4567} {
		for pi := 0; pi < 4; pi++ {
			require.Equal(t, a.Lookup(bucket, pi), b.Lookup(bucket, pi))
		}
	}
}

func TestNewTableInvalidPartitions(t *testing.T) {
	_, err := NewTable(0, rand.New(rand.NewSource(1)))
	require.Error(t, err)
	_, err = NewTable(-3, rand.New(rand.NewSource(1)))
	require.Error(t, err)
	_, err = NewTable(TotalSize+1, rand.New(rand.NewSource(1)))
	require.Error(t, err)
}
