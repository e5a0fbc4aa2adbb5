package skipgrid

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/skipgrid/model"
)

func TestInitialRecords(t *testing.T) {
	opts := DefaultOptions()
	opts.VectorSize = 4

	sequences := [][]model.ItemID{
		{1, 2, 3},
		{2, 3, 2},
	}
	records := initialRecords(sequences, opts)

	// One left and one right record per distinct id.
	require.Len(t, records, 6)

	counts := map[model.ItemID]int64{1: 1, 2: 3, 3: 2}
	seen := make(map[model.Side]map[model.ItemID]bool)
	for _, rec := range records {
		require.Equal(t, counts[rec.ID], rec.Count)
		require.Len(t, rec.Factors, 4)
		if seen[rec.Side] == nil {
			seen[rec.Side] = make(map[model.ItemID]bool)
		}
		require.False(t, seen[rec.Side][rec.ID])
		seen[rec.Side][rec.ID] = true
	}
	require.Len(t, seen[model.SideLeft], 3)
	require.Len(t, seen[model.SideRight], 3)
}

func TestInitialRecordsDeterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.VectorSize = 8

	sequences := [][]model.ItemID{{10, 20, 30, 20}}
	a := initialRecords(sequences, opts)
	b := initialRecords(sequences, opts)
	require.Equal(t, a, b)

	opts.Seed = 2
	c := initialRecords(sequences, opts)
	require.NotEqual(t, a, c)
}

func TestInitialRecordsBiasSlot(t *testing.T) {
	opts := DefaultOptions()
	opts.VectorSize = 4
	opts.UseBias = true

	records := initialRecords([][]model.ItemID{{1, 2}}, opts)
	for _, rec := range records {
		require.Len(t, rec.Factors, 5)
		require.Zero(t, rec.Factors[4])
	}
}
