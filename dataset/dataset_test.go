package dataset

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSliceAndCount(t *testing.T) {
	e := NewEngine(2)
	d := Slice(e, []int{1, 2, 3, 4, 5, 6, 7}, 3)
	require.Equal(t, 3, d.NumPartitions())

	n, err := d.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(7), n)

	all, err := d.Collect(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6, 7}, all)
}

func TestPartitionByGroupsKeys(t *testing.T) {
	e := NewEngine(4)
	d := Slice(e, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, 4)

	rekeyed := PartitionBy(d, 2, func(v int) int { return v % 2 })
	parts, err := rekeyed.materialize(context.Background())
	require.NoError(t, err)
	for _, v := range parts[0] {
		require.Equal(t, 0, v%2)
	}
	for _, v := range parts[1] {
		require.Equal(t, 1, v%2)
	}
	require.Len(t, parts[0], 5)
	require.Len(t, parts[1], 5)
}

func TestPartitionByRejectsOutOfRange(t *testing.T) {
	e := NewEngine(1)
	d := Slice(e, []int{1}, 1)
	bad := PartitionBy(d, 2, func(int) int { return 5 })
	_, err := bad.Count(context.Background())
	require.Error(t, err)
}

func TestMapPartitionsPropagatesError(t *testing.T) {
	e := NewEngine(2)
	d := Slice(e, []int{1, 2, 3, 4}, 2)
	boom := errors.New("slot failure")

	m := MapPartitions(d, func(p int, in []int) ([]int, error) {
		if p == 1 {
			return nil, boom
		}
		return in, nil
	})
	_, err := m.Count(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestZipPartitionsRequiresCoPartitioning(t *testing.T) {
	e := NewEngine(1)
	a := Slice(e, []int{1, 2}, 2)
	b := Slice(e, []string{"x"}, 1)

	_, err := ZipPartitions(a, b, func(p int, as []int, bs []string) ([]int, error) { return as, nil })
	require.ErrorIs(t, err, ErrPartitionMismatch)
}

func TestZipPartitionsJoinsSlots(t *testing.T) {
	e := NewEngine(4)
	a := FromPartitions(e, [][]int{{1, 2}, {3}})
	b := FromPartitions(e, [][]int{{10}, {20, 30}})

	z, err := ZipPartitions(a, b, func(p int, as, bs []int) ([]int, error) {
		sum := 0
		for _, v := range as {
			sum += v
		}
		for _, v := range bs {
			sum += v
		}
		return []int{sum}, nil
	})
	require.NoError(t, err)

	out, err := z.Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{13, 53}, out)
}

func TestPersistCachesAndReleaseRecomputes(t *testing.T) {
	e := NewEngine(2)
	src := Slice(e, []int{1, 2, 3, 4}, 2)

	var computations atomic.Int64
	d := MapPartitions(src, func(p int, in []int) ([]int, error) {
		computations.Add(1)
		return in, nil
	}).Persist()

	ctx := context.Background()
	_, err := d.Count(ctx)
	require.NoError(t, err)
	_, err = d.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), computations.Load(), "persisted dataset must not recompute")

	// Losing the cache triggers recomputation from lineage.
	d.Invalidate()
	_, err = d.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(4), computations.Load())

	// Released datasets recompute on every access.
	d.Release()
	_, err = d.Count(ctx)
	require.NoError(t, err)
	_, err = d.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(8), computations.Load())
}

func TestEngineParallelismBound(t *testing.T) {
	e := NewEngine(2)
	src := Slice(e, make([]int, 64), 16)

	var inFlight, peak atomic.Int64
	d := MapPartitions(src, func(p int, in []int) ([]int, error) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		inFlight.Add(-1)
		return in, nil
	})
	_, err := d.Count(context.Background())
	require.NoError(t, err)
	require.LessOrEqual(t, peak.Load(), int64(2))
}
