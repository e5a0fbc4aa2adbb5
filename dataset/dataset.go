package dataset

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrPartitionMismatch is returned when two collections that must be
// co-partitioned disagree on their partition counts.
var ErrPartitionMismatch = errors.New("dataset: partition counts differ")

// Engine executes partition computations. Parallelism bounds how many
// partitions run concurrently within one operation.
type Engine struct {
	parallelism int
}

// NewEngine creates an Engine. parallelism <= 0 selects GOMAXPROCS.
func NewEngine(parallelism int) *Engine {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	return &Engine{parallelism: parallelism}
}

// Parallelism returns the configured concurrency bound.
func (e *Engine) Parallelism() int { return e.parallelism }

// Dataset is a partitioned collection of T. Its contents are defined by a
// lineage closure and materialized on demand; Persist enables caching of
// materialized partitions until Release.
type Dataset[T any] struct {
	engine        *Engine
	numPartitions int
	compute       func(ctx context.Context) ([][]T, error)

	mu        sync.Mutex
	persisted bool
	cache     [][]T
}

func newDataset[T any](e *Engine, numPartitions int, compute func(ctx context.Context) ([][]T, error)) *Dataset[T] {
	return &Dataset[T]{engine: e, numPartitions: numPartitions, compute: compute}
}

// Slice distributes items round-robin across numPartitions partitions.
func Slice[T any](e *Engine, items []T, numPartitions int) *Dataset[T] {
	if numPartitions < 1 {
		numPartitions = 1
	}
	return newDataset(e, numPartitions, func(context.Context) ([][]T, error) {
		parts := make([][]T, numPartitions)
		for i, item := range items {
			p := i % numPartitions
			parts[p] = append(parts[p], item)
		}
		return parts, nil
	})
}

// FromPartitions wraps already-partitioned data.
func FromPartitions[T any](e *Engine, parts [][]T) *Dataset[T] {
	return newDataset(e, len(parts), func(context.Context) ([][]T, error) {
		return parts, nil
	})
}

// NumPartitions returns the partition count.
func (d *Dataset[T]) NumPartitions() int { return d.numPartitions }

// Persist marks the dataset for caching: the next materialization retains
// its partitions in memory until Release. Returns d for chaining.
func (d *Dataset[T]) Persist() *Dataset[T] {
	d.mu.Lock()
	d.persisted = true
	d.mu.Unlock()
	return d
}

// Release drops any cached partitions and disables caching. Lineage is
// retained: subsequent access recomputes.
func (d *Dataset[T]) Release() {
	d.mu.Lock()
	d.persisted = false
	d.cache = nil
	d.mu.Unlock()
}

// Invalidate drops cached partitions but keeps the dataset persisted,
// simulating the loss of cached data; the next access recomputes and
// re-caches from lineage.
func (d *Dataset[T]) Invalidate() {
	d.mu.Lock()
	d.cache = nil
	d.mu.Unlock()
}

// materialize computes (or returns cached) partition data.
func (d *Dataset[T]) materialize(ctx context.Context) ([][]T, error) {
	d.mu.Lock()
	if d.cache != nil {
		parts := d.cache
		d.mu.Unlock()
		return parts, nil
	}
	d.mu.Unlock()

	parts, err := d.compute(ctx)
	if err != nil {
		return nil, err
	}
	if len(parts) != d.numPartitions {
		return nil, fmt.Errorf("dataset: lineage produced %d partitions, want %d", len(parts), d.numPartitions)
	}

	d.mu.Lock()
	if d.persisted && d.cache == nil {
		d.cache = parts
	}
	d.mu.Unlock()
	return parts, nil
}

// Count eagerly materializes the dataset and returns its element count.
// This is the synchronization barrier between scheduler steps.
func (d *Dataset[T]) Count(ctx context.Context) (int64, error) {
	parts, err := d.materialize(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, part := range parts {
		n += int64(len(part))
	}
	return n, nil
}

// Collect materializes the dataset and returns all elements in partition
// order.
func (d *Dataset[T]) Collect(ctx context.Context) ([]T, error) {
	parts, err := d.materialize(ctx)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, part := range parts {
		out = append(out, part...)
	}
	return out, nil
}

// MapPartitions derives a dataset by applying f to each partition. f runs
// once per partition, concurrently up to the engine's parallelism.
func MapPartitions[T, U any](d *Dataset[T], f func(p int, in []T) ([]U, error)) *Dataset[U] {
	return newDataset(d.engine, d.numPartitions, func(ctx context.Context) ([][]U, error) {
		in, err := d.materialize(ctx)
		if err != nil {
			return nil, err
		}
		out := make([][]U, len(in))
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(d.engine.parallelism)
		for p := range in {
			g.Go(func() error {
				res, err := f(p, in[p])
				if err != nil {
					return err
				}
				out[p] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// PartitionBy re-keys the dataset: every element moves to the partition
// returned by part. Element order within a partition follows input
// partition order.
func PartitionBy[T any](d *Dataset[T], numPartitions int, part func(T) int) *Dataset[T] {
	return newDataset(d.engine, numPartitions, func(ctx context.Context) ([][]T, error) {
		in, err := d.materialize(ctx)
		if err != nil {
			return nil, err
		}
		out := make([][]T, numPartitions)
		for _, src := range in {
			for _, item := range src {
				p := part(item)
				if p < 0 || p >= numPartitions {
					return nil, fmt.Errorf("dataset: partition function returned %d, want [0,%d)", p, numPartitions)
				}
				out[p] = append(out[p], item)
			}
		}
		return out, nil
	})
}

// ZipPartitions joins two co-partitioned datasets slot by slot. Both
// datasets must have the same partition count; f receives the resident
// elements of one slot from each side and runs concurrently across slots
// up to the engine's parallelism.
func ZipPartitions[A, B, C any](a *Dataset[A], b *Dataset[B], f func(p int, as []A, bs []B) ([]C, error)) (*Dataset[C], error) {
	if a.numPartitions != b.numPartitions {
		return nil, fmt.Errorf("%w: %d vs %d", ErrPartitionMismatch, a.numPartitions, b.numPartitions)
	}
	return newDataset(a.engine, a.numPartitions, func(ctx context.Context) ([][]C, error) {
		as, err := a.materialize(ctx)
		if err != nil {
			return nil, err
		}
		bs, err := b.materialize(ctx)
		if err != nil {
			return nil, err
		}
		out := make([][]C, len(as))
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(a.engine.parallelism)
		for p := range as {
			g.Go(func() error {
				res, err := f(p, as[p], bs[p])
				if err != nil {
					return err
				}
				out[p] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	}), nil
}
