// Package partition implements the deterministic partition assignment
// scheme driving skipgrid's training schedule.
//
// Two building blocks live here:
//
//   - Table: a precomputed array of random permutations of partition
//     indices, one row per hash bucket. It is generated once per run from
//     a fixed seed, immutable afterwards, and shared read-only by all
//     workers (a broadcast value).
//
//   - Strategy: a small closed set of tagged partitioners. StableHash
//     assigns left-side items per epoch, Rotation cycles right-side items
//     through the table as the partition index advances, and Identity
//     passes through keys that already are slot ids. Strategies are pure
//     functions over explicit state, not polymorphic partitioner
//     subclasses.
//
// The rotation guarantees that over one full sweep of partition indices
// every right-side partition meets every left-side partition exactly once,
// which achieves an all-pairs sweep without materializing an all-pairs
// join.
package partition
