// Package dataset provides the partitioned collection abstraction the
// trainer schedules work on: lazily (re)computable, explicitly persisted
// collections with pluggable partition functions and co-partitioned zips.
//
// Every Dataset carries its lineage as a closure. Cached partitions exist
// only while the dataset is persisted; anything lost or released is
// recomputed from lineage on the next access, which is the fault-recovery
// guarantee the trainer relies on instead of re-deriving data itself.
//
// The Engine included here executes partitions in parallel on a bounded
// errgroup within a single process. The trainer issues one collection
// operation per step and blocks on it, so datasets assume a single
// controlling goroutine; concurrent materializations are safe but may
// duplicate work.
package dataset
