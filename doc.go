// Package skipgrid trains dot-product item embeddings with skip-gram
// negative sampling, scheduled so that every gradient step is local to
// one partition.
//
// The trainer walks an (epoch, partition) grid. Per step it re-keys the
// record set with a stable hash on the left side and a rotating
// permutation table on the right side, generates training pairs that are
// co-located by construction, and runs the SGD kernel once per slot. The
// rotation guarantees every (left, right) bucket combination meets
// exactly once per epoch, so no shuffle join is ever needed.
//
// Checkpoints make the walk resumable: the trainer periodically persists
// the full record set to a blob store and on start resumes from the
// newest complete snapshot.
package skipgrid
