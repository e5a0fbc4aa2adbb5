// Package pairgen produces (anchor, context) training pairs from ordered
// item sequences.
//
// Instead of walking a positional sliding window, the generator draws up to
// min(2*window, len-1) uniform random co-sequence candidates per anchor and
// keeps a candidate only when the anchor's left-side partition collides
// with the candidate's right-side partition. The collision test is what
// makes the surviving pairs co-partitioned: they are ready for local
// single-slot processing without any distributed shuffle join.
//
// Candidate positions are not deduplicated: the same position may be drawn
// more than once, and every draw counts against the per-anchor budget
// whether or not it collides.
package pairgen

import (
	"iter"
	"math/rand"

	"github.com/hupe1980/skipgrid/model"
)

// PartitionFunc maps an item id onto a partition.
type PartitionFunc func(id model.ItemID) int

// Pairs returns a lazy, finite, non-restartable stream of training pairs
// drawn from the given sequences.
//
// For each sequence the left (p1) and right (p2) partitions of every
// position are precomputed. For each anchor position i, up to
// min(2*window, len-1) candidate positions c != i are sampled uniformly;
// a pair (p1[i], seq[i], seq[c]) is emitted only when p1[i] == p2[c] and
// the two values differ. Sequences of length <= 1 produce nothing.
func Pairs(sequences iter.Seq[[]model.ItemID], window int, p1, p2 PartitionFunc, seed int64) iter.Seq[model.TrainingPair] {
	return func(yield func(model.TrainingPair) bool) {
		rng := rand.New(rand.NewSource(seed))
		left := make([]int, 0, 64)
		right := make([]int, 0, 64)

		for seq := range sequences {
			n := len(seq)
			if n <= 1 {
				continue
			}

			left = left[:0]
			right = right[:0]
			for _, id := range seq {
				left = append(left, p1(id))
				right = append(right, p2(id))
			}

			tries := 2 * window
			if n-1 < tries {
				tries = n - 1
			}

			for i := 0; i < n; i++ {
				for t := 0; t < tries; t++ {
					// Uniform over positions != i.
					c := rng.Intn(n - 1)
					if c >= i {
						c++
					}
					if left[i] != right[c] || seq[i] == seq[c] {
						continue
					}
					pair := model.TrainingPair{
						Slot:      left[i],
						AnchorID:  seq[i],
						ContextID: seq[c],
					}
					if !yield(pair) {
						return
					}
				}
			}
		}
	}
}
