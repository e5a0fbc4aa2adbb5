package skipgrid

import (
	"math/rand"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/skipgrid/internal/hash"
	"github.com/hupe1980/skipgrid/model"
)

// initialRecords builds the generation-zero record set from raw sequences:
// one left and one right record per distinct item id, counts from observed
// occurrences, factors drawn per (side, id) so initialization does not
// depend on input order.
func initialRecords(sequences [][]model.ItemID, opts Options) []model.ItemRecord {
	counts := make(map[model.ItemID]int64)
	var ids roaring64.Bitmap
	for _, seq := range sequences {
		for _, id := range seq {
			counts[id]++
			ids.Add(uint64(id))
		}
	}

	records := make([]model.ItemRecord, 0, 2*ids.GetCardinality())
	it := ids.Iterator()
	for it.HasNext() {
		id := model.ItemID(it.Next())
		for _, side := range []model.Side{model.SideLeft, model.SideRight} {
			records = append(records, model.ItemRecord{
				Side:    side,
				ID:      id,
				Count:   counts[id],
				Factors: initialFactors(side, id, opts),
			})
		}
	}
	return records
}

// initialFactors draws the starting vector for one record. The rng is
// seeded from (seed, side, id) so every record gets the same start on
// every run regardless of iteration order.
func initialFactors(side model.Side, id model.ItemID, opts Options) []float32 {
	seed := hash.Mix64(hash.Mix64(uint64(id)) ^ uint64(opts.Seed)<<1 ^ uint64(side))
	rng := rand.New(rand.NewSource(int64(seed)))

	n := opts.VectorSize
	if opts.UseBias {
		n++
	}
	factors := make([]float32, n)
	for j := 0; j < opts.VectorSize; j++ {
		factors[j] = (rng.Float32() - 0.5) / float32(opts.VectorSize)
	}
	// Bias slot starts at zero.
	return factors
}
