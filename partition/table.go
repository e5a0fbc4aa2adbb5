package partition

import (
	"fmt"
	"math/rand"
)

// TotalSize fixes the bucket granularity of the partition table. It is
// large relative to any realistic partition count so that bucket-level
// rotation approximates a uniform shuffle of ids.
const TotalSize = 10_000_000

// Table holds one random permutation of [0, numPartitions) per bucket.
// Rows share one flat backing array of TotalSize entries total. A Table
// is immutable after construction and safe for concurrent reads.
type Table struct {
	numPartitions int
	numBuckets    int
	perm          []int32 // row-major, numBuckets * numPartitions
}

// NewTable allocates TotalSize/numPartitions rows, each initialized to the
// identity permutation and independently Fisher-Yates shuffled with rng.
// The caller supplies a seeded generator so the table is reproducible for
// a fixed run seed.
func NewTable(numPartitions int, rng *rand.Rand) (*Table, error) {
	if numPartitions <= 0 {
		return nil, fmt.Errorf("partition: numPartitions must be positive, got %d", numPartitions)
	}
	numBuckets := TotalSize / numPartitions
	if numBuckets == 0 {
		return nil, fmt.Errorf("partition: numPartitions %d exceeds table size %d", numPartitions, TotalSize)
	}

	perm := make([]int32, numBuckets*numPartitions)
	for b := 0; b < numBuckets; b++ {
		row := perm[b*numPartitions : (b+1)*numPartitions]
		for i := range row {
			row[i] = int32(i)
		}
		for i := numPartitions - 1; i > 0; i-- {
			j := rng.Intn(i + 1)
			row[i], row[j] = row[j], row[i]
		}
	}

	return &Table{numPartitions: numPartitions, numBuckets: numBuckets, perm: perm}, nil
}

// NumPartitions returns the permutation length of each row.
func (t *Table) NumPartitions() int { return t.numPartitions }

// NumBuckets returns the number of rows.
func (t *Table) NumBuckets() int { return t.numBuckets }

// Lookup returns the partition the given bucket rotates to at the given
// partition index.
func (t *Table) Lookup(bucket, partitionIndex int) int {
	return int(t.perm[bucket*t.numPartitions+partitionIndex])
}
