package partition

import (
	"github.com/hupe1980/skipgrid/internal/hash"
	"github.com/hupe1980/skipgrid/model"
)

// Kind tags the closed set of partitioner strategies.
type Kind uint8

const (
	// KindStableHash hashes ids directly onto partitions, salted by epoch.
	KindStableHash Kind = iota
	// KindRotation routes ids through the broadcast table so the partition
	// holding a bucket cycles as the partition index advances.
	KindRotation
	// KindIdentity treats the key itself as the slot id.
	KindIdentity
)

// Strategy is a deterministic key -> partition function. The zero value is
// not valid; construct with StableHash, Rotation or Identity.
type Strategy struct {
	kind           Kind
	numPartitions  int
	epoch          int
	table          *Table
	partitionIndex int
}

// StableHash returns the per-epoch stable hash partitioner used for
// left-side records.
func StableHash(numPartitions, epoch int) Strategy {
	return Strategy{kind: KindStableHash, numPartitions: numPartitions, epoch: epoch}
}

// Rotation returns the rotating partitioner used for right-side records.
// The id selects a table row via the epoch-salted hash; partitionIndex
// selects the column.
func Rotation(table *Table, epoch, partitionIndex int) Strategy {
	return Strategy{
		kind:           KindRotation,
		numPartitions:  table.NumPartitions(),
		epoch:          epoch,
		table:          table,
		partitionIndex: partitionIndex,
	}
}

// Identity returns the pass-through partitioner for keys that already are
// slot ids, such as generated training pairs.
func Identity(numPartitions int) Strategy {
	return Strategy{kind: KindIdentity, numPartitions: numPartitions}
}

// Kind reports the strategy tag.
func (s Strategy) Kind() Kind { return s.kind }

// NumPartitions reports the partition count the strategy maps onto.
func (s Strategy) NumPartitions() int { return s.numPartitions }

// Partition maps a key onto [0, NumPartitions()). For StableHash and
// Rotation the key is an item id; for Identity it is the slot itself.
func (s Strategy) Partition(key int64) int {
	switch s.kind {
	case KindStableHash:
		return hash.Bucket(key, int64(s.epoch), s.numPartitions)
	case KindRotation:
		bucket := hash.Bucket(key, int64(s.epoch), s.table.NumBuckets())
		return s.table.Lookup(bucket, s.partitionIndex)
	default:
		return int(key)
	}
}

// PartitionID is a convenience wrapper for item-keyed strategies.
func (s Strategy) PartitionID(id model.ItemID) int {
	return s.Partition(int64(id))
}
