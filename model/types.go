package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ItemID is the stable 64-bit identifier of an embedding entity.
type ItemID int64

// Side discriminates the two embedding roles sharing one factorization,
// e.g. source vs. target vocabulary.
type Side uint8

const (
	// SideLeft marks anchor-role records.
	SideLeft Side = iota
	// SideRight marks context-role records.
	SideRight
)

// String returns a string representation of the Side.
func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// ItemRecord is one embedding entity: its role, identifier, observed
// frequency and learned factor vector. When bias is enabled the vector
// carries one extra trailing slot.
//
// Records are immutable by convention: each scheduler step replaces a
// record with a freshly optimized copy, never mutates one in place.
type ItemRecord struct {
	Side    Side
	ID      ItemID
	Count   int64
	Factors []float32
}

// Clone returns a deep copy of the record.
func (r ItemRecord) Clone() ItemRecord {
	factors := make([]float32, len(r.Factors))
	copy(factors, r.Factors)
	return ItemRecord{
		Side:    r.Side,
		ID:      r.ID,
		Count:   r.Count,
		Factors: factors,
	}
}

// TrainingPair is one directed training instance targeting a single slot.
// Pairs are ephemeral: produced per scheduler step and consumed immediately
// by the local optimizer.
type TrainingPair struct {
	// Slot is the physical partition the pair is co-located with,
	// in [0, numPartitions).
	Slot      int
	AnchorID  ItemID
	ContextID ItemID
}

// StepKey identifies one scheduler step and, by extension, one checkpoint.
type StepKey struct {
	Epoch     int
	Iteration int
}

// Less orders step keys by (epoch, iteration).
func (k StepKey) Less(other StepKey) bool {
	if k.Epoch != other.Epoch {
		return k.Epoch < other.Epoch
	}
	return k.Iteration < other.Iteration
}

// String formats the key the way checkpoint directories are named.
func (k StepKey) String() string {
	return strconv.Itoa(k.Epoch) + "_" + strconv.Itoa(k.Iteration)
}

// ParseStepKey parses a checkpoint directory name of the form
// "{epoch}_{iteration}". Malformed names report ok=false; callers filter
// them explicitly rather than treating them as errors.
func ParseStepKey(name string) (key StepKey, ok bool) {
	epochStr, iterStr, found := strings.Cut(name, "_")
	if !found {
		return StepKey{}, false
	}
	epoch, err := strconv.Atoi(epochStr)
	if err != nil || epoch < 0 {
		return StepKey{}, false
	}
	iter, err := strconv.Atoi(iterStr)
	if err != nil || iter < 0 {
		return StepKey{}, false
	}
	return StepKey{Epoch: epoch, Iteration: iter}, true
}
