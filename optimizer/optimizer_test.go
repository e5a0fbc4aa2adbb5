package optimizer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/skipgrid/model"
)

func testOptions() Options {
	return Options{
		VectorSize:      4,
		NegativeSamples: 2,
		PopularityPower: 0.75,
		LearningRate:    0.05,
		Regularization:  1e-4,
		Seed:            1,
	}
}

func slotRecords(t *testing.T, opts Options, ids ...model.ItemID) []model.ItemRecord {
	t.Helper()
	factorLen := opts.VectorSize
	if opts.UseBias {
		factorLen++
	}
	rng := rand.New(rand.NewSource(7))
	var recs []model.ItemRecord
	for _, side := range []model.Side{model.SideLeft, model.SideRight} {
		for _, id := range ids {
			factors := make([]float32, factorLen)
			for j := range factors {
				factors[j] = (rng.Float32() - 0.5) / float32(opts.VectorSize)
			}
			recs = append(recs, model.ItemRecord{Side: side, ID: id, Count: int64(id) + 1, Factors: factors})
		}
	}
	return recs
}

func TestOptimizeUpdatesVectors(t *testing.T) {
	opts := testOptions()
	recs := slotRecords(t, opts, 1, 2, 3)
	pairs := []model.TrainingPair{
		{Slot: 0, AnchorID: 1, ContextID: 2},
		{Slot: 0, AnchorID: 2, ContextID: 3},
		{Slot: 0, AnchorID: 3, ContextID: 1},
	}

	out, loss, err := Optimize(opts, recs, pairs)
	require.NoError(t, err)
	require.Len(t, out, len(recs))
	require.Equal(t, int64(3), loss.Pairs)
	require.Greater(t, loss.Positive, 0.0)
	require.False(t, math.IsNaN(loss.Mean()))

	changed := false
	for i := range recs {
		require.Equal(t, recs[i].ID, out[i].ID)
		require.Equal(t, recs[i].Side, out[i].Side)
		for j := range recs[i].Factors {
			if recs[i].Factors[j] != out[i].Factors[j] {
				changed = true
			}
		}
	}
	require.True(t, changed, "optimization must move at least one factor")
}

func TestOptimizeDoesNotMutateInput(t *testing.T) {
	opts := testOptions()
	recs := slotRecords(t, opts, 1, 2)
	before := make([]model.ItemRecord, len(recs))
	for i, r := range recs {
		before[i] = r.Clone()
	}

	_, _, err := Optimize(opts, recs, []model.TrainingPair{{AnchorID: 1, ContextID: 2}})
	require.NoError(t, err)
	require.Equal(t, before, recs)
}

func TestOptimizeDeterministicForSeed(t *testing.T) {
	opts := testOptions()
	pairs := []model.TrainingPair{{AnchorID: 1, ContextID: 2}, {AnchorID: 2, ContextID: 1}}

	a, lossA, err := Optimize(opts, slotRecords(t, opts, 1, 2, 3), pairs)
	require.NoError(t, err)
	b, lossB, err := Optimize(opts, slotRecords(t, opts, 1, 2, 3), pairs)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, lossA, lossB)
}

func TestOptimizeSkipsMissingEndpoints(t *testing.T) {
	opts := testOptions()
	recs := slotRecords(t, opts, 1, 2)
	pairs := []model.TrainingPair{
		{AnchorID: 1, ContextID: 2},
		{AnchorID: 99, ContextID: 2}, // anchor not resident
		{AnchorID: 1, ContextID: 98}, // context not resident
	}

	_, loss, err := Optimize(opts, recs, pairs)
	require.NoError(t, err)
	require.Equal(t, int64(1), loss.Pairs)
	require.Equal(t, int64(2), loss.Skipped)
}

func TestOptimizeWithBias(t *testing.T) {
	opts := testOptions()
	opts.UseBias = true
	recs := slotRecords(t, opts, 1, 2)

	out, loss, err := Optimize(opts, recs, []model.TrainingPair{{AnchorID: 1, ContextID: 2}})
	require.NoError(t, err)
	require.Equal(t, int64(1), loss.Pairs)
	for _, rec := range out {
		require.Len(t, rec.Factors, opts.VectorSize+1)
	}
}

func TestOptimizeRejectsBadFactorLength(t *testing.T) {
	opts := testOptions()
	recs := []model.ItemRecord{{Side: model.SideLeft, ID: 1, Factors: make([]float32, 2)}}
	_, _, err := Optimize(opts, recs, nil)
	require.Error(t, err)
}

func TestOptimizeImplicitFeedbackWeighting(t *testing.T) {
	opts := testOptions()
	opts.NegativeSamples = 0

	base, _, err := Optimize(opts, slotRecords(t, opts, 1, 2), []model.TrainingPair{{AnchorID: 1, ContextID: 2}})
	require.NoError(t, err)

	opts.ImplicitFeedback = true
	opts.Gamma = 10
	weighted, _, err := Optimize(opts, slotRecords(t, opts, 1, 2), []model.TrainingPair{{AnchorID: 1, ContextID: 2}})
	require.NoError(t, err)

	// The confidence-weighted update must move the anchor further.
	var baseDelta, weightedDelta float64
	orig := slotRecords(t, opts, 1, 2)
	for j := 0; j < opts.VectorSize; j++ {
		baseDelta += math.Abs(float64(base[0].Factors[j] - orig[0].Factors[j]))
		weightedDelta += math.Abs(float64(weighted[0].Factors[j] - orig[0].Factors[j]))
	}
	require.Greater(t, weightedDelta, baseDelta)
}

func TestLossMerge(t *testing.T) {
	a := Loss{Positive: 1, Negative: 2, Pairs: 3, Skipped: 1}
	a.Merge(Loss{Positive: 0.5, Negative: 0.5, Pairs: 1})
	require.Equal(t, Loss{Positive: 1.5, Negative: 2.5, Pairs: 4, Skipped: 1}, a)
	require.InDelta(t, 1.0, a.Mean(), 1e-9)

	require.Zero(t, Loss{}.Mean())
}
