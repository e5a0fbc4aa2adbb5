// Package optimizer implements the local SGD kernel invoked once per slot
// and scheduler step: skip-gram with negative sampling over dot-product
// embeddings.
//
// The kernel is strictly slot-local. It sees only the records resident in
// one slot and the training pairs targeting it, performs logistic gradient
// steps, and returns a fresh record set. Input records are never mutated;
// the trainer replaces whole generations.
package optimizer

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/hupe1980/skipgrid/model"
)

// Options configures one optimizer invocation.
type Options struct {
	// VectorSize is the embedding dimension, excluding the bias slot.
	VectorSize int
	// UseBias expects one extra trailing factor slot per record.
	UseBias bool
	// NegativeSamples is the number of negative draws per training pair.
	NegativeSamples int
	// PopularityPower skews negative sampling toward frequent items:
	// weight = count^PopularityPower. Zero means uniform.
	PopularityPower float64
	// LearningRate is the step size for this invocation, already decayed
	// by the scheduler.
	LearningRate float64
	// Regularization is the L2 penalty applied to both endpoint vectors.
	Regularization float64
	// Gamma scales the implicit-feedback confidence weighting.
	Gamma float64
	// ImplicitFeedback weights positive updates by 1 + Gamma*ln(1+count).
	ImplicitFeedback bool
	// Seed makes the negative draws reproducible.
	Seed int64
	// Verbose is reserved for the caller's logging decisions.
	Verbose bool
}

// Loss accumulates the running logistic loss of one invocation.
type Loss struct {
	// Positive is the summed loss of positive updates.
	Positive float64
	// Negative is the summed loss of negative updates.
	Negative float64
	// Pairs counts pairs that produced updates.
	Pairs int64
	// Skipped counts pairs whose anchor or context was not resident in
	// the slot.
	Skipped int64
}

// Merge adds other into l.
func (l *Loss) Merge(other Loss) {
	l.Positive += other.Positive
	l.Negative += other.Negative
	l.Pairs += other.Pairs
	l.Skipped += other.Skipped
}

// Mean returns the average loss per processed pair.
func (l Loss) Mean() float64 {
	if l.Pairs == 0 {
		return 0
	}
	return (l.Positive + l.Negative) / float64(l.Pairs)
}

// Optimize runs SGD over the pairs resident in one slot and returns the
// updated record set for that slot. Records whose ids never appear in a
// pair are returned unchanged (but freshly copied).
func Optimize(opts Options, records []model.ItemRecord, pairs []model.TrainingPair) ([]model.ItemRecord, Loss, error) {
	if opts.VectorSize <= 0 {
		return nil, Loss{}, fmt.Errorf("optimizer: vector size must be positive, got %d", opts.VectorSize)
	}
	if opts.LearningRate <= 0 {
		return nil, Loss{}, fmt.Errorf("optimizer: learning rate must be positive, got %g", opts.LearningRate)
	}

	factorLen := opts.VectorSize
	if opts.UseBias {
		factorLen++
	}

	out := make([]model.ItemRecord, len(records))
	left := make(map[model.ItemID]int)
	right := make(map[model.ItemID]int)
	var rightIdx []int
	for i, rec := range records {
		if len(rec.Factors) != factorLen {
			return nil, Loss{}, fmt.Errorf("optimizer: record %d/%s has %d factors, want %d",
				rec.ID, rec.Side, len(rec.Factors), factorLen)
		}
		out[i] = rec.Clone()
		switch rec.Side {
		case model.SideLeft:
			left[rec.ID] = i
		case model.SideRight:
			right[rec.ID] = i
			rightIdx = append(rightIdx, i)
		}
	}

	var loss Loss
	if len(pairs) == 0 || len(rightIdx) == 0 {
		return out, loss, nil
	}

	sampler := newNegativeSampler(out, rightIdx, opts.PopularityPower)
	rng := rand.New(rand.NewSource(opts.Seed))

	for _, pair := range pairs {
		ai, ok := left[pair.AnchorID]
		if !ok {
			loss.Skipped++
			continue
		}
		ci, ok := right[pair.ContextID]
		if !ok {
			loss.Skipped++
			continue
		}

		weight := 1.0
		if opts.ImplicitFeedback {
			weight = 1.0 + opts.Gamma*math.Log1p(float64(out[ci].Count))
		}

		loss.Positive += step(opts, out[ai].Factors, out[ci].Factors, 1, weight)
		for k := 0; k < opts.NegativeSamples; k++ {
			ni := sampler.draw(rng)
			if out[ni].ID == pair.ContextID {
				continue
			}
			loss.Negative += step(opts, out[ai].Factors, out[ni].Factors, 0, 1)
		}
		loss.Pairs++
	}

	return out, loss, nil
}

// step performs one logistic gradient update on the pair of factor
// vectors and returns its loss contribution. label is 1 for positive and
// 0 for negative examples.
func step(opts Options, anchor, context []float32, label, weight float64) float64 {
	v := opts.VectorSize

	dot := 0.0
	for j := 0; j < v; j++ {
		dot += float64(anchor[j]) * float64(context[j])
	}
	if opts.UseBias {
		dot += float64(anchor[v]) + float64(context[v])
	}

	p := sigmoid(dot)
	g := opts.LearningRate * weight * (label - p)
	lrLambda := opts.LearningRate * opts.Regularization

	for j := 0; j < v; j++ {
		a, c := float64(anchor[j]), float64(context[j])
		anchor[j] = float32(a + g*c - lrLambda*a)
		context[j] = float32(c + g*a - lrLambda*c)
	}
	if opts.UseBias {
		a, c := float64(anchor[v]), float64(context[v])
		anchor[v] = float32(a + g - lrLambda*a)
		context[v] = float32(c + g - lrLambda*c)
	}

	const eps = 1e-9
	if label > 0 {
		return -math.Log(math.Max(p, eps))
	}
	return -math.Log(math.Max(1-p, eps))
}

func sigmoid(x float64) float64 {
	if x > 30 {
		return 1
	}
	if x < -30 {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}

// negativeSampler draws right-side record indices with probability
// proportional to count^power.
type negativeSampler struct {
	indices    []int
	cumulative []float64
	total      float64
}

func newNegativeSampler(records []model.ItemRecord, rightIdx []int, power float64) *negativeSampler {
	cum := make([]float64, len(rightIdx))
	total := 0.0
	for i, idx := range rightIdx {
		count := float64(records[idx].Count)
		if count < 1 {
			count = 1
		}
		total += math.Pow(count, power)
		cum[i] = total
	}
	return &negativeSampler{indices: rightIdx, cumulative: cum, total: total}
}

func (s *negativeSampler) draw(rng *rand.Rand) int {
	target := rng.Float64() * s.total
	i := sort.SearchFloat64s(s.cumulative, target)
	if i >= len(s.indices) {
		i = len(s.indices) - 1
	}
	return s.indices[i]
}
