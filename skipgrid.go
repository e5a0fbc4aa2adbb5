package skipgrid

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/skipgrid/checkpoint"
	"github.com/hupe1980/skipgrid/dataset"
	"github.com/hupe1980/skipgrid/internal/hash"
	"github.com/hupe1980/skipgrid/model"
	"github.com/hupe1980/skipgrid/optimizer"
	"github.com/hupe1980/skipgrid/pairgen"
	"github.com/hupe1980/skipgrid/partition"
)

// Trainer runs the (epoch, partition) scheduler over a record set.
type Trainer struct {
	opts     Options
	engine   *dataset.Engine
	logger   *Logger
	metrics  MetricsCollector
	ckpt     *checkpoint.Manager
	progress rate.Sometimes
}

// NewTrainer validates opts and assembles a trainer.
func NewTrainer(opts Options, optFns ...Option) (*Trainer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	t := &Trainer{
		opts:     opts,
		engine:   dataset.NewEngine(opts.NumThreads),
		logger:   NewLogger(nil),
		metrics:  NoopMetricsCollector{},
		progress: rate.Sometimes{First: 1, Interval: time.Second},
	}
	for _, fn := range optFns {
		fn(t)
	}

	if t.ckpt == nil {
		if opts.CheckpointInterval > 0 {
			return nil, fmt.Errorf("%w: CheckpointInterval is %d", ErrCheckpointManagerRequired, opts.CheckpointInterval)
		}
		if opts.FinalDurability == DurabilityCheckpoint {
			return nil, fmt.Errorf("%w: FinalDurability is %s", ErrCheckpointManagerRequired, opts.FinalDurability)
		}
	}
	return t, nil
}

// Train runs NumIterations epochs over the sequences and returns the final
// record set. With a checkpoint manager configured it first tries to
// resume from the newest complete snapshot; a run that already finished
// returns the saved records without touching the sequences.
func (t *Trainer) Train(ctx context.Context, sequences [][]model.ItemID) ([]model.ItemRecord, error) {
	n := t.opts.NumPartitions
	totalSteps := t.opts.NumIterations * n

	records, startStep, err := t.resumeOrInitialize(ctx, sequences)
	if err != nil {
		return nil, err
	}
	if startStep >= totalSteps {
		return records, nil
	}

	table, err := partition.NewTable(n, rand.New(rand.NewSource(t.opts.Seed)))
	if err != nil {
		return nil, err
	}

	seqData := dataset.Slice(t.engine, sequences, n).Persist()

	current := dataset.Slice(t.engine, records, n)
	if t.opts.IntermediateDurability >= DurabilityMemory {
		current.Persist()
	}

	var epochLoss optimizer.Loss
	for step := startStep; step < totalSteps; step++ {
		epoch, pi := step/n, step%n
		key := model.StepKey{Epoch: epoch, Iteration: pi}
		lr := learningRate(t.opts.LearningRate, t.opts.MinLearningRate, step, totalSteps)

		start := time.Now()
		next, loss, err := t.step(ctx, seqData, current, table, key, lr)
		t.metrics.RecordStep(loss.Pairs, time.Since(start), err)
		if err != nil {
			t.logger.LogStep(ctx, key, lr, loss, time.Since(start), err)
			return nil, fmt.Errorf("step %s: %w", key, err)
		}
		epochLoss.Merge(loss)

		if t.opts.Verbose {
			t.progress.Do(func() {
				t.logger.LogStep(ctx, key, lr, loss, time.Since(start), nil)
			})
		}

		current.Release()
		current = next

		if t.ckpt != nil && t.opts.CheckpointInterval > 0 && (step+1)%t.opts.CheckpointInterval == 0 {
			current, err = t.saveAndReload(ctx, current, key)
			if err != nil {
				return nil, err
			}
		}

		if pi == n-1 {
			t.logger.WithEpoch(epoch).InfoContext(ctx, "epoch completed",
				"learning_rate", lr,
				"pairs", epochLoss.Pairs,
				"mean_loss", epochLoss.Mean(),
			)
			epochLoss = optimizer.Loss{}
		}
	}

	final, err := current.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect final records: %w", err)
	}

	if t.opts.FinalDurability == DurabilityCheckpoint {
		// The final snapshot is keyed one past the last step so resume
		// recognizes the run as complete.
		key := model.StepKey{Epoch: t.opts.NumIterations, Iteration: 0}
		if err := t.save(ctx, key, final); err != nil {
			return nil, err
		}
	}
	return final, nil
}

// step runs one scheduler step: re-key the records by side, generate
// co-located pairs, optimize each slot locally and return the next
// generation.
func (t *Trainer) step(
	ctx context.Context,
	seqData *dataset.Dataset[[]model.ItemID],
	current *dataset.Dataset[model.ItemRecord],
	table *partition.Table,
	key model.StepKey,
	lr float64,
) (*dataset.Dataset[model.ItemRecord], optimizer.Loss, error) {
	n := t.opts.NumPartitions
	step := key.Epoch*n + key.Iteration

	leftPart := partition.StableHash(n, key.Epoch)
	rightPart := partition.Rotation(table, key.Epoch, key.Iteration)

	bySlot := dataset.PartitionBy(current, n, func(rec model.ItemRecord) int {
		if rec.Side == model.SideLeft {
			return leftPart.PartitionID(rec.ID)
		}
		return rightPart.PartitionID(rec.ID)
	})

	pairs := dataset.MapPartitions(seqData, func(p int, seqs [][]model.ItemID) ([]model.TrainingPair, error) {
		var out []model.TrainingPair
		seed := deriveSeed(t.opts.Seed, step, p)
		for pair := range pairgen.Pairs(slices.Values(seqs), t.opts.Window, leftPart.PartitionID, rightPart.PartitionID, seed) {
			out = append(out, pair)
		}
		return out, nil
	})
	pairsBySlot := dataset.PartitionBy(pairs, n, func(pair model.TrainingPair) int {
		return pair.Slot
	})

	var (
		mu       sync.Mutex
		stepLoss optimizer.Loss
	)
	next, err := dataset.ZipPartitions(bySlot, pairsBySlot, func(slot int, recs []model.ItemRecord, prs []model.TrainingPair) ([]model.ItemRecord, error) {
		updated, loss, err := optimizer.Optimize(optimizer.Options{
			VectorSize:       t.opts.VectorSize,
			UseBias:          t.opts.UseBias,
			NegativeSamples:  t.opts.NegativeSamples,
			PopularityPower:  t.opts.PopularityPower,
			LearningRate:     lr,
			Regularization:   t.opts.Regularization,
			Gamma:            t.opts.Gamma,
			ImplicitFeedback: t.opts.ImplicitFeedback,
			Seed:             deriveSeed(t.opts.Seed, step, n+slot),
			Verbose:          t.opts.Verbose,
		}, recs, prs)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		stepLoss.Merge(loss)
		mu.Unlock()
		return updated, nil
	})
	if err != nil {
		return nil, optimizer.Loss{}, err
	}

	if t.opts.IntermediateDurability >= DurabilityMemory {
		next.Persist()
	}

	// Count is the synchronization barrier: the new generation is fully
	// materialized before the superseded one is released.
	if _, err := next.Count(ctx); err != nil {
		return nil, stepLoss, err
	}
	return next, stepLoss, nil
}

// saveAndReload checkpoints the current generation and replaces it with a
// fresh collection backed by the snapshot contents, cutting the lineage
// chain that has built up since the last checkpoint.
func (t *Trainer) saveAndReload(ctx context.Context, current *dataset.Dataset[model.ItemRecord], key model.StepKey) (*dataset.Dataset[model.ItemRecord], error) {
	records, err := current.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect for checkpoint: %w", err)
	}
	if err := t.save(ctx, key, records); err != nil {
		return nil, err
	}

	current.Release()
	reloaded := dataset.Slice(t.engine, records, t.opts.NumPartitions)
	if t.opts.IntermediateDurability >= DurabilityMemory {
		reloaded.Persist()
	}
	return reloaded, nil
}

func (t *Trainer) save(ctx context.Context, key model.StepKey, records []model.ItemRecord) error {
	start := time.Now()
	err := t.ckpt.Save(ctx, key, records)
	t.metrics.RecordCheckpointSave(len(records), time.Since(start), err)
	t.logger.LogCheckpoint(ctx, key, len(records), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("checkpoint %s: %w", key, err)
	}
	return nil
}

// resumeOrInitialize loads the newest complete checkpoint if a manager is
// configured, falling back to generation-zero initialization from the raw
// sequences.
func (t *Trainer) resumeOrInitialize(ctx context.Context, sequences [][]model.ItemID) ([]model.ItemRecord, int, error) {
	if t.ckpt != nil {
		key, ok, err := t.ckpt.ResolveLatest(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("resolve checkpoint: %w", err)
		}
		if ok {
			start := time.Now()
			records, err := t.ckpt.Load(ctx, key)
			t.metrics.RecordCheckpointLoad(len(records), time.Since(start), err)
			if err != nil {
				return nil, 0, fmt.Errorf("load checkpoint: %w", err)
			}
			t.logger.LogResume(ctx, key, len(records))
			return records, key.Epoch*t.opts.NumPartitions + key.Iteration + 1, nil
		}
	}

	if len(sequences) == 0 {
		return nil, 0, ErrNoTrainingData
	}
	return initialRecords(sequences, t.opts), 0, nil
}

// deriveSeed decorrelates the per-step, per-partition random streams from
// the run seed.
func deriveSeed(base int64, step, p int) int64 {
	x := hash.Mix64(uint64(base))
	x = hash.Mix64(x ^ (uint64(step) + 1))
	x = hash.Mix64(x ^ uint64(p))
	return int64(x)
}
