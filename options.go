package skipgrid

import (
	"github.com/hupe1980/skipgrid/checkpoint"
	"github.com/hupe1980/skipgrid/dataset"
	"github.com/hupe1980/skipgrid/partition"
)

// Durability selects how hard the trainer holds on to a record generation.
type Durability uint8

const (
	// DurabilityNone recomputes lost partitions from lineage.
	DurabilityNone Durability = iota
	// DurabilityMemory caches materialized partitions in memory.
	DurabilityMemory
	// DurabilityCheckpoint additionally persists the generation to the
	// checkpoint store.
	DurabilityCheckpoint
)

// String returns a string representation of the durability level.
func (d Durability) String() string {
	switch d {
	case DurabilityNone:
		return "none"
	case DurabilityMemory:
		return "memory"
	case DurabilityCheckpoint:
		return "checkpoint"
	default:
		return "unknown"
	}
}

// Options configures a training run.
type Options struct {
	// VectorSize is the embedding dimension, excluding the bias slot.
	VectorSize int
	// NegativeSamples is the number of negative draws per training pair.
	NegativeSamples int
	// NumIterations is the number of epochs over the input.
	NumIterations int
	// LearningRate is the initial SGD step size.
	LearningRate float64
	// MinLearningRate is the final step size of the log-space decay.
	// Zero keeps the learning rate constant.
	MinLearningRate float64
	// NumThreads bounds slot-level parallelism. <= 0 selects GOMAXPROCS.
	NumThreads int
	// NumPartitions is the number of co-location slots per step.
	NumPartitions int
	// Window is the per-anchor candidate budget factor: up to 2*Window
	// co-sequence candidates are drawn per anchor position.
	Window int
	// PopularityPower skews negative sampling toward frequent items.
	PopularityPower float64
	// Regularization is the L2 penalty on endpoint vectors.
	Regularization float64
	// Gamma scales implicit-feedback confidence weighting.
	Gamma float64
	// UseBias adds one trailing bias slot per factor vector.
	UseBias bool
	// ImplicitFeedback weights positive updates by 1 + Gamma*ln(1+count).
	ImplicitFeedback bool
	// Seed makes partitioning, pair generation and negative sampling
	// reproducible.
	Seed int64
	// IntermediateDurability applies to generations between steps.
	IntermediateDurability Durability
	// FinalDurability applies to the result of the last step.
	FinalDurability Durability
	// CheckpointInterval saves a snapshot every n steps. Zero disables
	// interval checkpointing. Requires a checkpoint manager.
	CheckpointInterval int
	// Verbose enables throttled per-step progress logging.
	Verbose bool
}

// DefaultOptions returns the baseline configuration.
func DefaultOptions() Options {
	return Options{
		VectorSize:             100,
		NegativeSamples:        5,
		NumIterations:          1,
		LearningRate:           0.025,
		MinLearningRate:        0,
		NumThreads:             0,
		NumPartitions:          1,
		Window:                 5,
		PopularityPower:        0.75,
		Regularization:         0,
		Gamma:                  1,
		Seed:                   1,
		IntermediateDurability: DurabilityMemory,
		FinalDurability:        DurabilityMemory,
	}
}

// Validate fails fast on inconsistent option values.
func (o Options) Validate() error {
	if o.VectorSize <= 0 {
		return &ErrInvalidOption{Option: "VectorSize", Value: o.VectorSize}
	}
	if o.NegativeSamples < 0 {
		return &ErrInvalidOption{Option: "NegativeSamples", Value: o.NegativeSamples}
	}
	if o.NumIterations <= 0 {
		return &ErrInvalidOption{Option: "NumIterations", Value: o.NumIterations}
	}
	if o.LearningRate <= 0 {
		return &ErrInvalidOption{Option: "LearningRate", Value: o.LearningRate}
	}
	if o.MinLearningRate < 0 || o.MinLearningRate > o.LearningRate {
		return &ErrInvalidOption{Option: "MinLearningRate", Value: o.MinLearningRate}
	}
	if o.NumPartitions <= 0 || o.NumPartitions > partition.TotalSize {
		return &ErrInvalidOption{Option: "NumPartitions", Value: o.NumPartitions}
	}
	if o.Window <= 0 {
		return &ErrInvalidOption{Option: "Window", Value: o.Window}
	}
	if o.PopularityPower < 0 {
		return &ErrInvalidOption{Option: "PopularityPower", Value: o.PopularityPower}
	}
	if o.Regularization < 0 {
		return &ErrInvalidOption{Option: "Regularization", Value: o.Regularization}
	}
	if o.Gamma < 0 {
		return &ErrInvalidOption{Option: "Gamma", Value: o.Gamma}
	}
	if o.CheckpointInterval < 0 {
		return &ErrInvalidOption{Option: "CheckpointInterval", Value: o.CheckpointInterval}
	}
	return nil
}

// Option configures trainer collaborators.
type Option func(*Trainer)

// WithLogger sets the logger. Pass nil to keep the default.
func WithLogger(logger *Logger) Option {
	return func(t *Trainer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMetricsCollector sets the metrics collector. Pass nil to disable
// metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(t *Trainer) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		t.metrics = mc
	}
}

// WithCheckpointManager enables checkpoint/resume through the given
// manager.
func WithCheckpointManager(mgr *checkpoint.Manager) Option {
	return func(t *Trainer) {
		t.ckpt = mgr
	}
}

// WithEngine sets the dataset engine. The default engine's parallelism
// follows Options.NumThreads.
func WithEngine(engine *dataset.Engine) Option {
	return func(t *Trainer) {
		if engine != nil {
			t.engine = engine
		}
	}
}
