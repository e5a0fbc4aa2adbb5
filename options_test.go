package skipgrid

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/skipgrid/blobstore"
	"github.com/hupe1980/skipgrid/checkpoint"
)

func TestDefaultOptionsValid(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		option string
	}{
		{"zero vector size", func(o *Options) { o.VectorSize = 0 }, "VectorSize"},
		{"negative samples", func(o *Options) { o.NegativeSamples = -1 }, "NegativeSamples"},
		{"zero iterations", func(o *Options) { o.NumIterations = 0 }, "NumIterations"},
		{"zero learning rate", func(o *Options) { o.LearningRate = 0 }, "LearningRate"},
		{"min above initial", func(o *Options) { o.MinLearningRate = 1 }, "MinLearningRate"},
		{"zero partitions", func(o *Options) { o.NumPartitions = 0 }, "NumPartitions"},
		{"zero window", func(o *Options) { o.Window = 0 }, "Window"},
		{"negative pow", func(o *Options) { o.PopularityPower = -0.5 }, "PopularityPower"},
		{"negative lambda", func(o *Options) { o.Regularization = -1 }, "Regularization"},
		{"negative gamma", func(o *Options) { o.Gamma = -1 }, "Gamma"},
		{"negative interval", func(o *Options) { o.CheckpointInterval = -1 }, "CheckpointInterval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)

			err := opts.Validate()
			var invalid *ErrInvalidOption
			require.ErrorAs(t, err, &invalid)
			require.Equal(t, tt.option, invalid.Option)
		})
	}
}

func TestNewTrainerRequiresManagerForCheckpointing(t *testing.T) {
	opts := DefaultOptions()
	opts.CheckpointInterval = 10

	_, err := NewTrainer(opts)
	require.ErrorIs(t, err, ErrCheckpointManagerRequired)

	mgr := checkpoint.NewManager(blobstore.NewMemoryStore())
	_, err = NewTrainer(opts, WithCheckpointManager(mgr))
	require.NoError(t, err)
}

func TestNewTrainerRequiresManagerForFinalDurability(t *testing.T) {
	opts := DefaultOptions()
	opts.FinalDurability = DurabilityCheckpoint

	_, err := NewTrainer(opts)
	require.ErrorIs(t, err, ErrCheckpointManagerRequired)
}
