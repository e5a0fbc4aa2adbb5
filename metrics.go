package skipgrid

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordStep is called after each scheduler step.
	// pairs is the number of training pairs processed, duration is the
	// total step time, err is nil if successful.
	RecordStep(pairs int64, duration time.Duration, err error)

	// RecordCheckpointSave is called after each checkpoint write.
	RecordCheckpointSave(records int, duration time.Duration, err error)

	// RecordCheckpointLoad is called after each checkpoint read.
	RecordCheckpointLoad(records int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordStep(int64, time.Duration, error)         {}
func (NoopMetricsCollector) RecordCheckpointSave(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordCheckpointLoad(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	StepCount            atomic.Int64
	StepErrors           atomic.Int64
	StepTotalNanos       atomic.Int64
	PairsTotal           atomic.Int64
	CheckpointSaves      atomic.Int64
	CheckpointSaveErrors atomic.Int64
	CheckpointLoads      atomic.Int64
	CheckpointLoadErrors atomic.Int64
}

// RecordStep implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStep(pairs int64, duration time.Duration, err error) {
	b.StepCount.Add(1)
	b.StepTotalNanos.Add(duration.Nanoseconds())
	b.PairsTotal.Add(pairs)
	if err != nil {
		b.StepErrors.Add(1)
	}
}

// RecordCheckpointSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCheckpointSave(_ int, _ time.Duration, err error) {
	b.CheckpointSaves.Add(1)
	if err != nil {
		b.CheckpointSaveErrors.Add(1)
	}
}

// RecordCheckpointLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCheckpointLoad(_ int, _ time.Duration, err error) {
	b.CheckpointLoads.Add(1)
	if err != nil {
		b.CheckpointLoadErrors.Add(1)
	}
}
