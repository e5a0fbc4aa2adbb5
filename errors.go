package skipgrid

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTrainingData is returned when Train is called without sequences
	// and no checkpoint to resume from.
	ErrNoTrainingData = errors.New("no training data")

	// ErrCheckpointManagerRequired is returned when options demand
	// checkpointing but no manager was configured.
	ErrCheckpointManagerRequired = errors.New("checkpoint manager required")
)

// ErrInvalidOption indicates an option value that fails validation.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidOption struct {
	Option string
	Value  any
	cause  error
}

func (e *ErrInvalidOption) Error() string {
	return fmt.Sprintf("invalid option %s: %v", e.Option, e.Value)
}

func (e *ErrInvalidOption) Unwrap() error { return e.cause }
