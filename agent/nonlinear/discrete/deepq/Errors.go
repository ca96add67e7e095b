package deepq

import (
	"errors"
	"fmt"
)

// CheckpointLoadError reports that a checkpoint could not be loaded
// into an agent. When the checkpoint does not match the architecture of
// the agent, Param names the first mismatching parameter and Want and
// Have hold the expected and stored shapes.
type CheckpointLoadError struct {
	Path  string
	Param string
	Want  []int
	Have  []int
	Err   error
}

func (e *CheckpointLoadError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("load %v: parameter %v does not match "+
			"\n\twant(%v) \n\thave(%v)", e.Path, e.Param, e.Want, e.Have)
	}
	return fmt.Sprintf("load %v: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *CheckpointLoadError) Unwrap() error {
	return e.Err
}

// DivergenceError reports that the loss of an update was not finite.
// Step is the number of the update, counted from 1.
type DivergenceError struct {
	Step int
	Loss float64
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("update %v: loss diverged to %v", e.Step, e.Loss)
}

// IsDivergence returns whether err reports a diverged update
func IsDivergence(err error) bool {
	var target *DivergenceError
	return errors.As(err, &target)
}

// IsCheckpointLoad returns whether err reports a failed checkpoint load
func IsCheckpointLoad(err error) bool {
	var target *CheckpointLoadError
	return errors.As(err, &target)
}
