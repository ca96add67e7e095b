package expreplay

import (
	"errors"
	"fmt"
)

// ExpReplayError implements errors unique to an experience replay
// buffer.
type ExpReplayError struct {
	Op  string
	Err error
}

// Error satisfies the error interface
func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

// InsufficientDataError reports that more transitions were requested
// from a buffer than it holds. Training loops recover from it by
// skipping the update.
type InsufficientDataError struct {
	Requested int
	Available int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: requested %v transitions but "+
		"only %v are stored", e.Requested, e.Available)
}

// ShapeMismatchError reports that a transition did not match the
// layout of the transitions already in the buffer. It is not
// recoverable.
type ShapeMismatchError struct {
	Field string
	Want  int
	Have  int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: invalid %v \n\twant(%v)\n\thave(%v)",
		e.Field, e.Want, e.Have)
}

// IsInsufficientData returns whether or not an error reports that
// there are insufficient samples in the buffer to sample from.
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}

// IsShapeMismatch returns whether or not an error reports that a
// transition has the wrong shape for the buffer
func IsShapeMismatch(err error) bool {
	var target *ShapeMismatchError
	return errors.As(err, &target)
}
