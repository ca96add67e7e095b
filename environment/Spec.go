package environment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an action, an observation, or a reward
type SpecType int

const (
	Action SpecType = iota
	Observation
	Reward
)

// Cardinality determines the cardinality of a number (discrete or continuous)
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec implements an environment specification, which tells the type,
// shape, and bounds of an action, observation, or reward in an
// environment. Bounds may be nil when they are unknown.
//
// Shape describes the unflattened layout of the data, e.g. [8] for a
// vector observation or [4, 84, 84] for a stack of four 84x84 frames
// in channel-first order.
type Spec struct {
	Shape      []int
	Type       SpecType
	LowerBound *mat.VecDense
	UpperBound *mat.VecDense
	Cardinality
}

// NewSpec constructs a new environment specification
func NewSpec(shape []int, t SpecType, lowerBound,
	upperBound *mat.VecDense, cardinality Cardinality) Spec {
	spec := Spec{shape, t, lowerBound, upperBound, cardinality}

	features := spec.Features()
	if lowerBound != nil && lowerBound.Len() != features {
		panic(fmt.Sprintf("newSpec: shape %v must match lower bounds "+
			"length %v", shape, lowerBound.Len()))
	}
	if upperBound != nil && upperBound.Len() != features {
		panic(fmt.Sprintf("newSpec: shape %v must match upper bounds "+
			"length %v", shape, upperBound.Len()))
	}
	return spec
}

// Features returns the number of elements in the flattened data
func (s Spec) Features() int {
	if len(s.Shape) == 0 {
		return 0
	}

	features := 1
	for _, dim := range s.Shape {
		features *= dim
	}
	return features
}
