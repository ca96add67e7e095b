package environment

import (
	"fmt"

	ts "github.com/samuelfneumann/godqn/timestep"
	"gonum.org/v1/gonum/spatial/r1"
)

// IntervalLimit implements the Ender interface to end episodes
// whenever a single feature in a feature vector leaves some interval
type IntervalLimit struct {
	intervals []r1.Interval
	indices   []int
}

// NewIntervalLimit creates and returns a new interval limit
func NewIntervalLimit(limits []r1.Interval, obsIndices []int) *IntervalLimit {
	if len(limits) != len(obsIndices) {
		panic(fmt.Sprintf("newIntervalLimit: limits should have same "+
			"length as observation indices \n\twant(%v)\n\thave(%v)",
			len(limits), len(obsIndices)))
	}

	return &IntervalLimit{limits, obsIndices}
}

// End determines whether or not the current episode should be ended,
// returning a boolean to indicate episode termination. If the episode
// should be ended End() will modify the timestep so that its StepType
// field is timestep.Last.
func (i *IntervalLimit) End(t *ts.TimeStep) bool {
	for index, featureIndex := range i.indices {
		interval := i.intervals[index]
		value := t.Observation.AtVec(featureIndex)

		if value > interval.Max || value < interval.Min {
			t.StepType = ts.Last
			t.SetEnd(ts.TerminalStateReached)
			return true
		}
	}
	return false
}
