package experiment

import (
	"fmt"
	"math"
)

// ScheduleType names an exploration Schedule
type ScheduleType string

const (
	MultiplicativeDecay ScheduleType = "multiplicative"
	LinearDecay         ScheduleType = "linear"
)

// Schedule decays the exploration rate of an epsilon greedy policy.
// Next never increases epsilon and never decays it below a minimum.
type Schedule interface {
	Next(epsilon float64) float64
}

// Multiplicative decays epsilon by a constant factor each step
type Multiplicative struct {
	decay float64
	min   float64
}

// NewMultiplicative returns a new Multiplicative schedule
func NewMultiplicative(decay, min float64) (*Multiplicative, error) {
	if decay <= 0 || decay > 1 {
		return nil, fmt.Errorf("newMultiplicative: decay must be in (0, 1], "+
			"have(%v)", decay)
	}
	return &Multiplicative{decay: decay, min: min}, nil
}

// Next returns max(epsilon * decay, min)
func (m *Multiplicative) Next(epsilon float64) float64 {
	return math.Max(epsilon*m.decay, m.min)
}

// Linear decays epsilon from a start value to a minimum in equal
// decrements over a number of steps
type Linear struct {
	decrement float64
	min       float64
}

// NewLinear returns a new Linear schedule reaching min after steps
// steps when started from start
func NewLinear(start, min float64, steps int) (*Linear, error) {
	if steps < 1 {
		return nil, fmt.Errorf("newLinear: decay steps must be positive, "+
			"have(%v)", steps)
	}
	return &Linear{decrement: (start - min) / float64(steps), min: min}, nil
}

// Next returns max(epsilon - decrement, min)
func (l *Linear) Next(epsilon float64) float64 {
	return math.Max(epsilon-l.decrement, l.min)
}
