package cartpole

import (
	"math"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

const (
	FailAngle float64 = 12 * 2 * math.Pi / 360
)

// Balance implements the classic control Cartpole Balance task. In this
// Task, the goal of the agent is to balance the pole on the cart in
// an upright position for as long as possible.
//
// The rewards are +1 for every timestep the pole stays within the fail
// angle θ and -1 on the step that it falls below it.
//
// Episodes end after a step limit, after the pole has fallen below
// the angle threshold θ, or when the cart leaves the track.
type Balance struct {
	env.Starter
	stepLimiter     *env.StepLimit
	intervalLimiter *env.IntervalLimit
	failAngle       float64
}

// NewBalance creates and returns a new Balance task. An episodeSteps
// of 0 disables the step limit.
func NewBalance(s env.Starter, episodeSteps int, failAngle float64) *Balance {
	stepLimiter := env.NewStepLimit(episodeSteps)

	limits := []r1.Interval{
		{Min: -PositionBounds, Max: PositionBounds},
		{Min: -failAngle, Max: failAngle},
	}
	intervalLimiter := env.NewIntervalLimit(limits, []int{0, 2})

	return &Balance{s, stepLimiter, intervalLimiter, failAngle}
}

// End checks if a TimeStep is the last in an episode. If so, it adjusts
// the TimeStep's StepType to timestep.Last and returns true.
func (b *Balance) End(t *ts.TimeStep) bool {
	if x := math.Abs(t.Observation.AtVec(0)); x >= PositionBounds {
		t.StepType = ts.Last
		t.SetEnd(ts.TerminalStateReached)
		return true
	}
	if end := b.intervalLimiter.End(t); end {
		return true
	}
	return b.stepLimiter.End(t)
}

// GetReward returns the reward for a transition into nextState
func (b *Balance) GetReward(_, nextState *mat.VecDense) float64 {
	angle := math.Abs(nextState.AtVec(2))

	// Angle of 0 is pointing straight up
	if angle < b.failAngle {
		return 1.0
	}
	return -1.0
}

// Seed reseeds the starting state distribution if possible
func (b *Balance) Seed(seed uint64) {
	if s, ok := b.Starter.(env.Seeder); ok {
		s.Seed(seed)
	}
}
