package mountaincar

import (
	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
	"gonum.org/v1/gonum/mat"
)

// GoalPosition is the commonly used goal x position
const GoalPosition float64 = 0.5

// Goal implements the classic control task of reaching a goal on
// Mountain Car. Since the car is underpowered, it must rock back and
// forth from hill to hill until it reaches the goal.
//
// Rewards are -1 on each timestep and 0 for the action which
// transitions the car to the goal.
//
// Episodes end after a step limit or when the car reaches the goal.
type Goal struct {
	env.Starter
	stepLimiter *env.StepLimit
	goalX       float64
}

// NewGoal returns a new Goal task. An episodeSteps of 0 disables the
// step limit.
func NewGoal(s env.Starter, episodeSteps int, goalX float64) *Goal {
	return &Goal{s, env.NewStepLimit(episodeSteps), goalX}
}

// AtGoal returns whether state is at the goal
func (g *Goal) AtGoal(state *mat.VecDense) bool {
	return state.AtVec(0) >= g.goalX
}

// End checks if a TimeStep is the last in an episode. If so, it adjusts
// the TimeStep's StepType to timestep.Last and returns true.
func (g *Goal) End(t *ts.TimeStep) bool {
	if g.AtGoal(t.Observation) {
		t.StepType = ts.Last
		t.SetEnd(ts.TerminalStateReached)
		return true
	}
	return g.stepLimiter.End(t)
}

// GetReward returns the reward for a transition into nextState
func (g *Goal) GetReward(_, nextState *mat.VecDense) float64 {
	if g.AtGoal(nextState) {
		return 0.0
	}
	return -1.0
}

// Seed reseeds the starting state distribution if possible
func (g *Goal) Seed(seed uint64) {
	if s, ok := g.Starter.(env.Seeder); ok {
		s.Seed(seed)
	}
}
