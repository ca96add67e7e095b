// Package timestep implements timesteps of the agent-environment
// interaction and the transitions built from them
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either the
// first environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType denotes why an episode ended. It is only meaningful on the
// last TimeStep of an episode.
type EndType int

const (
	// TerminalStateReached means the episode entered a terminal state,
	// after which there is no future reward
	TerminalStateReached EndType = iota

	// Timeout means the episode was cut off, e.g. by a step limit, in a
	// state which has future reward
	Timeout
)

func (e EndType) String() string {
	if e == Timeout {
		return "Timeout"
	}
	return "TerminalStateReached"
}

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType    StepType
	Reward      float64
	Observation *mat.VecDense
	Number      int
	EndType     EndType
}

// New returns a new TimeStep
func New(t StepType, r float64, o *mat.VecDense, n int) TimeStep {
	return TimeStep{StepType: t, Reward: r, Observation: o, Number: n}
}

// SetEnd sets the reason that the episode ended at t
func (t *TimeStep) SetEnd(e EndType) {
	t.EndType = e
}

// First returns whether a TimeStep is the first in an episode
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an episode
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an episode
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

// Terminal returns whether a TimeStep is the last step in an episode
// and the episode ended in a terminal state rather than being cut off
func (t *TimeStep) Terminal() bool {
	return t.Last() && t.EndType != Timeout
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Number)
}

// Transition is a single (s, a, r, s', done) tuple as stored in a
// replay buffer. Done marks a terminal next state, after which no
// value is bootstrapped.
type Transition struct {
	State     *mat.VecDense
	Action    int
	Reward    float64
	NextState *mat.VecDense
	Done      bool
}

// NewTransition builds the transition between two consecutive
// timesteps. The reward is taken from next and scaled by rewardScale.
// The transition is done only if next is terminal; an episode cut off
// by a Timeout still bootstraps from its last state.
func NewTransition(prev TimeStep, action int, next TimeStep,
	rewardScale float64) Transition {
	return Transition{
		State:     prev.Observation,
		Action:    action,
		Reward:    next.Reward * rewardScale,
		NextState: next.Observation,
		Done:      next.Terminal(),
	}
}

// Discount returns 0 if the transition is terminal and 1 otherwise
func (t Transition) Discount() float64 {
	if t.Done {
		return 0
	}
	return 1
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | Action: %v  |  Reward: %.3f  |  Done: %v",
		t.Action, t.Reward, t.Done)
}
