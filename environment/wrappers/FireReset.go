package wrappers

import (
	"fmt"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
)

// FireReset takes a fixed action after every reset. Games such as
// Breakout do not start until the FIRE action has been taken.
type FireReset struct {
	env.Environment
	action int
}

// NewFireReset returns a new FireReset wrapper taking action after
// every reset
func NewFireReset(e env.Environment, action int) (*FireReset, error) {
	if !e.ActionSpace().Contains(action) {
		return nil, fmt.Errorf("newFireReset: illegal action %v ∉ %v",
			action, e.ActionSpace())
	}
	return &FireReset{e, action}, nil
}

// Reset resets the wrapped environment and takes the fire action
func (f *FireReset) Reset() (ts.TimeStep, error) {
	if _, err := f.Environment.Reset(); err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not reset wrapped "+
			"environment: %w", err)
	}

	step, done, err := f.Environment.Step(f.action)
	if err != nil {
		return step, fmt.Errorf("reset: could not fire: %w", err)
	}
	if done {
		return f.Environment.Reset()
	}

	step.StepType = ts.First
	step.Number = 0
	step.Reward = 0
	return step, nil
}

// Seed seeds the wrapped environment if it can be seeded
func (f *FireReset) Seed(seed uint64) {
	if s, ok := f.Environment.(env.Seeder); ok {
		s.Seed(seed)
	}
}
