// Package agent defines the contracts between the training loop and
// the value-based agents it trains
package agent

import (
	"github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/timestep"
	"gonum.org/v1/gonum/mat"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a Policy
// which chooses actions in each state. The Policy chooses which actions
// are taken, and the Learner uses these actions to update the Policy.
type Agent interface {
	Learner
	Policy
	Saver
}

// Learner implements a learning algorithm that defines how weights are
// updated. The caller decides when updates and target synchronisations
// happen.
type Learner interface {
	// Observe records a transition for later updates
	Observe(t timestep.Transition) error

	// Learn performs a single update and returns the loss of the
	// update
	Learn() (float64, error)

	// SyncTarget copies the learned weights into the target estimator
	SyncTarget() error
}

// Policy selects actions given an observation. Epsilon is the
// exploration rate to use for this one selection; the space is used to
// draw random actions.
type Policy interface {
	SelectAction(obs *mat.VecDense, epsilon float64,
		space *environment.ActionSpace) (int, error)
}

// Saver persists and restores the learned weights of an agent. If full
// is false only the weights needed to act are saved.
type Saver interface {
	Save(path string, full bool) error
	Load(path string) error
}

// ValueEstimator maps a batch of states to one value per action.
// States and values are row-major with one row per state.
type ValueEstimator interface {
	Estimate(states []float64) ([]float64, error)
	NumActions() int
	Features() int
}
