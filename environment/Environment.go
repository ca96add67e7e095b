// Package environment outlines the interfaces and structs needed to
// implement concrete environments and to adapt external ones
package environment

import (
	"github.com/fogleman/gg"
	ts "github.com/samuelfneumann/godqn/timestep"
	"gonum.org/v1/gonum/mat"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when episodes should end
type Ender interface {
	End(*ts.TimeStep) bool
}

// Task implements the reward scheme and episode termination for
// taking actions in some environment
type Task interface {
	Starter
	Ender
	GetReward(state, nextState *mat.VecDense) float64
}

// Environment is the adapter through which the training loop talks to
// an environment. Observations are flattened; image observations are
// flattened in channel-first order. Actions are discrete indices into
// the ActionSpace.
type Environment interface {
	// Reset starts a new episode and returns its first timestep
	Reset() (ts.TimeStep, error)

	// Step takes one environmental step. The returned bool reports
	// whether the episode has ended, in which case the returned
	// TimeStep is of type timestep.Last.
	Step(action int) (ts.TimeStep, bool, error)

	ActionSpace() *ActionSpace
	ObservationSpec() Spec
}

// Seeder is implemented by environments that can be reseeded, which
// makes evaluation episodes reproducible
type Seeder interface {
	Seed(seed uint64)
}

// Closer is implemented by environments holding external resources
type Closer interface {
	Close() error
}

// Renderer is implemented by environments that can draw their current
// state onto a drawing context
type Renderer interface {
	Environment
	Render(dc *gg.Context)
}
