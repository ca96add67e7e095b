package deepq

import (
	"fmt"

	"github.com/samuelfneumann/godqn/agent"
	env "github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/expreplay"
	"github.com/samuelfneumann/godqn/initwfn"
	"github.com/samuelfneumann/godqn/network"
	"github.com/samuelfneumann/godqn/solver"
)

// Config implements a configuration for a DeepQ agent
type Config struct {
	// Experience replay parameters
	expreplay.Config

	Arch   network.Arch   `json:"arch"`   // Architecture of the estimators
	Solver *solver.Solver `json:"solver"` // Solver for learning weights

	// Initialization algorithm for weights
	InitWFn *initwfn.InitWFn `json:"init_w"`

	Gamma float64 `json:"gamma"`

	// ClipNorm is the maximum global L2 norm of the gradients of an
	// update, 0 disables clipping
	ClipNorm float64 `json:"clip_norm"`
}

// Validate checks a Config to ensure it is a valid configuration of a
// DeepQ agent.
func (c Config) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return fmt.Errorf("validate: replay: %w", err)
	}
	if err := c.Arch.Validate(); err != nil {
		return fmt.Errorf("validate: arch: %w", err)
	}
	if c.Solver == nil {
		return fmt.Errorf("validate: solver must be given")
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: weight initializer must be given")
	}
	if c.Gamma < 0 || c.Gamma >= 1 {
		return fmt.Errorf("validate: gamma must be in [0, 1), have(%v)",
			c.Gamma)
	}
	if c.ClipNorm < 0 {
		return fmt.Errorf("validate: clip norm must be non-negative, "+
			"have(%v)", c.ClipNorm)
	}
	return nil
}

// CreateAgent creates a new DeepQ agent based on the configuration
func (c Config) CreateAgent(e env.Environment, seed uint64) (agent.Agent,
	error) {
	return New(c, e.ObservationSpec().Shape, e.ActionSpace().N(), seed)
}
