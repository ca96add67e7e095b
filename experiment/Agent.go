package experiment

import (
	"fmt"

	"github.com/samuelfneumann/godqn/agent"
	env "github.com/samuelfneumann/godqn/environment"
)

// NewAgent validates c and creates the agent it describes for e
func NewAgent(c agent.Config, e env.Environment, seed uint64) (agent.Agent,
	error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newAgent: %w", err)
	}

	a, err := c.CreateAgent(e, seed)
	if err != nil {
		return nil, fmt.Errorf("newAgent: could not create agent for %v: %w",
			e.ObservationSpec().Shape, err)
	}
	return a, nil
}
