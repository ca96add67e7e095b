package experiment

import (
	"context"
	"fmt"

	"github.com/samuelfneumann/godqn/agent"
	env "github.com/samuelfneumann/godqn/environment"
	"gonum.org/v1/gonum/stat"
)

// Evaluate runs episodes episodes of policy p with exploration rate
// epsilon on e and returns the return of each episode. If e can be
// seeded, episode i is run with seed seed+i so that evaluations are
// reproducible.
func Evaluate(ctx context.Context, e env.Environment, p agent.Policy,
	episodes int, epsilon float64, seed uint64) ([]float64, error) {
	returns := make([]float64, 0, episodes)

	for i := 0; i < episodes; i++ {
		if seeder, ok := e.(env.Seeder); ok {
			seeder.Seed(seed + uint64(i))
		}

		step, err := e.Reset()
		if err != nil {
			return nil, fmt.Errorf("evaluate: could not reset environment: "+
				"%w", err)
		}

		var ret float64
		for !step.Last() {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("evaluate: %w", err)
			}

			action, err := p.SelectAction(step.Observation, epsilon,
				e.ActionSpace())
			if err != nil {
				return nil, fmt.Errorf("evaluate: %w", err)
			}

			if step, _, err = e.Step(action); err != nil {
				return nil, fmt.Errorf("evaluate: could not step "+
					"environment: %w", err)
			}
			ret += step.Reward
		}
		returns = append(returns, ret)
	}

	return returns, nil
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}
