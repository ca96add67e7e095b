// Package policy implements epsilon greedy action selection over the
// action values predicted by a value estimator.
package policy

import (
	"fmt"

	"github.com/samuelfneumann/godqn/agent"
	env "github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// EGreedy implements the epsilon greedy selection rule. With
// probability epsilon a uniformly random action is drawn from the
// action space. Otherwise the action of maximum value is chosen, ties
// broken in favour of the lowest index so that greedy selection is
// deterministic.
type EGreedy struct {
	rng  *rand.Rand
	seed uint64
}

// NewEGreedy returns a new EGreedy rule. The seed determines when a
// random action is taken; which random action is taken is determined
// by the action space.
func NewEGreedy(seed uint64) *EGreedy {
	return &EGreedy{
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// SelectAction selects an action given the action values of a single
// state
func (e *EGreedy) SelectAction(values []float64, epsilon float64,
	space *env.ActionSpace) (int, error) {
	if len(values) != space.N() {
		return 0, fmt.Errorf("selectAction: invalid number of action "+
			"values \n\twant(%v) \n\thave(%v)", space.N(), len(values))
	}
	if epsilon < 0 || epsilon > 1 {
		return 0, fmt.Errorf("selectAction: epsilon must be in [0, 1], "+
			"have(%v)", epsilon)
	}

	if epsilon > 0 && e.rng.Float64() < epsilon {
		return space.Sample(), nil
	}
	return Greedy(values), nil
}

// Greedy returns the first action of maximum value
func Greedy(values []float64) int {
	return floatutils.Argmax(values)
}

// Estimator is an epsilon greedy Policy over the action values of a
// ValueEstimator
type Estimator struct {
	agent.ValueEstimator
	rule *EGreedy
}

// NewEstimator returns a new epsilon greedy Policy which selects
// actions using the values predicted by estimator
func NewEstimator(estimator agent.ValueEstimator, seed uint64) *Estimator {
	return &Estimator{
		ValueEstimator: estimator,
		rule:           NewEGreedy(seed),
	}
}

// SelectAction selects an action in the state observed in obs
func (e *Estimator) SelectAction(obs *mat.VecDense, epsilon float64,
	space *env.ActionSpace) (int, error) {
	values, err := e.Estimate(obs.RawVector().Data)
	if err != nil {
		return 0, fmt.Errorf("selectAction: %w", err)
	}
	return e.rule.SelectAction(values, epsilon, space)
}
