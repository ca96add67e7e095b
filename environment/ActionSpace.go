package environment

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// ActionSpace is a discrete set of actions {0, 1, ..., N-1} which can
// be uniformly sampled from
type ActionSpace struct {
	n    int
	seed uint64
	rng  *rand.Rand
}

// NewActionSpace returns a new ActionSpace of n actions
func NewActionSpace(n int, seed uint64) *ActionSpace {
	if n < 1 {
		panic(fmt.Sprintf("newActionSpace: need at least one action, "+
			"have(%v)", n))
	}

	return &ActionSpace{
		n:    n,
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// N returns the number of actions
func (a *ActionSpace) N() int {
	return a.n
}

// Sample returns an action drawn uniformly at random
func (a *ActionSpace) Sample() int {
	return a.rng.Intn(a.n)
}

// Contains returns whether action is a legal action
func (a *ActionSpace) Contains(action int) bool {
	return action >= 0 && action < a.n
}

// Seed reseeds the sampler
func (a *ActionSpace) Seed(seed uint64) {
	a.seed = seed
	a.rng.Seed(seed)
}

// Spec returns the action specification of the space
func (a *ActionSpace) Spec() Spec {
	return Spec{
		Shape:       []int{1},
		Type:        Action,
		Cardinality: Discrete,
	}
}

func (a *ActionSpace) String() string {
	return fmt.Sprintf("Discrete(%v)", a.n)
}
