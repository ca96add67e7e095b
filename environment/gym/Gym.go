// Package gym provides access to OpenAI Gym environments with discrete
// action spaces, such as LunarLander-v2 or BreakoutNoFrameskip-v4.
//
// This is made possible through the Go bindings for OpenAI Gym,
// found at https://github.com/samuelfneumann/GoGym. Importing this
// package registers the "Gym" prefix with package envconfig so that
// Gym environments can be named in configuration files as
// "Gym:<environment id>".
package gym

import (
	"fmt"

	env "github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/environment/envconfig"
	ts "github.com/samuelfneumann/godqn/timestep"
	"github.com/samuelfneumann/gogym"
	"gonum.org/v1/gonum/mat"
)

func init() {
	envconfig.Register("Gym", func(c envconfig.Config, id string,
		seed uint64) (env.Environment, error) {
		return New(id, c.ObservationShape, seed)
	})
}

// GymEnv implements access to an OpenAI Gym environment using GoGym
type GymEnv struct {
	gogym.Environment

	name        string
	shape       []int
	actions     *env.ActionSpace
	currentStep ts.TimeStep
}

// New returns a new GymEnv with the given name, which must be a legal
// name from the OpenAI Gym suite with a discrete action space. Gym
// flattens observations, so the unflattened observation shape may be
// given; if shape is empty observations are treated as vectors.
func New(name string, shape []int, seed uint64) (*GymEnv, error) {
	goGymEnv, err := gogym.Make(name)
	if err != nil {
		return nil, fmt.Errorf("new: could not create environment %v: %w",
			name, err)
	}

	space, ok := goGymEnv.ActionSpace().(*gogym.DiscreteSpace)
	if !ok {
		goGymEnv.Close()
		return nil, fmt.Errorf("new: environment %v does not have a "+
			"discrete action space", name)
	}
	numActions := int(space.High()[0].AtVec(0)) + 1

	features := goGymEnv.ObservationSpace().Low()[0].Len()
	if len(shape) == 0 {
		shape = []int{features}
	} else if prod(shape) != features {
		goGymEnv.Close()
		return nil, fmt.Errorf("new: observation shape %v does not match "+
			"observation size \n\twant(%v)\n\thave(%v)", shape, features,
			prod(shape))
	}

	g := &GymEnv{
		Environment: goGymEnv,
		name:        name,
		shape:       shape,
		actions:     env.NewActionSpace(numActions, seed),
	}
	g.Seed(seed)

	return g, nil
}

// Step takes a single environmental step
func (g *GymEnv) Step(a int) (ts.TimeStep, bool, error) {
	if !g.actions.Contains(a) {
		return ts.TimeStep{}, true, fmt.Errorf("step: illegal action %v "+
			"∉ %v", a, g.actions)
	}

	action := mat.NewVecDense(1, []float64{float64(a)})
	obs, reward, done, err := g.Environment.Step(action)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: could not step "+
			"GoGym environment: %w", err)
	}

	t := ts.New(ts.Mid, reward, obs, g.currentStep.Number+1)
	if done {
		t.StepType = ts.Last
	}
	g.currentStep = t

	return t, done, nil
}

// Reset resets the environment to some starting state
func (g *GymEnv) Reset() (ts.TimeStep, error) {
	obs, err := g.Environment.Reset()
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not reset "+
			"environment: %w", err)
	}

	t := ts.New(ts.First, 0, obs, 0)
	g.currentStep = t

	return t, nil
}

// Seed seeds the Gym environment and the action space
func (g *GymEnv) Seed(seed uint64) {
	g.Environment.Seed(int(seed))
	g.actions.Seed(seed)
}

// ActionSpace returns the discrete action space of the environment
func (g *GymEnv) ActionSpace() *env.ActionSpace {
	return g.actions
}

// ObservationSpec returns the observation spec of the environment
func (g *GymEnv) ObservationSpec() env.Spec {
	space := g.Environment.ObservationSpace()

	var low, high *mat.VecDense
	switch space.(type) {
	case *gogym.BoxSpace, *gogym.DiscreteSpace:
		low = space.Low()[0]
		high = space.High()[0]
	default:
		panic("observationSpec: invalid space type, package gym supports " +
			"only GoGym's BoxSpace or DiscreteSpace")
	}

	return env.NewSpec(g.shape, env.Observation, low, high, env.Continuous)
}

// Close performs resource cleanup after the environment is no longer
// needed
func (g *GymEnv) Close() error {
	g.Environment.Close()
	return nil
}

func (g *GymEnv) String() string {
	return fmt.Sprintf("Gym(%v)", g.name)
}

// Shutdown finalizes the Python interpreter used by GoGym. No Gym
// environments can be created after Shutdown is called.
func Shutdown() {
	gogym.Close()
}

func prod(shape []int) int {
	p := 1
	for _, s := range shape {
		p *= s
	}
	return p
}
