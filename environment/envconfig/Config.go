// Package envconfig provides JSON serializable configurations of
// environments together with the preprocessing wrappers each value
// estimator needs. Environments are looked up by name in a registry;
// the built-in Cartpole and MountainCar are always available and other packages, such
// as package gym, register themselves on import.
package envconfig

import (
	"fmt"
	"strings"
	"sync"

	env "github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/godqn/environment/classiccontrol/mountaincar"
	"github.com/samuelfneumann/godqn/environment/wrappers"
	"gonum.org/v1/gonum/spatial/r1"
)

// Names of the built-in environments
const (
	Cartpole    = "Cartpole"
	MountainCar = "MountainCar"
)

// FireAction is the action taken after each reset when FireOnReset
// is set
const FireAction = 1

// Factory creates an environment. The id is the part of the configured
// name following the registered prefix and a colon, or the empty
// string if there is none.
type Factory func(c Config, id string, seed uint64) (env.Environment, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		Cartpole:    createCartpole,
		MountainCar: createMountainCar,
	}
)

// Register registers a Factory under the given name prefix
func Register(prefix string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, ok := registry[prefix]; ok {
		panic(fmt.Sprintf("register: factory %v already registered", prefix))
	}
	registry[prefix] = f
}

// PixelConfig configures image observations: each observation is a
// grey-scale Width x Height frame, and the last Stack frames are
// stacked channel-first.
type PixelConfig struct {
	Width  int
	Height int
	Stack  int
}

// Config implements a specific configuration of a specific environment
type Config struct {
	// Name is the environment name, either a registered name or
	// "Prefix:id", e.g. "Gym:LunarLander-v2"
	Name string

	// EpisodeCutoff is the maximum number of steps in an episode of the
	// built-in environments, 0 disables the cutoff
	EpisodeCutoff int

	// ObservationShape is the unflattened observation shape of external
	// environments which flatten their observations, e.g. [210, 160, 3]
	ObservationShape []int `json:",omitempty"`

	// FireOnReset takes the FIRE action after every reset
	FireOnReset bool `json:",omitempty"`

	// Pixels turns on image observations when non-nil
	Pixels *PixelConfig `json:",omitempty"`
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("validate: environment name must be given")
	}
	if c.EpisodeCutoff < 0 {
		return fmt.Errorf("validate: episode cutoff must be non-negative, "+
			"have(%v)", c.EpisodeCutoff)
	}
	if p := c.Pixels; p != nil {
		if p.Width < 1 || p.Height < 1 || p.Stack < 1 {
			return fmt.Errorf("validate: pixel width, height, and stack "+
				"must be positive, have(%v, %v, %v)", p.Width, p.Height,
				p.Stack)
		}
	}
	return nil
}

// Create returns the environment described by the Config, wrapped in
// the preprocessing that the Config asks for
func (c Config) Create(seed uint64) (env.Environment, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	prefix, id := c.Name, ""
	if i := strings.Index(c.Name, ":"); i >= 0 {
		prefix, id = c.Name[:i], c.Name[i+1:]
	}

	registryMu.RLock()
	factory, ok := registry[prefix]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("create: cannot create environment %v, no "+
			"such environment", c.Name)
	}

	e, err := factory(c, id, seed)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	if c.Pixels != nil {
		if e, err = c.pixels(e); err != nil {
			return nil, fmt.Errorf("create: %w", err)
		}
	}

	if c.FireOnReset {
		if e, err = wrappers.NewFireReset(e, FireAction); err != nil {
			return nil, fmt.Errorf("create: %w", err)
		}
	}

	if c.Pixels == nil {
		return e, nil
	}
	return wrappers.NewFrameStack(e, c.Pixels.Stack)
}

// pixels wraps e so that its observations are grey-scale frames
func (c Config) pixels(e env.Environment) (env.Environment, error) {
	var err error

	switch shape := e.ObservationSpec().Shape; {
	case len(shape) == 3:
		// Images from external environments come in HWC order
		if e, err = wrappers.NewPermute(e); err != nil {
			return nil, fmt.Errorf("pixels: %w", err)
		}
		if e, err = wrappers.NewResize(e, c.Pixels.Width,
			c.Pixels.Height); err != nil {
			return nil, fmt.Errorf("pixels: %w", err)
		}

	default:
		r, ok := e.(env.Renderer)
		if !ok {
			return nil, fmt.Errorf("pixels: environment %v cannot be "+
				"rendered", c.Name)
		}
		if e, err = wrappers.NewPixels(r, c.Pixels.Width,
			c.Pixels.Height); err != nil {
			return nil, fmt.Errorf("pixels: %w", err)
		}
	}

	return e, nil
}

// createCartpole is a factory for creating the Cartpole environment
// with default physical parameters and the Balance task
func createCartpole(c Config, _ string, seed uint64) (env.Environment,
	error) {
	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	s := env.NewUniformStarter([]r1.Interval{
		bounds,
		bounds,
		bounds,
		bounds,
	}, seed)

	task := cartpole.NewBalance(s, c.EpisodeCutoff, cartpole.FailAngle)
	return cartpole.New(task, seed), nil
}

// createMountainCar is a factory for creating the MountainCar
// environment with the Goal task
func createMountainCar(c Config, _ string, seed uint64) (env.Environment,
	error) {
	s := env.NewUniformStarter([]r1.Interval{
		{Min: -0.6, Max: -0.4},
		{Min: 0, Max: 0},
	}, seed)

	task := mountaincar.NewGoal(s, c.EpisodeCutoff, mountaincar.GoalPosition)
	return mountaincar.New(task, seed), nil
}
