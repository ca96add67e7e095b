// Package mountaincar implements the discrete action classic control
// environment Mountain Car
package mountaincar

import (
	"fmt"
	"math"

	"github.com/fogleman/gg"
	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
	"github.com/samuelfneumann/godqn/utils/floatutils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

const (
	MinPosition float64 = -1.2
	MaxPosition float64 = 0.6
	MaxSpeed    float64 = 0.07
	Power       float64 = 0.0015 // Engine power
	Gravity     float64 = 0.0025

	NumActions      int = 3
	ObservationDims int = 2
)

// MountainCar implements the classic control Mountain Car environment.
// In this environment, the agent controls a car in a valley between two
// hills. The car is underpowered and cannot drive up the hill unless
// it rocks back and forth from hill to hill, using its momentum to
// gradually climb higher.
//
// State features consist of the x position of the car and its velocity.
// Upon reaching the minimum position, the velocity of the car is set
// to 0.
//
// Actions determine in which direction to apply full accelerating
// force to the car:
//
//	Action	Meaning
//	  0		Accelerate left
//	  1		Do nothing
//	  2		Accelerate right
//
// Illegal actions return an error.
type MountainCar struct {
	env.Task
	lastStep ts.TimeStep
	actions  *env.ActionSpace

	positionBounds r1.Interval
	speedBounds    r1.Interval
	power          float64
	gravity        float64
}

// New returns a new MountainCar environment. The seed seeds the
// environment's action space.
func New(t env.Task, seed uint64) *MountainCar {
	return &MountainCar{
		Task:           t,
		actions:        env.NewActionSpace(NumActions, seed),
		positionBounds: r1.Interval{Min: MinPosition, Max: MaxPosition},
		speedBounds:    r1.Interval{Min: -MaxSpeed, Max: MaxSpeed},
		power:          Power,
		gravity:        Gravity,
	}
}

// Reset resets the environment and returns a starting state drawn from
// the environment Starter
func (m *MountainCar) Reset() (ts.TimeStep, error) {
	state := m.Start()
	if err := m.validate(state); err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
	}

	m.lastStep = ts.New(ts.First, 0, state, 0)
	return m.lastStep, nil
}

// Seed reseeds the starting state distribution, if it can be reseeded,
// and the action space
func (m *MountainCar) Seed(seed uint64) {
	if s, ok := m.Task.(env.Seeder); ok {
		s.Seed(seed)
	}
	m.actions.Seed(seed)
}

// ActionSpace returns the discrete action space of the environment
func (m *MountainCar) ActionSpace() *env.ActionSpace {
	return m.actions
}

// ObservationSpec returns the observation specification of the
// environment
func (m *MountainCar) ObservationSpec() env.Spec {
	lower := mat.NewVecDense(ObservationDims, []float64{
		m.positionBounds.Min, m.speedBounds.Min,
	})
	upper := mat.NewVecDense(ObservationDims, []float64{
		m.positionBounds.Max, m.speedBounds.Max,
	})

	return env.NewSpec([]int{ObservationDims}, env.Observation, lower, upper,
		env.Continuous)
}

// Step takes one environmental step given action a and returns the next
// timestep and a bool indicating whether or not the episode has ended
func (m *MountainCar) Step(a int) (ts.TimeStep, bool, error) {
	if !m.actions.Contains(a) {
		return ts.TimeStep{}, true, fmt.Errorf("step: illegal action %v "+
			"∉ %v", a, m.actions)
	}
	if m.lastStep.Observation == nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: environment must " +
			"be reset before stepping")
	}

	state := m.lastStep.Observation
	nextState := m.nextState(state, float64(a-1))

	reward := m.GetReward(state, nextState)
	nextStep := ts.New(ts.Mid, reward, nextState, m.lastStep.Number+1)
	m.End(&nextStep)

	m.lastStep = nextStep
	return nextStep, nextStep.Last(), nil
}

// nextState computes the state following state when the engine pushes
// in the given direction
func (m *MountainCar) nextState(state *mat.VecDense,
	direction float64) *mat.VecDense {
	position, velocity := state.AtVec(0), state.AtVec(1)

	velocity += direction*m.power - m.gravity*math.Cos(3*position)
	velocity = floatutils.ClipInterval(velocity, m.speedBounds)

	position += velocity
	position = floatutils.ClipInterval(position, m.positionBounds)
	if position <= m.positionBounds.Min && velocity < 0 {
		velocity = 0
	}

	return mat.NewVecDense(ObservationDims, []float64{position, velocity})
}

// Render draws the hill and the car onto dc
func (m *MountainCar) Render(dc *gg.Context) {
	width, height := float64(dc.Width()), float64(dc.Height())
	scale := width / (m.positionBounds.Max - m.positionBounds.Min)

	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// The hill is the curve y = sin(3x)
	hill := func(x float64) float64 {
		return height * (0.55 - 0.4*math.Sin(3*x))
	}
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(math.Max(1, width/60))
	for i := 0.0; i < width; i++ {
		x := m.positionBounds.Min + i/scale
		dc.LineTo(i, hill(x))
	}
	dc.Stroke()

	if m.lastStep.Observation == nil {
		return
	}
	x := m.lastStep.Observation.AtVec(0)
	dc.DrawCircle((x-m.positionBounds.Min)*scale, hill(x), width/16)
	dc.Fill()
}

func (m *MountainCar) String() string {
	if m.lastStep.Observation == nil {
		return "MountainCar"
	}
	state := m.lastStep.Observation
	return fmt.Sprintf("MountainCar  |  Position: %v  |  Speed: %v",
		state.AtVec(0), state.AtVec(1))
}

// validate checks that the position and speed of a state are within
// the environmental limits
func (m *MountainCar) validate(s *mat.VecDense) error {
	if s.Len() != ObservationDims {
		return fmt.Errorf("invalid starting state \n\twant(%v)\n\thave(%v)",
			ObservationDims, s.Len())
	}
	if position := s.AtVec(0); !contains(m.positionBounds, position) {
		return fmt.Errorf("illegal position %v ∉ [%v, %v]", position,
			m.positionBounds.Min, m.positionBounds.Max)
	}
	if speed := s.AtVec(1); !contains(m.speedBounds, speed) {
		return fmt.Errorf("illegal speed %v ∉ [%v, %v]", speed,
			m.speedBounds.Min, m.speedBounds.Max)
	}
	return nil
}

func contains(i r1.Interval, x float64) bool {
	return x >= i.Min && x <= i.Max
}
