// Package cartpole implements the Cartpole classic control environment
package cartpole

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
	// Physical constants
	Gravity        float64 = 9.8
	CartMass       float64 = 1.0
	PoleMass       float64 = 0.1
	HalfPoleLength float64 = 0.5  // half of pole length
	ForceMag       float64 = 10.0 // Magnification of force applied
	Dt             float64 = 0.02 // seconds between state updates

	// Bounds (+/-) on state variables
	PositionBounds        float64 = 2.4
	SpeedBounds           float64 = math.MaxFloat64
	AngleBounds           float64 = math.Pi
	AngularVelocityBounds float64 = math.MaxFloat64

	// Discrete actions
	NumActions int = 3

	ObservationDims int = 4
)

// Cartpole implements the classic control environment Cartpole with
// discrete actions. In this environment, a pole is attached to a cart,
// which can move horizontally. Gravity pulls the pole downwards so that
// balancing it in an upright position is very difficult.
//
// The state features are continuous and consist of the cart's x
// position and speed, as well as the pole's angle from the positive
// y-axis and the pole's angular velocity. The position is clipped to
// the track and the pole's angle is normalized to (-π, π].
//
// Actions are discrete, consisting of the direction to apply
// horizontal force to the cart:
//
//	Action		Meaning
//	  0			Apply force left
//	  1			Do nothing
//	  2			Apply force right
//
// Illegal actions return an error.
type Cartpole struct {
	env.Task
	lastStep ts.TimeStep
	actions  *env.ActionSpace

	gravity        float64
	forceMag       float64
	poleMass       float64
	halfPoleLength float64
	cartMass       float64
	dt             float64

	positionBounds r1.Interval
	angleBounds    r1.Interval
}

// New constructs a new Cartpole environment. The seed seeds the
// environment's action space.
func New(t env.Task, seed uint64) *Cartpole {
	return &Cartpole{
		Task:           t,
		actions:        env.NewActionSpace(NumActions, seed),
		gravity:        Gravity,
		forceMag:       ForceMag,
		poleMass:       PoleMass,
		halfPoleLength: HalfPoleLength,
		cartMass:       CartMass,
		dt:             Dt,
		positionBounds: r1.Interval{Min: -PositionBounds, Max: PositionBounds},
		angleBounds:    r1.Interval{Min: -AngleBounds, Max: AngleBounds},
	}
}

// Reset resets the environment and returns a starting state drawn from
// the environment Starter
func (c *Cartpole) Reset() (ts.TimeStep, error) {
	state := c.Start()
	if state.Len() != ObservationDims {
		return ts.TimeStep{}, fmt.Errorf("reset: invalid starting state "+
			"\n\twant(%v)\n\thave(%v)", ObservationDims, state.Len())
	}

	c.lastStep = ts.New(ts.First, 0, state, 0)
	return c.lastStep, nil
}

// Seed reseeds the starting state distribution, if it can be reseeded,
// and the action space
func (c *Cartpole) Seed(seed uint64) {
	if s, ok := c.Task.(env.Seeder); ok {
		s.Seed(seed)
	}
	c.actions.Seed(seed)
}

// ActionSpace returns the discrete action space of the environment
func (c *Cartpole) ActionSpace() *env.ActionSpace {
	return c.actions
}

// ObservationSpec returns the observation specification of the
// environment
func (c *Cartpole) ObservationSpec() env.Spec {
	lower := mat.NewVecDense(ObservationDims, []float64{
		c.positionBounds.Min, -SpeedBounds, c.angleBounds.Min,
		-AngularVelocityBounds,
	})
	upper := mat.NewVecDense(ObservationDims, []float64{
		c.positionBounds.Max, SpeedBounds, c.angleBounds.Max,
		AngularVelocityBounds,
	})

	return env.NewSpec([]int{ObservationDims}, env.Observation, lower, upper,
		env.Continuous)
}

// Step takes one environmental step given action a and returns the next
// timestep and a bool indicating whether or not the episode has ended
func (c *Cartpole) Step(a int) (ts.TimeStep, bool, error) {
	if !c.actions.Contains(a) {
		return ts.TimeStep{}, true, fmt.Errorf("step: illegal action %v "+
			"∉ %v", a, c.actions)
	}
	if c.lastStep.Observation == nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: environment must " +
			"be reset before stepping")
	}

	// Convert action (0, 1, 2) to a direction (-1, 0, 1)
	direction := float64(a - 1)

	state := c.lastStep.Observation
	nextState := c.nextState(state, direction)

	reward := c.GetReward(state, nextState)
	nextStep := ts.New(ts.Mid, reward, nextState, c.lastStep.Number+1)

	// Check if the step ends the episode
	c.End(&nextStep)

	c.lastStep = nextStep
	return nextStep, nextStep.Last(), nil
}

// nextState computes the state following state when force is applied
// in the given direction
func (c *Cartpole) nextState(state *mat.VecDense,
	direction float64) *mat.VecDense {
	x, xDot := state.AtVec(0), state.AtVec(1)
	th, thDot := state.AtVec(2), state.AtVec(3)

	force := direction * c.forceMag

	cosTheta := math.Cos(th)
	sinTheta := math.Sin(th)

	totalMass := c.poleMass + c.cartMass
	poleMassLength := c.poleMass * c.halfPoleLength

	temp := (force + poleMassLength*thDot*thDot*sinTheta) / totalMass
	thAcc := (c.gravity*sinTheta - cosTheta*temp) / (c.halfPoleLength *
		(4.0/3.0 - c.poleMass*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thAcc*cosTheta/totalMass

	// Euler kinematic integration
	x += c.dt * xDot
	xDot += c.dt * xAcc
	if x < c.positionBounds.Min || x > c.positionBounds.Max {
		xDot = 0
	}
	x = floatutils.ClipInterval(x, c.positionBounds)

	th += c.dt * thDot
	th = normalizeAngle(th, c.angleBounds)
	thDot += c.dt * thAcc

	return mat.NewVecDense(ObservationDims, []float64{x, xDot, th, thDot})
}

// Render draws the cart and pole onto dc. The track spans the width of
// the context.
func (c *Cartpole) Render(dc *gg.Context) {
	width, height := float64(dc.Width()), float64(dc.Height())
	scale := width / (c.positionBounds.Max - c.positionBounds.Min)

	dc.SetRGB(1, 1, 1)
	dc.Clear()

	if c.lastStep.Observation == nil {
		return
	}
	state := c.lastStep.Observation

	cartX := (state.AtVec(0) - c.positionBounds.Min) * scale
	cartY := height * 0.75
	cartW, cartH := width/8, height/16

	dc.SetRGB(0, 0, 0)
	dc.DrawRectangle(cartX-cartW/2, cartY-cartH/2, cartW, cartH)
	dc.Fill()

	poleLength := 2 * c.halfPoleLength * scale
	th := state.AtVec(2)
	dc.SetLineWidth(math.Max(1, width/40))
	dc.DrawLine(cartX, cartY, cartX+poleLength*math.Sin(th),
		cartY-poleLength*math.Cos(th))
	dc.Stroke()
}

func (c *Cartpole) String() string {
	if c.lastStep.Observation == nil {
		return "Cartpole"
	}
	msg := "Cartpole  |  Position: %v  | Speed: %v  |  Angle: %v" +
		"  |  Angular Velocity: %v"

	state := c.lastStep.Observation
	position, speed := state.AtVec(0), state.AtVec(1)
	angle, velocity := state.AtVec(2), state.AtVec(3)

	return fmt.Sprintf(msg, position, speed, angle, velocity)
}

// normalizeAngle normalizes the pole angle to the appropriate limits
func normalizeAngle(th float64, angleBounds r1.Interval) float64 {
	if angleBounds.Max != -angleBounds.Min {
		panic("normalizeAngle: angle bounds should be centered around 0")
	}

	if th > angleBounds.Max {
		divisor := int(th / angleBounds.Max)
		return -math.Pi + th - (angleBounds.Max * float64(divisor))
	} else if th < angleBounds.Min {
		divisor := int(th / angleBounds.Min)
		return math.Pi + th - (angleBounds.Min * float64(divisor))
	}
	return th
}
