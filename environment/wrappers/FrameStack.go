package wrappers

import (
	"fmt"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
	"gonum.org/v1/gonum/mat"
)

// FrameStack stacks the last k observations of an environment along
// the leading (channel) axis. An environment with observations of
// shape [C, H, W] becomes one with observations of shape [k*C, H, W],
// ordered from oldest to newest frame.
//
// On reset the stack is filled with copies of the first observation.
type FrameStack struct {
	env.Environment
	k      int
	shape  []int
	frame  int
	frames [][]float64
}

// NewFrameStack returns a new FrameStack of k frames
func NewFrameStack(e env.Environment, k int) (*FrameStack, error) {
	if k < 1 {
		return nil, fmt.Errorf("newFrameStack: k must be positive, "+
			"have(%v)", k)
	}

	shape := e.ObservationSpec().Shape
	if len(shape) == 0 {
		return nil, fmt.Errorf("newFrameStack: cannot stack " +
			"observations with empty shape")
	}

	stacked := append([]int{shape[0] * k}, shape[1:]...)
	return &FrameStack{
		Environment: e,
		k:           k,
		shape:       stacked,
		frame:       e.ObservationSpec().Features(),
	}, nil
}

// Reset resets the wrapped environment and fills the stack with its
// first observation
func (f *FrameStack) Reset() (ts.TimeStep, error) {
	step, err := f.Environment.Reset()
	if err != nil {
		return step, fmt.Errorf("reset: could not reset wrapped "+
			"environment: %w", err)
	}

	if err := f.check(step.Observation); err != nil {
		return step, fmt.Errorf("reset: %w", err)
	}

	first := step.Observation.RawVector().Data
	f.frames = f.frames[:0]
	for i := 0; i < f.k; i++ {
		f.frames = append(f.frames, append([]float64(nil), first...))
	}

	step.Observation = f.stack()
	return step, nil
}

// Step steps the wrapped environment and pushes its observation onto
// the stack
func (f *FrameStack) Step(a int) (ts.TimeStep, bool, error) {
	if len(f.frames) == 0 {
		return ts.TimeStep{}, true, fmt.Errorf("step: environment must " +
			"be reset before stepping")
	}

	step, done, err := f.Environment.Step(a)
	if err != nil {
		return step, done, fmt.Errorf("step: could not step wrapped "+
			"environment: %w", err)
	}
	if err := f.check(step.Observation); err != nil {
		return step, done, fmt.Errorf("step: %w", err)
	}

	f.frames = append(f.frames[1:],
		append([]float64(nil), step.Observation.RawVector().Data...))

	step.Observation = f.stack()
	return step, done, nil
}

// ObservationSpec returns the observation specification of the
// environment
func (f *FrameStack) ObservationSpec() env.Spec {
	inner := f.Environment.ObservationSpec()
	spec := env.Spec{
		Shape:       f.shape,
		Type:        env.Observation,
		Cardinality: inner.Cardinality,
	}

	if inner.LowerBound != nil && inner.UpperBound != nil {
		spec.LowerBound = repeat(inner.LowerBound, f.k)
		spec.UpperBound = repeat(inner.UpperBound, f.k)
	}
	return spec
}

// Seed seeds the wrapped environment if it can be seeded
func (f *FrameStack) Seed(seed uint64) {
	if s, ok := f.Environment.(env.Seeder); ok {
		s.Seed(seed)
	}
}

func (f *FrameStack) check(obs *mat.VecDense) error {
	if obs.Len() != f.frame {
		return fmt.Errorf("invalid frame size \n\twant(%v)\n\thave(%v)",
			f.frame, obs.Len())
	}
	return nil
}

func (f *FrameStack) stack() *mat.VecDense {
	data := make([]float64, 0, f.k*f.frame)
	for _, frame := range f.frames {
		data = append(data, frame...)
	}
	return mat.NewVecDense(len(data), data)
}

func repeat(v *mat.VecDense, k int) *mat.VecDense {
	data := make([]float64, 0, v.Len()*k)
	for i := 0; i < k; i++ {
		data = append(data, v.RawVector().Data...)
	}
	return mat.NewVecDense(len(data), data)
}
