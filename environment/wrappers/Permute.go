package wrappers

import (
	"fmt"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
	"gonum.org/v1/gonum/mat"
)

// HWCToCHW permutes a row-major image of shape [h, w, c] into
// channel-first order [c, h, w]
func HWCToCHW(data []float64, h, w, c int) []float64 {
	if len(data) != h*w*c {
		panic(fmt.Sprintf("hwcToCHW: invalid image size \n\twant(%v)"+
			"\n\thave(%v)", h*w*c, len(data)))
	}

	out := make([]float64, len(data))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for ch := 0; ch < c; ch++ {
				out[ch*h*w+y*w+x] = data[(y*w+x)*c+ch]
			}
		}
	}
	return out
}

// Permute wraps an environment whose observations are images of shape
// [H, W, C] and returns them in channel-first order [C, H, W]
type Permute struct {
	env.Environment
	h, w, c int
}

// NewPermute returns a new Permute wrapper
func NewPermute(e env.Environment) (*Permute, error) {
	shape := e.ObservationSpec().Shape
	if len(shape) != 3 {
		return nil, fmt.Errorf("newPermute: observations must have "+
			"shape [H, W, C], have(%v)", shape)
	}

	return &Permute{e, shape[0], shape[1], shape[2]}, nil
}

// Reset resets the wrapped environment
func (p *Permute) Reset() (ts.TimeStep, error) {
	step, err := p.Environment.Reset()
	if err != nil {
		return step, fmt.Errorf("reset: could not reset wrapped "+
			"environment: %w", err)
	}

	step.Observation = p.permute(step.Observation)
	return step, nil
}

// Step steps the wrapped environment
func (p *Permute) Step(a int) (ts.TimeStep, bool, error) {
	step, done, err := p.Environment.Step(a)
	if err != nil {
		return step, done, fmt.Errorf("step: could not step wrapped "+
			"environment: %w", err)
	}

	step.Observation = p.permute(step.Observation)
	return step, done, nil
}

// ObservationSpec returns the observation specification of the
// environment
func (p *Permute) ObservationSpec() env.Spec {
	inner := p.Environment.ObservationSpec()
	spec := env.Spec{
		Shape:       []int{p.c, p.h, p.w},
		Type:        env.Observation,
		Cardinality: inner.Cardinality,
	}

	if inner.LowerBound != nil && inner.UpperBound != nil {
		spec.LowerBound = p.permute(inner.LowerBound)
		spec.UpperBound = p.permute(inner.UpperBound)
	}
	return spec
}

// Seed seeds the wrapped environment if it can be seeded
func (p *Permute) Seed(seed uint64) {
	if s, ok := p.Environment.(env.Seeder); ok {
		s.Seed(seed)
	}
}

func (p *Permute) permute(obs *mat.VecDense) *mat.VecDense {
	data := HWCToCHW(obs.RawVector().Data, p.h, p.w, p.c)
	return mat.NewVecDense(len(data), data)
}
