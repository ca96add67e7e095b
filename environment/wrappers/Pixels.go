// Package wrappers implements environment wrappers which adapt the
// observations of an environment for a particular value estimator,
// such as rasterising an environment to pixels and stacking frames.
package wrappers

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
	"gonum.org/v1/gonum/mat"
)

// Pixels wraps an environment that can render itself and replaces its
// observations with grey-scale frames of the rendered environment.
// Observations have shape [1, height, width] and values in [0, 255].
type Pixels struct {
	env.Renderer
	dc            *gg.Context
	width, height int
}

// NewPixels returns a new Pixels wrapper producing width x height frames
func NewPixels(e env.Renderer, width, height int) (*Pixels, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("newPixels: frame must be at least 1x1, "+
			"have(%vx%v)", width, height)
	}

	return &Pixels{
		Renderer: e,
		dc:       gg.NewContext(width, height),
		width:    width,
		height:   height,
	}, nil
}

// Reset resets the wrapped environment and returns its rendered
// starting state
func (p *Pixels) Reset() (ts.TimeStep, error) {
	step, err := p.Renderer.Reset()
	if err != nil {
		return step, fmt.Errorf("reset: could not reset wrapped "+
			"environment: %w", err)
	}

	step.Observation = p.frame()
	return step, nil
}

// Step takes a step in the wrapped environment and returns the
// rendered next state
func (p *Pixels) Step(a int) (ts.TimeStep, bool, error) {
	step, done, err := p.Renderer.Step(a)
	if err != nil {
		return step, done, fmt.Errorf("step: could not step wrapped "+
			"environment: %w", err)
	}

	step.Observation = p.frame()
	return step, done, nil
}

// ObservationSpec returns the observation specification of the
// environment
func (p *Pixels) ObservationSpec() env.Spec {
	features := p.width * p.height
	lower := mat.NewVecDense(features, nil)
	upper := mat.NewVecDense(features, nil)
	for i := 0; i < features; i++ {
		upper.SetVec(i, 255)
	}

	return env.NewSpec([]int{1, p.height, p.width}, env.Observation, lower,
		upper, env.Continuous)
}

// Seed seeds the wrapped environment if it can be seeded
func (p *Pixels) Seed(seed uint64) {
	if s, ok := p.Renderer.(env.Seeder); ok {
		s.Seed(seed)
	}
}

func (p *Pixels) frame() *mat.VecDense {
	p.Renderer.Render(p.dc)
	return mat.NewVecDense(p.width*p.height, gray(p.dc.Image()))
}

// gray converts img to a row-major slice of grey-scale intensities
// in [0, 255]
func gray(img image.Image) []float64 {
	bounds := img.Bounds()
	data := make([]float64, 0, bounds.Dx()*bounds.Dy())

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			data = append(data, float64(g.Y))
		}
	}
	return data
}
