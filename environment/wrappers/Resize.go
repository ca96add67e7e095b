package wrappers

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
	"gonum.org/v1/gonum/mat"
)

// Resize wraps an environment whose observations are channel-first
// images of shape [C, H, W] with C either 1 (grey-scale) or 3 (RGB)
// and returns grey-scale frames of shape [1, height, width]. This is
// the usual Atari preprocessing applied before frame stacking.
type Resize struct {
	env.Environment
	c, h, w       int
	height, width int
	dc            *gg.Context
}

// NewResize returns a new Resize wrapper
func NewResize(e env.Environment, width, height int) (*Resize, error) {
	shape := e.ObservationSpec().Shape
	if len(shape) != 3 || (shape[0] != 1 && shape[0] != 3) {
		return nil, fmt.Errorf("newResize: observations must have shape "+
			"[1|3, H, W], have(%v)", shape)
	}
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("newResize: frame must be at least 1x1, "+
			"have(%vx%v)", width, height)
	}

	return &Resize{
		Environment: e,
		c:           shape[0],
		h:           shape[1],
		w:           shape[2],
		height:      height,
		width:       width,
		dc:          gg.NewContext(width, height),
	}, nil
}

// Reset resets the wrapped environment
func (r *Resize) Reset() (ts.TimeStep, error) {
	step, err := r.Environment.Reset()
	if err != nil {
		return step, fmt.Errorf("reset: could not reset wrapped "+
			"environment: %w", err)
	}

	step.Observation = r.resize(step.Observation)
	return step, nil
}

// Step steps the wrapped environment
func (r *Resize) Step(a int) (ts.TimeStep, bool, error) {
	step, done, err := r.Environment.Step(a)
	if err != nil {
		return step, done, fmt.Errorf("step: could not step wrapped "+
			"environment: %w", err)
	}

	step.Observation = r.resize(step.Observation)
	return step, done, nil
}

// ObservationSpec returns the observation specification of the
// environment
func (r *Resize) ObservationSpec() env.Spec {
	features := r.width * r.height
	lower := mat.NewVecDense(features, nil)
	upper := mat.NewVecDense(features, nil)
	for i := 0; i < features; i++ {
		upper.SetVec(i, 255)
	}

	return env.NewSpec([]int{1, r.height, r.width}, env.Observation, lower,
		upper, env.Continuous)
}

// Seed seeds the wrapped environment if it can be seeded
func (r *Resize) Seed(seed uint64) {
	if s, ok := r.Environment.(env.Seeder); ok {
		s.Seed(seed)
	}
}

func (r *Resize) resize(obs *mat.VecDense) *mat.VecDense {
	src := r.image(obs.RawVector().Data)

	r.dc.Push()
	r.dc.SetRGB(0, 0, 0)
	r.dc.Clear()
	r.dc.Scale(float64(r.width)/float64(r.w),
		float64(r.height)/float64(r.h))
	r.dc.DrawImage(src, 0, 0)
	r.dc.Pop()

	return mat.NewVecDense(r.width*r.height, gray(r.dc.Image()))
}

// image converts channel-first data in [0, 255] to an image
func (r *Resize) image(data []float64) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, r.w, r.h))
	plane := r.h * r.w

	for y := 0; y < r.h; y++ {
		for x := 0; x < r.w; x++ {
			i := y*r.w + x
			red := toUint8(data[i])
			green, blue := red, red
			if r.c == 3 {
				green = toUint8(data[plane+i])
				blue = toUint8(data[2*plane+i])
			}
			img.SetRGBA(x, y, color.RGBA{red, green, blue, 255})
		}
	}
	return img
}

func toUint8(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
