package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ClipByGlobalNorm scales grads in place so that their global L2 norm,
// the norm of all gradients concatenated, is at most maxNorm. The norm
// before clipping is returned. A maxNorm <= 0 disables clipping.
func ClipByGlobalNorm(grads [][]float64, maxNorm float64) float64 {
	var sumSq float64
	for _, g := range grads {
		n := floats.Norm(g, 2)
		sumSq += n * n
	}
	norm := math.Sqrt(sumSq)

	if maxNorm > 0 && norm > maxNorm {
		scale := maxNorm / norm
		for _, g := range grads {
			floats.Scale(scale, g)
		}
	}
	return norm
}

// ClipModel clips the gradients of model, which must have been
// computed by running its graph, to a global L2 norm of at most maxNorm
// and returns the norm before clipping
func ClipModel(model []G.ValueGrad, maxNorm float64) (float64, error) {
	grads := make([][]float64, len(model))

	for i, vg := range model {
		grad, err := vg.Grad()
		if err != nil {
			return 0, fmt.Errorf("clipModel: could not get gradient %v: %w",
				i, err)
		}

		dense, ok := grad.(*tensor.Dense)
		if !ok {
			return 0, fmt.Errorf("clipModel: gradient %v is not a dense "+
				"tensor, have(%T)", i, grad)
		}
		grads[i] = dense.Data().([]float64)
	}

	return ClipByGlobalNorm(grads, maxNorm), nil
}
