package expreplay

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/sampleuv"
)

// Selector implements functionality for choosing which indices of an
// experience replay buffer should be sampled
type Selector interface {
	// Choose selects n indices in [0, size)
	Choose(n, size int) []int
}

// uniformSelector is a Selector which selects distinct indices
// uniformly at random
type uniformSelector struct {
	src rand.Source
}

// NewUniformSelector returns a new Selector which selects data
// uniformly at random without replacement
func NewUniformSelector(seed uint64) Selector {
	return &uniformSelector{src: rand.NewSource(seed)}
}

// Choose selects n distinct indices in [0, size). The caller must
// ensure n <= size.
func (u *uniformSelector) Choose(n, size int) []int {
	selected := make([]int, n)
	sampleuv.WithoutReplacement(selected, size, u.src)
	return selected
}
