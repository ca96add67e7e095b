package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// ArchType determines which kind of network an Arch builds
type ArchType string

const (
	MLP  ArchType = "MLP"
	Conv ArchType = "Conv"
)

// Arch is a JSON serializable description of a network architecture.
// The input and output sizes are not part of the architecture; they
// are given by the environment when the network is built.
//
// An MLP has len(HiddenSizes) hidden layers followed by a final linear
// layer. A Conv network has the convolutional layers of Conv, each
// followed by a ReLU, then the hidden layers of an MLP.
type Arch struct {
	Type        ArchType
	Conv        []ConvLayer `json:",omitempty"`
	HiddenSizes []int
	Biases      []bool
	Activations []*Activation

	// InputScale multiplies every input before the forward pass, e.g.
	// 1/255 for pixel intensities. Zero means no scaling.
	InputScale float64 `json:",omitempty"`
}

// Build creates the network described by the Arch in graph g, for
// inputs of shape [batch, inputShape...] and outputs outputs.
func (a Arch) Build(g *G.ExprGraph, inputShape []int, batch, outputs int,
	init G.InitWFn) (NeuralNet, error) {
	if batch < 1 || outputs < 1 {
		return nil, fmt.Errorf("build: batch size and outputs must be "+
			"positive, have(%v, %v)", batch, outputs)
	}

	switch a.Type {
	case MLP:
		return newMultiHeadMLP(g, a, inputShape, batch, outputs, init)

	case Conv:
		return newConvNet(g, a, inputShape, batch, outputs, init)
	}

	return nil, fmt.Errorf("build: unknown architecture type %q", a.Type)
}

// Validate checks an Arch for errors
func (a Arch) Validate() error {
	if a.Type != MLP && a.Type != Conv {
		return fmt.Errorf("validate: unknown architecture type %q", a.Type)
	}
	if a.Type == Conv && len(a.Conv) == 0 {
		return fmt.Errorf("validate: convolutional architecture needs " +
			"convolutional layers")
	}
	if a.InputScale < 0 {
		return fmt.Errorf("validate: input scale must be non-negative, "+
			"have(%v)", a.InputScale)
	}
	return a.validateHidden()
}

func (a Arch) validateHidden() error {
	if len(a.HiddenSizes) != len(a.Activations) {
		return fmt.Errorf("invalid number of activations\n\twant(%d)"+
			"\n\thave(%d)", len(a.HiddenSizes), len(a.Activations))
	}
	if len(a.HiddenSizes) != len(a.Biases) {
		return fmt.Errorf("invalid number of biases\n\twant(%d)"+
			"\n\thave(%d)", len(a.HiddenSizes), len(a.Biases))
	}
	for i, size := range a.HiddenSizes {
		if size < 1 {
			return fmt.Errorf("invalid size %v of hidden layer %v", size, i)
		}
	}
	return nil
}

// withOutputLayer returns the hidden layer description with the final
// linear output layer appended
func (a Arch) withOutputLayer(outputs int) ([]int, []bool, []*Activation) {
	hiddenSizes := append(append([]int(nil), a.HiddenSizes...), outputs)
	biases := append(append([]bool(nil), a.Biases...), true)
	activations := append(append([]*Activation(nil), a.Activations...),
		Identity())

	return hiddenSizes, biases, activations
}

// NewMLPArch returns the architecture of an MLP with ReLU hidden
// layers with biases
func NewMLPArch(hiddenSizes ...int) Arch {
	return Arch{
		Type:        MLP,
		HiddenSizes: hiddenSizes,
		Biases:      repeatBool(true, len(hiddenSizes)),
		Activations: reLUs(len(hiddenSizes)),
	}
}

// NatureArch returns the convolutional architecture of the DQN Nature
// paper for 84x84 frames: 32 8x8 filters with stride 4, 64 4x4 filters
// with stride 2, 64 3x3 filters with stride 1, and a 512 unit hidden
// layer. Pixel intensities are scaled to [0, 1].
func NatureArch() Arch {
	return Arch{
		Type: Conv,
		Conv: []ConvLayer{
			{Filters: 32, Kernel: 8, Stride: 4},
			{Filters: 64, Kernel: 4, Stride: 2},
			{Filters: 64, Kernel: 3, Stride: 1},
		},
		HiddenSizes: []int{512},
		Biases:      []bool{true},
		Activations: reLUs(1),
		InputScale:  1.0 / 255.0,
	}
}

func reLUs(n int) []*Activation {
	acts := make([]*Activation, n)
	for i := range acts {
		acts[i] = ReLU()
	}
	return acts
}

func repeatBool(b bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = b
	}
	return out
}
