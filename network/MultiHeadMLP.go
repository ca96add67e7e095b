package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// multiHeadMLP implements a multi-layered perceptron with multiple
// output nodes, one for each value that should be predicted, e.g. one
// action value per action.
type multiHeadMLP struct {
	*base
	layers []*fcLayer
}

// NewMultiHeadMLP creates and returns a new multi-layered perceptron
// that has multiple output nodes. The number of outputs nodes is equal
// to outputs. The graph parameter g is populated with the MLP.
//
// The MLP has number of layers equal to len(hiddenSizes) + 1. A final
// linear layer with a bias unit is always added such that given any
// input, the output will be outputs. The function works such that for
// index i, hiddenSizes[i] is the number of nodes in hidden layer i;
// biases[i] is true if the hidden layer will contain a bias unit; and
// activations[i] is the activation function for hidden layer i. The
// parameter init determines the weight initialization scheme.
func NewMultiHeadMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	arch := Arch{
		Type:        MLP,
		HiddenSizes: hiddenSizes,
		Biases:      biases,
		Activations: activations,
	}
	return newMultiHeadMLP(g, arch, []int{features}, batch, outputs, init)
}

func newMultiHeadMLP(g *G.ExprGraph, arch Arch, inputShape []int, batch,
	outputs int, init G.InitWFn) (NeuralNet, error) {
	if err := arch.validateHidden(); err != nil {
		return nil, fmt.Errorf("newMultiHeadMLP: %w", err)
	}

	b := newBase(g, arch, inputShape, batch, outputs)
	hiddenSizes, biases, activations := arch.withOutputLayer(outputs)

	// The input node is flattened to [batch, features]
	input := b.input
	if len(inputShape) > 1 {
		var err error
		if input, err = G.Reshape(input, []int{batch, b.numInputs}); err != nil {
			return nil, fmt.Errorf("newMultiHeadMLP: could not flatten "+
				"input: %w", err)
		}
	}

	layers := addfcLayers(g, b.numInputs, hiddenSizes, biases, activations,
		init, "")

	network := &multiHeadMLP{base: b, layers: layers}
	for _, l := range layers {
		network.learnables = append(network.learnables, l.learnables()...)
	}

	pred, err := network.fwd(input)
	if err != nil {
		return nil, fmt.Errorf("newMultiHeadMLP: could not compute forward "+
			"pass: %w", err)
	}
	network.setPrediction(pred)

	return network, nil
}

// CloneWithBatch clones a multiHeadMLP with a new input batch size.
func (e *multiHeadMLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	net, err := newMultiHeadMLP(G.NewGraph(), e.arch, e.inputShape,
		batchSize, e.numOutputs, G.Zeroes())
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %w", err)
	}

	if err := net.Set(e); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %w", err)
	}
	return net, nil
}

// fwd performs the forward pass of the multiHeadMLP on the input node
func (e *multiHeadMLP) fwd(input *G.Node) (*G.Node, error) {
	pred := input
	var err error
	for i, l := range e.layers {
		if pred, err = l.fwd(pred); err != nil {
			return nil, fmt.Errorf("fwd: could not compute forward pass "+
				"of layer %v: %w", i, err)
		}
	}
	return pred, nil
}
