// Package network implements feed forward neural networks built on
// gorgonia computational graphs, used as action-value estimators
package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// NeuralNet is a neural network whose forward pass lives in a
// computational graph. A NeuralNet predicts one value per output for
// each of the BatchSize() rows of its input.
type NeuralNet interface {
	Graph() *G.ExprGraph

	// CloneWithBatch returns a network with the same architecture and
	// weights in a new graph, with a new input batch size
	CloneWithBatch(int) (NeuralNet, error)

	BatchSize() int
	Features() int
	Outputs() int

	// Arch returns the architecture of the network
	Arch() Arch

	// SetInput sets the value of the input node before running the
	// forward pass. Inputs are row-major with BatchSize() rows.
	SetInput([]float64) error

	// Set copies the weights of another network with the same
	// architecture into this network
	Set(NeuralNet) error

	Learnables() G.Nodes
	Model() []G.ValueGrad

	// Output returns the value of the prediction after the graph has
	// been run
	Output() G.Value
	Prediction() *G.Node
}

// base implements the parts of a NeuralNet common to all architectures
type base struct {
	g          *G.ExprGraph
	arch       Arch
	input      *G.Node
	inputShape []int
	numOutputs int
	numInputs  int
	batchSize  int
	scale      float64

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// newBase returns a base with a new input node of shape
// [batch, inputShape...]
func newBase(g *G.ExprGraph, arch Arch, inputShape []int, batch,
	outputs int) *base {
	features := 1
	for _, dim := range inputShape {
		features *= dim
	}

	shape := append([]int{batch}, inputShape...)
	input := G.NewTensor(
		g,
		tensor.Float64,
		len(shape),
		G.WithShape(shape...),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	scale := arch.InputScale
	if scale == 0 {
		scale = 1
	}

	return &base{
		g:          g,
		arch:       arch,
		input:      input,
		inputShape: append([]int(nil), inputShape...),
		numOutputs: outputs,
		numInputs:  features,
		batchSize:  batch,
		scale:      scale,
	}
}

// Graph returns the computational graph of the network
func (b *base) Graph() *G.ExprGraph {
	return b.g
}

// Arch returns the architecture of the network
func (b *base) Arch() Arch {
	return b.arch
}

// BatchSize returns the batch size of inputs to the network
func (b *base) BatchSize() int {
	return b.batchSize
}

// Features returns the number of features in a single input
func (b *base) Features() int {
	return b.numInputs
}

// Outputs returns the number of outputs from the network
func (b *base) Outputs() int {
	return b.numOutputs
}

// SetInput sets the value of the input node before running the forward
// pass. Inputs are copied and multiplied by the input scale of the
// architecture.
func (b *base) SetInput(input []float64) error {
	if len(input) != b.numInputs*b.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", b.numInputs*b.batchSize, len(input))
	}

	backing := make([]float64, len(input))
	for i, v := range input {
		backing[i] = v * b.scale
	}

	inputTensor := tensor.New(
		tensor.WithBacking(backing),
		tensor.WithShape(b.input.Shape()...),
	)
	return G.Let(b.input, inputTensor)
}

// Set sets the weights of the network to be equal to the weights of
// another network. The weights are copied, never shared.
func (b *base) Set(source NeuralNet) error {
	if err := Copy(b.Learnables(), source.Learnables()); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	return nil
}

// Learnables returns the learnable nodes in the network
func (b *base) Learnables() G.Nodes {
	return b.learnables
}

// Model returns the learnables nodes with their gradients.
func (b *base) Model() []G.ValueGrad {
	// Lazy instantiation
	if b.model == nil {
		b.model = make([]G.ValueGrad, 0, len(b.learnables))
		for _, node := range b.learnables {
			b.model = append(b.model, node)
		}
	}
	return b.model
}

// Output returns the output of the network
func (b *base) Output() G.Value {
	return b.predVal
}

// Prediction returns the node of the computational graph that stores
// the output of the network
func (b *base) Prediction() *G.Node {
	return b.prediction
}

// setPrediction registers the output node of the forward pass
func (b *base) setPrediction(pred *G.Node) {
	b.prediction = pred
	G.Read(b.prediction, &b.predVal)
}
