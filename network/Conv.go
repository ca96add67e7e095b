package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ConvLayer describes a single 2D convolution followed by a ReLU
type ConvLayer struct {
	Filters int
	Kernel  int
	Stride  int
}

// outSize returns the side length of the output of the layer given an
// input of the given side length, without padding
func (c ConvLayer) outSize(in int) int {
	return (in-c.Kernel)/c.Stride + 1
}

// convLayer implements a convolutional layer of a network
type convLayer struct {
	ConvLayer
	filter *G.Node
}

// fwd adds the forward pass of the convLayer to the computational graph
func (c *convLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Conv2d(x, c.filter, tensor.Shape{c.Kernel, c.Kernel},
		[]int{0, 0}, []int{c.Stride, c.Stride}, []int{1, 1})
	if err != nil {
		return nil, fmt.Errorf("fwd: could not convolve: %w", err)
	}
	return G.Rectify(x)
}

// convNet implements a convolutional network over channel-first image
// inputs. The convolutional layers are followed by fully connected
// hidden layers and a final linear layer with one unit per output.
type convNet struct {
	*base
	conv []*convLayer
	fc   []*fcLayer
}

// NewConvNet returns a new convolutional network on inputs of shape
// [batch, channels, height, width]
func NewConvNet(channels, height, width, batch, outputs int,
	g *G.ExprGraph, arch Arch, init G.InitWFn) (NeuralNet, error) {
	arch.Type = Conv
	return newConvNet(g, arch, []int{channels, height, width}, batch,
		outputs, init)
}

func newConvNet(g *G.ExprGraph, arch Arch, inputShape []int, batch,
	outputs int, init G.InitWFn) (NeuralNet, error) {
	if len(inputShape) != 3 {
		return nil, fmt.Errorf("newConvNet: input must have shape [C, H, "+
			"W], have(%v)", inputShape)
	}
	if len(arch.Conv) == 0 {
		return nil, fmt.Errorf("newConvNet: at least one convolutional " +
			"layer is needed")
	}
	if err := arch.validateHidden(); err != nil {
		return nil, fmt.Errorf("newConvNet: %w", err)
	}

	b := newBase(g, arch, inputShape, batch, outputs)

	// Add the convolutional layers, tracking the output shape
	channels, height, width := inputShape[0], inputShape[1], inputShape[2]
	conv := make([]*convLayer, len(arch.Conv))
	for i, layer := range arch.Conv {
		if layer.Kernel < 1 || layer.Stride < 1 || layer.Filters < 1 {
			return nil, fmt.Errorf("newConvNet: invalid layer %v: %+v", i,
				layer)
		}
		if layer.Kernel > height || layer.Kernel > width {
			return nil, fmt.Errorf("newConvNet: kernel of layer %v larger "+
				"than its input \n\twant(<=%v)\n\thave(%v)", i,
				min(height, width), layer.Kernel)
		}

		filter := G.NewTensor(
			g,
			tensor.Float64,
			4,
			G.WithShape(layer.Filters, channels, layer.Kernel, layer.Kernel),
			G.WithName(fmt.Sprintf("conv%d", i)),
			G.WithInit(init),
		)
		conv[i] = &convLayer{layer, filter}

		channels = layer.Filters
		height, width = layer.outSize(height), layer.outSize(width)
	}
	flat := channels * height * width

	hiddenSizes, biases, activations := arch.withOutputLayer(outputs)
	fc := addfcLayers(g, flat, hiddenSizes, biases, activations, init, "fc")

	network := &convNet{base: b, conv: conv, fc: fc}
	for _, l := range conv {
		network.learnables = append(network.learnables, l.filter)
	}
	for _, l := range fc {
		network.learnables = append(network.learnables, l.learnables()...)
	}

	pred, err := network.fwd(b.input, flat)
	if err != nil {
		return nil, fmt.Errorf("newConvNet: could not compute forward "+
			"pass: %w", err)
	}
	network.setPrediction(pred)

	return network, nil
}

// CloneWithBatch clones a convNet with a new input batch size.
func (c *convNet) CloneWithBatch(batchSize int) (NeuralNet, error) {
	net, err := newConvNet(G.NewGraph(), c.arch, c.inputShape, batchSize,
		c.numOutputs, G.Zeroes())
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %w", err)
	}

	if err := net.Set(c); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %w", err)
	}
	return net, nil
}

// fwd performs the forward pass of the convNet on the input node. The
// output of the last convolution is flattened to flat features before
// the fully connected layers.
func (c *convNet) fwd(input *G.Node, flat int) (*G.Node, error) {
	pred := input
	var err error
	for i, l := range c.conv {
		if pred, err = l.fwd(pred); err != nil {
			return nil, fmt.Errorf("fwd: could not compute forward pass "+
				"of convolution %v: %w", i, err)
		}
	}

	if pred, err = G.Reshape(pred, tensor.Shape{c.batchSize, flat}); err != nil {
		return nil, fmt.Errorf("fwd: could not flatten: %w", err)
	}

	for i, l := range c.fc {
		if pred, err = l.fwd(pred); err != nil {
			return nil, fmt.Errorf("fwd: could not compute forward pass "+
				"of layer %v: %w", i, err)
		}
	}
	return pred, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
