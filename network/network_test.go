package network

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
)

// forward runs the forward pass of net on input and returns a copy of
// the output
func forward(t *testing.T, net NeuralNet, input []float64) []float64 {
	t.Helper()

	vm := G.NewTapeMachine(net.Graph())
	defer vm.Close()

	require.NoError(t, net.SetInput(input))
	require.NoError(t, vm.RunAll())

	out := net.Output().Data().([]float64)
	return append([]float64(nil), out...)
}

func input(n int) []float64 {
	in := make([]float64, n)
	for i := range in {
		in[i] = float64(i%7) - 3
	}
	return in
}

func newMLP(t *testing.T, batch int) NeuralNet {
	net, err := NewMultiHeadMLP(3, batch, 2, G.NewGraph(), []int{8, 8},
		[]bool{true, true}, G.GlorotU(1.0), []*Activation{ReLU(), TanH()})
	require.NoError(t, err)
	return net
}

func TestMLPForward(t *testing.T) {
	net := newMLP(t, 4)
	require.Equal(t, 3, net.Features())
	require.Equal(t, 2, net.Outputs())
	require.Equal(t, 4, net.BatchSize())

	// Three layers, each with weights and biases
	require.Len(t, net.Learnables(), 6)
	require.Len(t, net.Model(), 6)

	out := forward(t, net, input(12))
	require.Len(t, out, 8)

	require.Error(t, net.SetInput(input(11)))
}

func TestMLPRowsIndependent(t *testing.T) {
	net := newMLP(t, 2)
	in := input(6)
	out := forward(t, net, in)

	// Changing the second row leaves the first row's outputs unchanged
	in[3], in[4], in[5] = 10, -10, 10
	changed := forward(t, net, in)
	require.Equal(t, out[:2], changed[:2])
}

func TestSetCopies(t *testing.T) {
	src := newMLP(t, 1)
	dst := newMLP(t, 1)

	in := input(3)
	require.NotEqual(t, forward(t, src, in), forward(t, dst, in))

	require.NoError(t, dst.Set(src))
	require.Equal(t, forward(t, src, in), forward(t, dst, in))

	// Changing the source afterwards does not change the copy
	copied := Params(dst)
	for _, node := range src.Learnables() {
		data := values(node)
		for i := range data {
			data[i] += 0.5
		}
	}
	require.Equal(t, copied, Params(dst))
	require.NotEqual(t, Params(src), Params(dst))
	require.NotEqual(t, forward(t, src, in), forward(t, dst, in))
}

func TestSetMismatch(t *testing.T) {
	src := newMLP(t, 1)
	other, err := NewMultiHeadMLP(3, 1, 2, G.NewGraph(), []int{4},
		[]bool{true}, G.GlorotU(1.0), []*Activation{ReLU()})
	require.NoError(t, err)

	err = other.Set(src)
	var mismatch *ParamMismatchError
	require.True(t, errors.As(err, &mismatch))
}

func TestCloneWithBatch(t *testing.T) {
	net := newMLP(t, 1)
	clone, err := net.CloneWithBatch(3)
	require.NoError(t, err)
	require.Equal(t, 3, clone.BatchSize())
	require.NotSame(t, net.Graph(), clone.Graph())

	in := input(3)
	single := forward(t, net, in)
	batched := forward(t, clone, append(append(append([]float64(nil),
		in...), in...), in...))

	for row := 0; row < 3; row++ {
		require.InDeltaSlice(t, single, batched[row*2:row*2+2], 1e-12)
	}
}

func TestParamsRoundTrip(t *testing.T) {
	src := newMLP(t, 1)
	dst := newMLP(t, 1)

	params := Params(src)
	require.Len(t, params, len(src.Learnables()))
	require.Equal(t, "W0", params[0].Name)
	require.Equal(t, []int{3, 8}, params[0].Shape)

	require.NoError(t, SetParams(dst, params))
	in := input(3)
	require.Equal(t, forward(t, src, in), forward(t, dst, in))

	// Snapshots are copies
	params[0].Data[0] += 100
	require.Equal(t, forward(t, src, in), forward(t, dst, in))
}

func TestSetParamsMismatch(t *testing.T) {
	net := newMLP(t, 1)
	before := Params(net)

	params := Params(net)
	params[2].Shape = []int{9, 8}
	var mismatch *ParamMismatchError
	require.True(t, errors.As(SetParams(net, params), &mismatch))
	require.Equal(t, 2, mismatch.Index)

	require.True(t, errors.As(SetParams(net, params[:3]), &mismatch))
	require.Equal(t, -1, mismatch.Index)

	// A failed SetParams leaves the network untouched
	require.Equal(t, before, Params(net))
}

func TestConvNet(t *testing.T) {
	arch := Arch{
		Conv: []ConvLayer{
			{Filters: 4, Kernel: 4, Stride: 2},
			{Filters: 2, Kernel: 3, Stride: 1},
		},
		HiddenSizes: []int{16},
		Biases:      []bool{true},
		Activations: []*Activation{ReLU()},
		InputScale:  1.0 / 255.0,
	}

	// 12x12 -> 5x5 -> 3x3 with 2 channels
	net, err := NewConvNet(2, 12, 12, 2, 3, G.NewGraph(), arch, G.HeN(1.0))
	require.NoError(t, err)
	require.Equal(t, 2*12*12, net.Features())
	require.Len(t, net.Learnables(), 2+4)
	require.Equal(t, []int{18, 16}, Params(net)[2].Shape)

	out := forward(t, net, input(2*2*12*12))
	require.Len(t, out, 6)

	clone, err := net.CloneWithBatch(1)
	require.NoError(t, err)
	single := forward(t, clone, input(2*12*12))
	require.InDeltaSlice(t, out[:3], single, 1e-9)
}

func TestConvNetKernelTooLarge(t *testing.T) {
	arch := NatureArch()
	_, err := arch.Build(G.NewGraph(), []int{4, 20, 20}, 1, 2, G.HeN(1.0))
	require.Error(t, err)
}

func TestNatureArchShapes(t *testing.T) {
	arch := NatureArch()
	net, err := arch.Build(G.NewGraph(), []int{4, 84, 84}, 1, 4, G.HeN(1.0))
	require.NoError(t, err)

	params := Params(net)
	require.Equal(t, []int{32, 4, 8, 8}, params[0].Shape)
	require.Equal(t, []int{64, 32, 4, 4}, params[1].Shape)
	require.Equal(t, []int{64, 64, 3, 3}, params[2].Shape)
	require.Equal(t, []int{3136, 512}, params[3].Shape)
	require.Equal(t, []int{512, 4}, params[5].Shape)
}

func TestArchJSON(t *testing.T) {
	arch := NewMLPArch(64, 64)
	data, err := json.Marshal(arch)
	require.NoError(t, err)

	var decoded Arch
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NoError(t, decoded.Validate())
	require.Equal(t, MLP, decoded.Type)
	require.Equal(t, []int{64, 64}, decoded.HiddenSizes)
	require.Equal(t, "relu", decoded.Activations[1].String())

	require.Error(t, json.Unmarshal([]byte(`"sigmoid"`), &Activation{}))
}

func TestArchValidate(t *testing.T) {
	require.Error(t, Arch{Type: "RNN"}.Validate())
	require.Error(t, Arch{Type: Conv}.Validate())
	require.Error(t, Arch{Type: MLP, HiddenSizes: []int{2}}.Validate())

	bad := NewMLPArch(4)
	bad.HiddenSizes[0] = 0
	require.Error(t, bad.Validate())
}
