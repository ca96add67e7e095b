package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Param is a snapshot of a single learnable tensor
type Param struct {
	Name  string
	Shape []int
	Data  []float64
}

// ParamMismatchError reports that a set of parameters does not match
// the architecture of a network
type ParamMismatchError struct {
	Index int
	Name  string
	Want  []int
	Have  []int
}

func (e *ParamMismatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid number of parameters \n\twant(%v)"+
			"\n\thave(%v)", e.Want[0], e.Have[0])
	}
	return fmt.Sprintf("invalid shape of parameter %v (%v) \n\twant(%v)"+
		"\n\thave(%v)", e.Index, e.Name, e.Want, e.Have)
}

// Params returns a copy of the learnable parameters of a network
func Params(net NeuralNet) []Param {
	learnables := net.Learnables()
	params := make([]Param, len(learnables))

	for i, node := range learnables {
		data := values(node)
		params[i] = Param{
			Name:  node.Name(),
			Shape: append([]int(nil), node.Shape()...),
			Data:  append([]float64(nil), data...),
		}
	}
	return params
}

// CheckParams returns a *ParamMismatchError if params do not match the
// learnable parameters of a network in number or shape
func CheckParams(net NeuralNet, params []Param) error {
	learnables := net.Learnables()
	if len(params) != len(learnables) {
		return &ParamMismatchError{
			Index: -1,
			Want:  []int{len(learnables)},
			Have:  []int{len(params)},
		}
	}

	for i, node := range learnables {
		want := []int(node.Shape())
		if !sameShape(want, params[i].Shape) ||
			len(params[i].Data) != node.Shape().TotalSize() {
			return &ParamMismatchError{i, node.Name(), want, params[i].Shape}
		}
	}
	return nil
}

// SetParams copies params into the learnable parameters of a network.
// Nothing is copied unless every parameter matches in shape.
func SetParams(net NeuralNet, params []Param) error {
	if err := CheckParams(net, params); err != nil {
		return err
	}

	for i, node := range net.Learnables() {
		copy(values(node), params[i].Data)
	}
	return nil
}

// Copy copies the values of the src nodes into the dst nodes. The
// values are copied element by element so that dst never shares
// memory with src. Nothing is copied unless all shapes match.
func Copy(dst, src G.Nodes) error {
	if len(dst) != len(src) {
		return &ParamMismatchError{
			Index: -1,
			Want:  []int{len(dst)},
			Have:  []int{len(src)},
		}
	}

	for i := range dst {
		if !dst[i].Shape().Eq(src[i].Shape()) {
			return &ParamMismatchError{i, dst[i].Name(), dst[i].Shape(),
				src[i].Shape()}
		}
	}

	for i := range dst {
		copy(values(dst[i]), values(src[i]))
	}
	return nil
}

// values returns the backing data of the value of a node
func values(node *G.Node) []float64 {
	dense, ok := node.Value().(*tensor.Dense)
	if !ok {
		panic(fmt.Sprintf("values: node %v does not hold a dense tensor",
			node.Name()))
	}
	return dense.Data().([]float64)
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
