package deepq

import (
	"fmt"

	"github.com/samuelfneumann/godqn/network"
	G "gorgonia.org/gorgonia"
)

// Estimator predicts the values of all actions in a state. It holds
// two networks sharing the same weights: one which predicts the values
// of a full batch of states, whose weights are the ones learned, and
// one which predicts the values of a single state for acting.
//
// The action values of an Estimator can only change through learning
// or through SyncFrom, which copies every weight of another Estimator.
type Estimator struct {
	arch       network.Arch
	inputShape []int
	numActions int

	batch   network.NeuralNet
	batchVM G.VM

	act   network.NeuralNet
	actVM G.VM
}

// NewEstimator returns a new Estimator for states of shape inputShape
// which predicts numActions action values. Batches of batchSize states
// are predicted at once.
func NewEstimator(arch network.Arch, inputShape []int, batchSize,
	numActions int, init G.InitWFn) (*Estimator, error) {
	e, err := newEstimator(arch, inputShape, batchSize, numActions, init)
	if err != nil {
		return nil, fmt.Errorf("newEstimator: %w", err)
	}
	e.batchVM = G.NewTapeMachine(e.batch.Graph())

	return e, nil
}

// newEstimator returns a new Estimator whose batch network has not yet
// been compiled, so that more nodes can be added to its graph
func newEstimator(arch network.Arch, inputShape []int, batchSize,
	numActions int, init G.InitWFn) (*Estimator, error) {
	batch, err := arch.Build(G.NewGraph(), inputShape, batchSize,
		numActions, init)
	if err != nil {
		return nil, err
	}

	act, err := batch.CloneWithBatch(1)
	if err != nil {
		return nil, err
	}

	return &Estimator{
		arch:       arch,
		inputShape: append([]int(nil), inputShape...),
		numActions: numActions,
		batch:      batch,
		act:        act,
		actVM:      G.NewTapeMachine(act.Graph()),
	}, nil
}

// Estimate returns the action values of a row-major batch of states
// of any size, one row of values per state
func (e *Estimator) Estimate(states []float64) ([]float64, error) {
	features := e.Features()
	if len(states) == 0 || len(states)%features != 0 {
		return nil, fmt.Errorf("estimate: states must be a positive "+
			"multiple of %v features, have(%v)", features, len(states))
	}

	rows := len(states) / features
	values := make([]float64, 0, rows*e.numActions)
	for i := 0; i < rows; i++ {
		out, err := run(e.act, e.actVM, states[i*features:(i+1)*features])
		if err != nil {
			return nil, fmt.Errorf("estimate: %w", err)
		}
		values = append(values, out...)
	}

	return values, nil
}

// estimateBatch returns the action values of exactly one batch of
// states using the batch network
func (e *Estimator) estimateBatch(states []float64) ([]float64, error) {
	out, err := run(e.batch, e.batchVM, states)
	if err != nil {
		return nil, fmt.Errorf("estimateBatch: %w", err)
	}
	return out, nil
}

// NumActions returns the number of actions values predicted per state
func (e *Estimator) NumActions() int {
	return e.numActions
}

// Features returns the number of features in a state
func (e *Estimator) Features() int {
	return e.act.Features()
}

// SyncFrom copies all weights of src into e. Weights are copied, never
// shared, so later changes to src are not seen by e.
func (e *Estimator) SyncFrom(src *Estimator) error {
	if err := e.batch.Set(src.batch); err != nil {
		return fmt.Errorf("syncFrom: %w", err)
	}
	return e.refresh()
}

// Params returns a copy of the weights of the Estimator
func (e *Estimator) Params() []network.Param {
	return network.Params(e.batch)
}

// setParams sets the weights of the Estimator
func (e *Estimator) setParams(params []network.Param) error {
	if err := network.SetParams(e.batch, params); err != nil {
		return err
	}
	return e.refresh()
}

// refresh copies the learned weights into the acting network
func (e *Estimator) refresh() error {
	if err := e.act.Set(e.batch); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}

// run runs the forward pass of net on input and returns a copy of the
// prediction
func run(net network.NeuralNet, vm G.VM, input []float64) ([]float64,
	error) {
	defer vm.Reset()

	if err := net.SetInput(input); err != nil {
		return nil, err
	}
	if err := vm.RunAll(); err != nil {
		return nil, fmt.Errorf("could not run forward pass: %w", err)
	}

	out := net.Output().Data().([]float64)
	return append([]float64(nil), out...), nil
}
