// Package deepq implements the deep Q-learning algorithm with an
// experience replay buffer and a target network
package deepq

import (
	"fmt"

	"github.com/samuelfneumann/godqn/agent/nonlinear/discrete/policy"
	"github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/expreplay"
	"github.com/samuelfneumann/godqn/network"
	"github.com/samuelfneumann/godqn/solver"
	ts "github.com/samuelfneumann/godqn/timestep"
	"github.com/samuelfneumann/godqn/utils/floatutils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// DeepQ implements the deep Q-learning algorithm. This algorithm is
// DQN using the MSE loss: each update samples a batch of transitions
// from the replay buffer and minimizes
//
//	mean[(r + γ * max_a' Q_target(s', a') * (1 - done) - Q(s, a))²]
//
// where Q is the policy estimator and Q_target the target estimator.
// The target estimator only changes through SyncTarget.
type DeepQ struct {
	q         *Estimator // Policy estimator, whose weights are learned
	target    *Estimator // Provides the update target
	behaviour *policy.Estimator

	solver   *solver.Solver
	clipNorm float64
	gamma    float64

	// Nodes in the graph of the policy estimator's batch network which
	// are given the one-hot actions taken and the update targets
	actions *G.Node
	targets *G.Node
	loss    G.Value

	replay     *expreplay.Store
	batchSize  int
	numActions int
	updates    int
}

// New creates and returns a new DeepQ agent for states of shape
// inputShape and numActions discrete actions
func New(config Config, inputShape []int, numActions int,
	seed uint64) (*DeepQ, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	if numActions < 1 {
		return nil, fmt.Errorf("new: need at least one action, have(%v)",
			numActions)
	}
	batchSize := config.BatchSize
	init := config.InitWFn.InitWFn()

	q, err := newEstimator(config.Arch, inputShape, batchSize, numActions,
		init)
	if err != nil {
		return nil, fmt.Errorf("new: could not create policy estimator: %w",
			err)
	}

	// Compute the Mean Squarred TD error
	g := q.batch.Graph()
	actions := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithName("actionSelected"),
		G.WithShape(batchSize, numActions),
		G.WithInit(G.Zeroes()),
	)
	targets := G.NewVector(
		g,
		tensor.Float64,
		G.WithName("updateTarget"),
		G.WithShape(batchSize),
		G.WithInit(G.Zeroes()),
	)
	selectedActionsValue := G.Must(G.HadamardProd(q.batch.Prediction(),
		actions))
	selectedActionsValue = G.Must(G.Sum(selectedActionsValue, 1))

	losses := G.Must(G.Sub(targets, selectedActionsValue))
	losses = G.Must(G.Square(losses))
	cost := G.Must(G.Mean(losses))

	d := &DeepQ{
		q:          q,
		clipNorm:   config.ClipNorm,
		gamma:      config.Gamma,
		actions:    actions,
		targets:    targets,
		batchSize:  batchSize,
		numActions: numActions,
	}
	G.Read(cost, &d.loss)

	// Compute the gradient with respect to the Mean Squarred TD error
	if _, err := G.Grad(cost, q.batch.Learnables()...); err != nil {
		return nil, fmt.Errorf("new: could not compute gradient: %w", err)
	}
	q.batchVM = G.NewTapeMachine(g, G.BindDualValues(q.batch.Learnables()...))

	// The target estimator starts as an exact copy
	d.target, err = NewEstimator(config.Arch, inputShape, batchSize,
		numActions, G.Zeroes())
	if err != nil {
		return nil, fmt.Errorf("new: could not create target estimator: %w",
			err)
	}
	if err := d.target.SyncFrom(q); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	// Each agent gets its own solver so that no optimizer state is
	// shared between agents created from the same Config
	s := *config.Solver
	s.Reset()
	d.solver = &s

	d.replay, err = config.Config.Create(q.Features(), numActions, seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create experience replay "+
			"buffer: %w", err)
	}
	d.behaviour = policy.NewEstimator(q, seed)

	return d, nil
}

// SelectAction selects an epsilon greedy action with respect to the
// policy estimator
func (d *DeepQ) SelectAction(obs *mat.VecDense, epsilon float64,
	space *environment.ActionSpace) (int, error) {
	return d.behaviour.SelectAction(obs, epsilon, space)
}

// Observe adds a transition to the replay buffer
func (d *DeepQ) Observe(t ts.Transition) error {
	if err := d.replay.Add(t); err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	return nil
}

// Learn performs a single gradient step on a batch sampled from the
// replay buffer and returns the loss before the step. If the buffer
// holds fewer transitions than a batch, the returned error satisfies
// expreplay.IsInsufficientData and nothing is learned. A non-finite
// loss returns a *DivergenceError without changing any weights.
func (d *DeepQ) Learn() (float64, error) {
	batch, err := d.replay.SampleBatch()
	if err != nil {
		return 0, fmt.Errorf("learn: %w", err)
	}

	// Compute the update target: r + γ * max[Q(s', a')]
	nextValues, err := d.target.estimateBatch(batch.NextStates)
	if err != nil {
		return 0, fmt.Errorf("learn: could not predict next state-action "+
			"values: %w", err)
	}
	targets := TDTargets(batch.Rewards, batch.Dones, nextValues,
		d.numActions, d.gamma)

	err = G.Let(d.targets, tensor.New(
		tensor.WithBacking(targets),
		tensor.WithShape(d.batchSize),
	))
	if err != nil {
		return 0, fmt.Errorf("learn: could not set update target: %w", err)
	}

	// Previous action one-hot vectors
	err = G.Let(d.actions, tensor.New(
		tensor.WithBacking(oneHot(batch.Actions, d.numActions)),
		tensor.WithShape(d.batchSize, d.numActions),
	))
	if err != nil {
		return 0, fmt.Errorf("learn: could not set actions: %w", err)
	}

	if err := d.q.batch.SetInput(batch.States); err != nil {
		return 0, fmt.Errorf("learn: could not set input: %w", err)
	}

	// Run the learning step
	defer d.q.batchVM.Reset()
	if err := d.q.batchVM.RunAll(); err != nil {
		return 0, fmt.Errorf("learn: %w", err)
	}

	loss := d.loss.Data().(float64)
	if !floatutils.Finite(loss) {
		return loss, &DivergenceError{Step: d.updates + 1, Loss: loss}
	}

	model := d.q.batch.Model()
	if _, err := solver.ClipModel(model, d.clipNorm); err != nil {
		return 0, fmt.Errorf("learn: %w", err)
	}
	if err := d.solver.Step(model); err != nil {
		return 0, fmt.Errorf("learn: could not step solver: %w", err)
	}
	d.updates++

	if err := d.q.refresh(); err != nil {
		return 0, fmt.Errorf("learn: %w", err)
	}
	return loss, nil
}

// SyncTarget sets the weights of the target estimator to the weights
// of the policy estimator
func (d *DeepQ) SyncTarget() error {
	if err := d.target.SyncFrom(d.q); err != nil {
		return fmt.Errorf("syncTarget: %w", err)
	}
	return nil
}

// Policy returns the policy estimator
func (d *DeepQ) Policy() *Estimator {
	return d.q
}

// Target returns the target estimator
func (d *DeepQ) Target() *Estimator {
	return d.target
}

// Replay returns the experience replay buffer
func (d *DeepQ) Replay() *expreplay.Store {
	return d.replay
}

// Updates returns the number of gradient steps taken
func (d *DeepQ) Updates() int {
	return d.updates
}

// TDTargets returns the Q-learning update targets
//
//	r + γ * max_a' Q(s', a') * (1 - done)
//
// of a batch, given the row-major next state-action values. The
// target of a terminal transition is exactly its reward, whatever the
// next state-action values are.
func TDTargets(rewards, dones, nextValues []float64, numActions int,
	gamma float64) []float64 {
	targets := make([]float64, len(rewards))
	for i, r := range rewards {
		if dones[i] != 0 {
			targets[i] = r
			continue
		}
		next := nextValues[i*numActions : (i+1)*numActions]
		targets[i] = r + gamma*floats.Max(next)
	}
	return targets
}

// oneHot returns the row-major one-hot encoding of actions
func oneHot(actions []int, numActions int) []float64 {
	encoded := make([]float64, len(actions)*numActions)
	for i, a := range actions {
		encoded[i*numActions+a] = 1
	}
	return encoded
}

// Params returns a copy of the weights of the policy estimator
func (d *DeepQ) Params() []network.Param {
	return d.q.Params()
}
