package deepq

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/godqn/expreplay"
	"github.com/samuelfneumann/godqn/initwfn"
	"github.com/samuelfneumann/godqn/network"
	"github.com/samuelfneumann/godqn/solver"
	ts "github.com/samuelfneumann/godqn/timestep"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const (
	features   = 3
	numActions = 2
)

func config(t *testing.T, hidden ...int) Config {
	t.Helper()

	s, err := solver.NewAdam(1e-2, 1e-8, 0.9, 0.999, 1)
	require.NoError(t, err)
	init, err := initwfn.NewGlorotU(1.0)
	require.NoError(t, err)

	return Config{
		Config:   expreplay.Config{Capacity: 50, BatchSize: 4},
		Arch:     network.NewMLPArch(hidden...),
		Solver:   s,
		InitWFn:  init,
		Gamma:    0.99,
		ClipNorm: 5,
	}
}

func newAgent(t *testing.T, hidden ...int) *DeepQ {
	t.Helper()

	d, err := New(config(t, hidden...), []int{features}, numActions, 1)
	require.NoError(t, err)
	return d
}

func state(v float64) *mat.VecDense {
	return mat.NewVecDense(features, []float64{v, -v, 0.5 * v})
}

func fill(t *testing.T, d *DeepQ, n int, done bool) {
	t.Helper()
	for i := 0; i < n; i++ {
		tr := ts.Transition{
			State:     state(float64(i%5) / 5),
			Action:    i % numActions,
			Reward:    1,
			NextState: state(float64((i+1)%5) / 5),
			Done:      done,
		}
		require.NoError(t, d.Observe(tr))
	}
}

func probe() []float64 {
	var states []float64
	for i := 0; i < 5; i++ {
		states = append(states, state(float64(i)/5).RawVector().Data...)
	}
	return states
}

func estimate(t *testing.T, e *Estimator) []float64 {
	t.Helper()
	values, err := e.Estimate(probe())
	require.NoError(t, err)
	return values
}

func TestTDTargets(t *testing.T) {
	rewards := []float64{1, -2, 0.5}
	dones := []float64{0, 1, 0}
	next := []float64{
		3, 4,
		math.NaN(), math.Inf(1),
		-1, -2,
	}

	targets := TDTargets(rewards, dones, next, 2, 0.9)
	require.InDelta(t, 1+0.9*4, targets[0], 1e-12)
	require.Equal(t, -2.0, targets[1])
	require.InDelta(t, 0.5+0.9*-1, targets[2], 1e-12)
}

func TestTerminalTargetIsReward(t *testing.T) {
	// A batch of only terminal transitions never bootstraps
	targets := TDTargets([]float64{-10, 7}, []float64{1, 1},
		[]float64{1e9, 1e9, -1e9, 1e9}, 2, 0.99)
	require.Equal(t, []float64{-10, 7}, targets)
}

func TestTargetStartsSynced(t *testing.T) {
	d := newAgent(t, 8)
	require.Equal(t, estimate(t, d.Policy()), estimate(t, d.Target()))
}

func TestEstimateShape(t *testing.T) {
	d := newAgent(t, 8)

	values := estimate(t, d.Policy())
	require.Len(t, values, 5*numActions)

	_, err := d.Policy().Estimate([]float64{1, 2})
	require.Error(t, err)
	_, err = d.Policy().Estimate(nil)
	require.Error(t, err)
}

func TestLearnInsufficientData(t *testing.T) {
	d := newAgent(t, 8)
	fill(t, d, 3, false)

	_, err := d.Learn()
	require.True(t, expreplay.IsInsufficientData(err))
	require.Equal(t, 0, d.Updates())
}

func TestLearnChangesPolicyOnly(t *testing.T) {
	d := newAgent(t, 8)
	fill(t, d, 20, false)

	policyBefore := estimate(t, d.Policy())
	targetBefore := estimate(t, d.Target())

	for i := 0; i < 5; i++ {
		loss, err := d.Learn()
		require.NoError(t, err)
		require.False(t, math.IsNaN(loss))
	}
	require.Equal(t, 5, d.Updates())

	require.NotEqual(t, policyBefore, estimate(t, d.Policy()))
	require.Equal(t, targetBefore, estimate(t, d.Target()))

	require.NoError(t, d.SyncTarget())
	require.Equal(t, estimate(t, d.Policy()), estimate(t, d.Target()))
}

func TestSyncDoesNotAlias(t *testing.T) {
	d := newAgent(t, 8)
	fill(t, d, 20, false)
	require.NoError(t, d.SyncTarget())

	synced := estimate(t, d.Target())
	_, err := d.Learn()
	require.NoError(t, err)

	// Learning after a sync must not move the target
	require.Equal(t, synced, estimate(t, d.Target()))
}

func TestSyncArchitectureMismatch(t *testing.T) {
	a := newAgent(t, 8)
	b := newAgent(t, 16)

	require.Error(t, a.Target().SyncFrom(b.Policy()))
}

func TestLearnReducesLoss(t *testing.T) {
	d := newAgent(t, 16)

	// Terminal transitions have fixed targets of 1
	fill(t, d, 20, true)

	first, err := d.Learn()
	require.NoError(t, err)

	var last float64
	for i := 0; i < 300; i++ {
		last, err = d.Learn()
		require.NoError(t, err)
	}
	require.Less(t, last, first)
}

func TestDivergence(t *testing.T) {
	d := newAgent(t, 8)
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Observe(ts.Transition{
			State:     state(1),
			Action:    0,
			Reward:    math.Inf(1),
			NextState: state(1),
			Done:      true,
		}))
	}

	before := estimate(t, d.Policy())
	_, err := d.Learn()

	var divergence *DivergenceError
	require.True(t, errors.As(err, &divergence))
	require.Equal(t, 1, divergence.Step)
	require.Equal(t, before, estimate(t, d.Policy()))
}

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.bin")

	d := newAgent(t, 8)
	fill(t, d, 20, false)
	for i := 0; i < 3; i++ {
		_, err := d.Learn()
		require.NoError(t, err)
	}
	require.NoError(t, d.Save(path, true))

	loaded := newAgent(t, 8)
	require.NoError(t, loaded.Load(path))

	require.Equal(t, estimate(t, d.Policy()), estimate(t, loaded.Policy()))
	require.Equal(t, estimate(t, d.Target()), estimate(t, loaded.Target()))

	// The target was never synced, so it differs from the policy
	require.NotEqual(t, estimate(t, loaded.Policy()),
		estimate(t, loaded.Target()))
}

func TestPolicyOnlyCheckpointResyncsTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.bin")

	d := newAgent(t, 8)
	fill(t, d, 20, false)
	_, err := d.Learn()
	require.NoError(t, err)
	require.NoError(t, d.Save(path, false))

	loaded := newAgent(t, 8)
	require.NoError(t, loaded.Load(path))

	require.Equal(t, estimate(t, d.Policy()), estimate(t, loaded.Policy()))
	require.Equal(t, estimate(t, loaded.Policy()),
		estimate(t, loaded.Target()))
}

func TestCheckpointMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.bin")
	require.NoError(t, newAgent(t, 8).Save(path, true))

	other := newAgent(t, 16)
	before := estimate(t, other.Policy())

	err := other.Load(path)
	var loadErr *CheckpointLoadError
	require.True(t, errors.As(err, &loadErr))
	require.Equal(t, path, loadErr.Path)
	require.NotEmpty(t, loadErr.Param)

	// A failed load leaves the agent unchanged
	require.Equal(t, before, estimate(t, other.Policy()))

	other = newAgent(t, 8, 8)
	require.True(t, IsCheckpointLoad(other.Load(path)))
}

func TestLoadMissingFile(t *testing.T) {
	d := newAgent(t, 8)
	require.True(t, IsCheckpointLoad(d.Load(filepath.Join(t.TempDir(),
		"missing.bin"))))
}

func TestConfigValidate(t *testing.T) {
	c := config(t, 8)
	require.NoError(t, c.Validate())

	bad := c
	bad.Gamma = 1
	require.Error(t, bad.Validate())

	bad = c
	bad.BatchSize = 100
	require.Error(t, bad.Validate())

	bad = c
	bad.Solver = nil
	require.Error(t, bad.Validate())

	bad = c
	bad.ClipNorm = -1
	require.Error(t, bad.Validate())
}
