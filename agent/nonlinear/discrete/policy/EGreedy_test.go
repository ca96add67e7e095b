package policy

import (
	"testing"

	env "github.com/samuelfneumann/godqn/environment"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// table is a ValueEstimator that predicts fixed action values
type table struct {
	values []float64
	calls  int
}

func (t *table) Estimate(states []float64) ([]float64, error) {
	t.calls++
	return t.values, nil
}

func (t *table) NumActions() int { return len(t.values) }
func (t *table) Features() int   { return 2 }

func TestGreedyFirstMax(t *testing.T) {
	require.Equal(t, 1, Greedy([]float64{0.5, 2.0, 2.0, -1}))
	require.Equal(t, 0, Greedy([]float64{3, 3, 3}))
}

func TestZeroEpsilonIsGreedy(t *testing.T) {
	space := env.NewActionSpace(4, 1)
	rule := NewEGreedy(1)

	for i := 0; i < 1000; i++ {
		a, err := rule.SelectAction([]float64{0, 0, 1, 0}, 0, space)
		require.NoError(t, err)
		require.Equal(t, 2, a)
	}
}

func TestFullEpsilonIsUniform(t *testing.T) {
	space := env.NewActionSpace(4, 3)
	rule := NewEGreedy(3)

	counts := make([]int, 4)
	const n = 40000
	for i := 0; i < n; i++ {
		a, err := rule.SelectAction([]float64{0, 0, 1, 0}, 1, space)
		require.NoError(t, err)
		counts[a]++
	}

	for _, c := range counts {
		require.InDelta(t, n/4, c, n/40)
	}
}

func TestEpsilonExploresProportionally(t *testing.T) {
	space := env.NewActionSpace(2, 7)
	rule := NewEGreedy(7)

	// Greedy action 0 is chosen with probability 1 - ε/2
	greedy := 0
	const n = 40000
	for i := 0; i < n; i++ {
		a, err := rule.SelectAction([]float64{1, 0}, 0.2, space)
		require.NoError(t, err)
		if a == 0 {
			greedy++
		}
	}
	require.InDelta(t, 0.9, float64(greedy)/n, 0.01)
}

func TestSelectActionErrors(t *testing.T) {
	space := env.NewActionSpace(3, 1)
	rule := NewEGreedy(1)

	_, err := rule.SelectAction([]float64{1, 2}, 0.1, space)
	require.Error(t, err)

	_, err = rule.SelectAction([]float64{1, 2, 3}, 1.5, space)
	require.Error(t, err)
}

func TestEstimatorPolicy(t *testing.T) {
	est := &table{values: []float64{-1, 4, 2}}
	p := NewEstimator(est, 5)
	space := env.NewActionSpace(3, 5)

	a, err := p.SelectAction(mat.NewVecDense(2, nil), 0, space)
	require.NoError(t, err)
	require.Equal(t, 1, a)
	require.Equal(t, 1, est.calls)
}
