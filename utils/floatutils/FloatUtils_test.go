package floatutils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgmaxFirstMax(t *testing.T) {
	tests := []struct {
		in   []float64
		want int
	}{
		{[]float64{1, 2, 3}, 2},
		{[]float64{3, 3, 1}, 0},
		{[]float64{-1, 5, 5, 5}, 1},
		{[]float64{7}, 0},
		{[]float64{math.NaN(), 1}, 0},
	}

	for _, test := range tests {
		require.Equal(t, test.want, Argmax(test.in), "argmax(%v)", test.in)
	}
}

func TestMaxSlice(t *testing.T) {
	max, indices := MaxSlice([]float64{1, 4, 2, 4})
	require.Equal(t, 4.0, max)
	require.Equal(t, []int{1, 3}, indices)
}

func TestClip(t *testing.T) {
	require.Equal(t, 1.0, Clip(3, -1, 1))
	require.Equal(t, -1.0, Clip(-3, -1, 1))
	require.Equal(t, 0.5, Clip(0.5, -1, 1))
}

func TestFinite(t *testing.T) {
	require.True(t, Finite(0))
	require.False(t, Finite(math.NaN()))
	require.False(t, Finite(math.Inf(-1)))
}
