package cartpole

import (
	"testing"

	"github.com/fogleman/gg"
	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r1"
)

func newCartpole(seed uint64, cutoff int) *Cartpole {
	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	starter := env.NewUniformStarter([]r1.Interval{bounds, bounds, bounds,
		bounds}, seed)
	return New(NewBalance(starter, cutoff, FailAngle), seed)
}

func TestStepBeforeReset(t *testing.T) {
	c := newCartpole(1, 10)
	_, _, err := c.Step(0)
	require.Error(t, err)
}

func TestIllegalAction(t *testing.T) {
	c := newCartpole(1, 10)
	_, err := c.Reset()
	require.NoError(t, err)

	_, _, err = c.Step(NumActions)
	require.Error(t, err)
}

func TestEpisodeEnds(t *testing.T) {
	c := newCartpole(1, 500)
	first, err := c.Reset()
	require.NoError(t, err)
	require.True(t, first.First())
	require.Equal(t, ObservationDims, first.Observation.Len())

	// Pushing right forever drops the pole well before the cutoff
	steps := 0
	for done := false; !done; steps++ {
		step, d, err := c.Step(2)
		require.NoError(t, err)
		require.Equal(t, d, step.Last())
		require.Equal(t, d, step.Terminal())
		done = d
	}
	require.Less(t, steps, 500)
}

func TestStepLimitEndsEpisode(t *testing.T) {
	c := newCartpole(3, 5)
	_, err := c.Reset()
	require.NoError(t, err)

	var done bool
	var step ts.TimeStep
	for i := 0; i < 5; i++ {
		require.False(t, done)
		step, done, err = c.Step(1)
		require.NoError(t, err)
	}
	require.True(t, done)
	require.False(t, step.Terminal())
}

func TestSeedReproducible(t *testing.T) {
	c := newCartpole(5, 10)
	c.Seed(42)
	first, err := c.Reset()
	require.NoError(t, err)

	c.Seed(42)
	second, err := c.Reset()
	require.NoError(t, err)

	require.Equal(t, first.Observation.RawVector().Data,
		second.Observation.RawVector().Data)
}

func TestRender(t *testing.T) {
	c := newCartpole(1, 10)
	_, err := c.Reset()
	require.NoError(t, err)

	dc := gg.NewContext(32, 32)
	c.Render(dc)

	// The cart is drawn in black below the centre of the frame
	r, g, b, _ := dc.Image().At(16, 24).RGBA()
	require.Zero(t, r+g+b)
}
