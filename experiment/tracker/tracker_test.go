package tracker

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func episode(step int, ret, ewma float64) Event {
	return Event{
		Kind:   EpisodeEnd,
		Step:   step,
		Return: ret,
		EWMA:   ewma,
		Loss:   math.NaN(),
	}
}

func TestReturnSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "returns.bin")
	r := NewReturn(path)

	r.Track(episode(10, 1.5, 0.075))
	r.Track(episode(25, -2, -0.02875))
	require.NoError(t, r.Save())

	data, err := LoadData(path)
	require.NoError(t, err)
	require.Equal(t, []int{10, 25}, data.Steps)
	require.Equal(t, []float64{1.5, -2}, data.Returns)
	require.Equal(t, []float64{0.075, -0.02875}, data.EWMA)
	require.Equal(t, r.Data(), data)
}

func TestRegisterFiltersKinds(t *testing.T) {
	r := NewReturn(filepath.Join(t.TempDir(), "eval.bin"))
	tr := Register(r, Evaluation)

	tr.Track(episode(1, 1, 1))
	tr.Track(Event{Kind: Evaluation, Step: 2, Return: 5})
	tr.Track(episode(3, 1, 1))

	require.Equal(t, []float64{5}, r.Data().Returns)
	require.NoError(t, tr.Save())
}

func TestMulti(t *testing.T) {
	a := NewReturn(filepath.Join(t.TempDir(), "a.bin"))
	b := NewReturn(filepath.Join(t.TempDir(), "b.bin"))
	m := Multi{a, b, NewLog()}

	m.Track(episode(1, 3, 0.15))
	m.Track(Event{Kind: Evaluation, Step: 1, Length: 10, Return: 2})

	require.Len(t, a.Data().Returns, 2)
	require.Equal(t, a.Data(), b.Data())
	require.NoError(t, m.Save())
}

func TestCurveSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curve.png")
	c := NewCurve("Cartpole", path)

	for i := 1; i <= 20; i++ {
		c.Track(episode(i*10, float64(i), float64(i)/2))
	}
	require.NoError(t, c.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestEmptyCurveSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	require.NoError(t, NewCurve("empty", path).Save())
}

func TestProgress(t *testing.T) {
	var out bytes.Buffer
	p := NewProgress(&out, 2)

	p.Track(episode(10, 1, 0.05))
	require.Contains(t, out.String(), "50.00%")

	p.Track(Event{Kind: Evaluation, Return: 7.5})
	require.Contains(t, out.String(), "eval 7.50")

	p.Track(episode(20, 2, 0.1))
	require.Contains(t, out.String(), "100.00%")
	require.NoError(t, p.Save())
}
