package checkpointer

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// recorder records the paths it is checkpointed to
type recorder struct {
	paths []string
	err   error
}

func (r *recorder) Checkpoint(path string) error {
	if r.err != nil {
		return r.err
	}
	r.paths = append(r.paths, path)
	return nil
}

func TestFilenameEnumerator(t *testing.T) {
	next := FilenameEnumerator(0, "dir/ckpt", ".bin")
	require.Equal(t, "dir/ckpt1.bin", next())
	require.Equal(t, "dir/ckpt2.bin", next())

	next = FilenameEnumerator(4, "ckpt", "")
	require.Equal(t, "ckpt5", next())
}

func TestEveryEpisodes(t *testing.T) {
	r := &recorder{}
	c, err := EveryEpisodes(100, r, FilenameEnumerator(0, "ckpt", ".bin"))
	require.NoError(t, err)

	var written []string
	for ep := 0; ep <= 300; ep++ {
		path, err := c.EpisodeStart(ep)
		require.NoError(t, err)
		if path != "" {
			written = append(written, path)
		}

		path, err = c.Step(ep)
		require.NoError(t, err)
		require.Empty(t, path)
	}

	// Episode 0 never checkpoints
	require.Equal(t, []string{"ckpt1.bin", "ckpt2.bin", "ckpt3.bin"}, written)
	require.Equal(t, written, r.paths)
}

func TestEverySteps(t *testing.T) {
	r := &recorder{}
	c, err := EverySteps(5, r, FilenameEnumerator(0, "s", ""))
	require.NoError(t, err)

	for step := 1; step <= 12; step++ {
		_, err := c.Step(step)
		require.NoError(t, err)

		path, err := c.EpisodeStart(step)
		require.NoError(t, err)
		require.Empty(t, path)
	}
	require.Equal(t, []string{"s1", "s2"}, r.paths)
}

func TestCheckpointError(t *testing.T) {
	r := &recorder{err: errors.New("disk full")}
	c, err := EverySteps(1, r, FilenameEnumerator(0, "s", ""))
	require.NoError(t, err)

	path, err := c.Step(1)
	require.Error(t, err)
	require.Empty(t, path)
}

func TestInvalidInterval(t *testing.T) {
	_, err := EverySteps(0, &recorder{}, nil)
	require.Error(t, err)

	_, err = EveryEpisodes(-1, &recorder{}, nil)
	require.Error(t, err)
}

func TestWriteAtomicFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ckpt.bin")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	err := WriteAtomic(path, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return errors.New("interrupted")
	})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "old", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestGobRoundTrip(t *testing.T) {
	type state struct {
		Step    int
		Epsilon float64
	}
	path := filepath.Join(t.TempDir(), "state.run")

	require.NoError(t, SaveGob(path, state{Step: 12, Epsilon: 0.25}))

	var got state
	require.NoError(t, LoadGob(path, &got))
	require.Equal(t, state{Step: 12, Epsilon: 0.25}, got)

	require.Error(t, LoadGob(filepath.Join(t.TempDir(), "missing"), &got))
}
