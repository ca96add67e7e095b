// Package checkpointer decides when training state is checkpointed and
// writes checkpoint files so that a partially written file is never
// visible under its final name.
package checkpointer

import "fmt"

// Checkpointable is an object that can be saved to a checkpoint file
type Checkpointable interface {
	Checkpoint(path string) error
}

// Checkpointer checkpoints a Checkpointable at some cadence. Both
// methods return the path of the checkpoint written, or the empty
// string if no checkpoint was due.
type Checkpointer interface {
	// EpisodeStart is called before each episode is run. Episodes are
	// numbered from 0.
	EpisodeStart(episode int) (string, error)

	// Step is called after each environment step with the total number
	// of steps taken so far
	Step(totalSteps int) (string, error)
}

// nEpisodes implements checkpointing at the start of every n-th
// episode
type nEpisodes struct {
	interval int
	object   Checkpointable

	// filename returns the name of the file to save the object in.
	//
	// If each checkpoint should be saved in a separate file with each
	// file having an incremented number as a suffix (e.g. ckpt1.bin,
	// ckpt2.bin, ..., ckptK.bin), then simply use the function
	// FilenameEnumerator.
	filename func() string
}

// EveryEpisodes returns a Checkpointer that checkpoints at the start of
// every episode > 0 which is divisible by n
func EveryEpisodes(n int, object Checkpointable,
	filename func() string) (Checkpointer, error) {
	if n < 1 {
		return nil, fmt.Errorf("everyEpisodes: interval must be positive, "+
			"have(%v)", n)
	}
	return &nEpisodes{interval: n, object: object, filename: filename}, nil
}

// EpisodeStart checkpoints if episode is a positive multiple of the
// interval
func (n *nEpisodes) EpisodeStart(episode int) (string, error) {
	if episode <= 0 || episode%n.interval != 0 {
		return "", nil
	}
	return checkpoint(n.object, n.filename())
}

// Step never checkpoints
func (n *nEpisodes) Step(int) (string, error) {
	return "", nil
}

// nSteps implements checkpointing every n environment steps
type nSteps struct {
	interval int
	object   Checkpointable
	filename func() string
}

// EverySteps returns a Checkpointer that checkpoints after every step
// whose total step count is divisible by n
func EverySteps(n int, object Checkpointable,
	filename func() string) (Checkpointer, error) {
	if n < 1 {
		return nil, fmt.Errorf("everySteps: interval must be positive, "+
			"have(%v)", n)
	}
	return &nSteps{interval: n, object: object, filename: filename}, nil
}

// EpisodeStart never checkpoints
func (n *nSteps) EpisodeStart(int) (string, error) {
	return "", nil
}

// Step checkpoints if totalSteps is a positive multiple of the
// interval
func (n *nSteps) Step(totalSteps int) (string, error) {
	if totalSteps <= 0 || totalSteps%n.interval != 0 {
		return "", nil
	}
	return checkpoint(n.object, n.filename())
}

func checkpoint(object Checkpointable, path string) (string, error) {
	if err := object.Checkpoint(path); err != nil {
		return "", fmt.Errorf("checkpoint: %w", err)
	}
	return path, nil
}
