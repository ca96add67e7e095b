package experiment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Phase is the phase of a training run
type Phase int

const (
	// Warmup fills the replay buffer with uniformly random actions
	Warmup Phase = iota

	// ExploreLearn acts epsilon greedily and learns
	ExploreLearn

	// Done is reached once the episode or step budget is used up
	Done
)

func (p Phase) String() string {
	switch p {
	case Warmup:
		return "Warmup"
	case ExploreLearn:
		return "ExploreLearn"
	case Done:
		return "Done"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// RunState is the mutable state of a training run. It is owned by a
// single Trainer and saved next to each checkpoint so that a run can be
// resumed.
type RunState struct {
	Phase      Phase
	TotalSteps int
	Episode    int // Number of episodes finished
	Epsilon    float64
	EWMA       float64 // Moving average of episodic returns

	// Statistics of the current episode
	EpisodeReturn float64
	EpisodeLength int
	Losses        []float64

	// Checkpoints is the number of checkpoints written
	Checkpoints int
}

// ewmaWeight is the weight of the newest return in the moving average
const ewmaWeight = 0.05

// endEpisode folds the current episode into the moving average and
// starts a new episode
func (s *RunState) endEpisode() {
	s.EWMA = ewmaWeight*s.EpisodeReturn + (1-ewmaWeight)*s.EWMA
	s.Episode++
}

// startEpisode clears the statistics of the current episode
func (s *RunState) startEpisode() {
	s.EpisodeReturn = 0
	s.EpisodeLength = 0
	s.Losses = s.Losses[:0]
}

// meanLoss returns the mean loss of the current episode, NaN if no
// updates were made
func (s *RunState) meanLoss() float64 {
	if len(s.Losses) == 0 {
		return math.NaN()
	}
	return stat.Mean(s.Losses, nil)
}
