// Package tracker implements Trackers, which track and save data
// generated while training an agent
package tracker

import "fmt"

// Kind is the kind of an Event
type Kind int

const (
	// EpisodeEnd is emitted when a training episode ends
	EpisodeEnd Kind = iota

	// Evaluation is emitted when an evaluation pass ends. Its Return
	// is the mean return over the evaluation episodes.
	Evaluation
)

func (k Kind) String() string {
	switch k {
	case EpisodeEnd:
		return "EpisodeEnd"
	case Evaluation:
		return "Evaluation"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Event is a single measurement made during training
type Event struct {
	Kind    Kind
	Step    int // Total environment steps taken so far
	Episode int
	Length  int // Episode length, or number of episodes for Evaluation
	Return  float64
	EWMA    float64 // Moving average of episodic returns
	Epsilon float64

	// Loss is the mean loss of the updates made during the episode, NaN
	// if there were none
	Loss float64
}

// Tracker keeps track of experiment data and saves the data once the
// experiment has finished
type Tracker interface {
	Track(e Event)
	Save() error
}

// Multi is a Tracker which sends each Event to many Trackers
type Multi []Tracker

// Track tracks an Event with each Tracker
func (m Multi) Track(e Event) {
	for _, t := range m {
		t.Track(e)
	}
}

// Save saves each Tracker, returning the first error encountered
func (m Multi) Save() error {
	for _, t := range m {
		if err := t.Save(); err != nil {
			return err
		}
	}
	return nil
}
