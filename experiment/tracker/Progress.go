package tracker

import (
	"fmt"
	"io"

	"github.com/samuelfneumann/godqn/utils/progressbar"
)

// Progress draws a progress bar over the training episodes in place of
// per-episode log lines
type Progress struct {
	bar  *progressbar.Bar
	last string
}

// NewProgress returns a new Progress which writes to out and is full
// after the given number of episodes
func NewProgress(out io.Writer, episodes int) *Progress {
	return &Progress{bar: progressbar.New(out, 40, episodes)}
}

// Track advances the bar at the end of each training episode. An
// Evaluation only changes the status shown next to the bar.
func (p *Progress) Track(e Event) {
	switch e.Kind {
	case EpisodeEnd:
		p.bar.Increment()
		p.bar.Display(fmt.Sprintf("ewma %.2f | eps %.3f%v", e.EWMA,
			e.Epsilon, p.last))

	case Evaluation:
		p.last = fmt.Sprintf(" | eval %.2f", e.Return)
		p.bar.Display(fmt.Sprintf("ewma %.2f | eps %.3f%v", e.EWMA,
			e.Epsilon, p.last))
	}
}

// Save ends the progress bar line
func (p *Progress) Save() error {
	p.bar.Finish()
	return nil
}
