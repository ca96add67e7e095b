package tracker

import (
	"math"

	"github.com/aunum/log"
)

// Log logs a single line for each Event. It saves nothing.
type Log struct{}

// NewLog returns a new Log Tracker
func NewLog() Log {
	return Log{}
}

// Track logs an Event
func (Log) Track(e Event) {
	switch e.Kind {
	case EpisodeEnd:
		if math.IsNaN(e.Loss) {
			log.Infof("step %v | episode %v | length %v | return %.3f | "+
				"ewma %.3f | epsilon %.4f", e.Step, e.Episode, e.Length,
				e.Return, e.EWMA, e.Epsilon)
			return
		}
		log.Infof("step %v | episode %v | length %v | return %.3f | "+
			"ewma %.3f | epsilon %.4f | loss %.5f", e.Step, e.Episode,
			e.Length, e.Return, e.EWMA, e.Epsilon, e.Loss)

	case Evaluation:
		log.Successf("step %v | evaluation over %v episodes | mean return "+
			"%.3f", e.Step, e.Length, e.Return)
	}
}

// Save does nothing
func (Log) Save() error {
	return nil
}
