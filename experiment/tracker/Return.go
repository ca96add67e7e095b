package tracker

import (
	"fmt"

	"github.com/samuelfneumann/godqn/experiment/checkpointer"
)

// Data is the data saved by a Return Tracker. Entry i of each slice
// belongs to the i-th tracked Event.
type Data struct {
	Steps   []int
	Returns []float64
	EWMA    []float64
}

// Return tracks and saves the returns of episodes, together with the
// moving average of returns and the step at which each was recorded.
type Return struct {
	data     Data
	filename string
}

// NewReturn creates and returns a new *Return Tracker which saves its
// data, gob encoded, to filename
func NewReturn(filename string) *Return {
	return &Return{filename: filename}
}

// Track records the return and moving average of an Event
func (r *Return) Track(e Event) {
	r.data.Steps = append(r.data.Steps, e.Step)
	r.data.Returns = append(r.data.Returns, e.Return)
	r.data.EWMA = append(r.data.EWMA, e.EWMA)
}

// Data returns the data tracked so far
func (r *Return) Data() Data {
	return r.data
}

// Save saves the data tracked by the Return Tracker to disk.
func (r *Return) Save() error {
	if err := checkpointer.SaveGob(r.filename, r.data); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// LoadData loads and returns the data saved by a Return Tracker
func LoadData(filename string) (Data, error) {
	var data Data
	if err := checkpointer.LoadGob(filename, &data); err != nil {
		return Data{}, fmt.Errorf("loadData: %w", err)
	}
	return data, nil
}
