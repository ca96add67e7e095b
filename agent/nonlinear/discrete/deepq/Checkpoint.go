package deepq

import (
	"errors"
	"fmt"

	"github.com/samuelfneumann/godqn/experiment/checkpointer"
	"github.com/samuelfneumann/godqn/network"
)

const checkpointVersion = 1

// checkpoint is the gob encoded contents of a checkpoint file. Target
// is nil for checkpoints that only save what is needed to act.
type checkpoint struct {
	Version    int
	Arch       network.Arch
	InputShape []int
	NumActions int
	Policy     []network.Param
	Target     []network.Param
}

// Save saves the weights of the agent to path. If full is true the
// target estimator is saved as well. The file is replaced atomically.
//
// The state of the solver is not saved.
func (d *DeepQ) Save(path string, full bool) error {
	c := checkpoint{
		Version:    checkpointVersion,
		Arch:       d.q.arch,
		InputShape: d.q.inputShape,
		NumActions: d.numActions,
		Policy:     d.q.Params(),
	}
	if full {
		c.Target = d.target.Params()
	}

	if err := checkpointer.SaveGob(path, c); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Load loads the weights saved at path into the agent. If the file
// holds no target weights, the target estimator is synced to the loaded
// policy estimator. The solver is reset. If the checkpoint does not
// match the agent a *CheckpointLoadError is returned and the agent is
// unchanged.
func (d *DeepQ) Load(path string) error {
	var c checkpoint
	if err := checkpointer.LoadGob(path, &c); err != nil {
		return &CheckpointLoadError{Path: path, Err: err}
	}

	if c.Version != checkpointVersion {
		return &CheckpointLoadError{Path: path, Err: fmt.Errorf("unsupported "+
			"checkpoint version %v", c.Version)}
	}
	if c.NumActions != d.numActions {
		return &CheckpointLoadError{
			Path:  path,
			Param: "actions",
			Want:  []int{d.numActions},
			Have:  []int{c.NumActions},
		}
	}

	if err := network.CheckParams(d.q.batch, c.Policy); err != nil {
		return loadError(path, "policy", err)
	}
	if c.Target != nil {
		if err := network.CheckParams(d.target.batch, c.Target); err != nil {
			return loadError(path, "target", err)
		}
	}

	if err := d.q.setParams(c.Policy); err != nil {
		return loadError(path, "policy", err)
	}
	var err error
	if c.Target != nil {
		err = d.target.setParams(c.Target)
	} else {
		err = d.target.SyncFrom(d.q)
	}
	if err != nil {
		return loadError(path, "target", err)
	}

	d.solver.Reset()
	return nil
}

// loadError converts err into a *CheckpointLoadError
func loadError(path, estimator string, err error) error {
	var mismatch *network.ParamMismatchError
	if !errors.As(err, &mismatch) {
		return &CheckpointLoadError{Path: path, Err: err}
	}

	param := fmt.Sprintf("%v/%v", estimator, mismatch.Name)
	if mismatch.Index < 0 {
		param = estimator + "/count"
	}
	return &CheckpointLoadError{
		Path:  path,
		Param: param,
		Want:  mismatch.Want,
		Have:  mismatch.Have,
		Err:   err,
	}
}
