// Package experiment implements the training loop of replay based
// deep Q-learning agents: warmup, epsilon greedy exploration with
// periodic updates and target syncs, checkpointing, and evaluation.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aunum/log"
	"github.com/samuelfneumann/godqn/agent"
	env "github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/experiment/checkpointer"
	"github.com/samuelfneumann/godqn/experiment/tracker"
	"github.com/samuelfneumann/godqn/expreplay"
	ts "github.com/samuelfneumann/godqn/timestep"
)

// RunStateExt is the extension added to a checkpoint path to get the
// path of the RunState saved with it
const RunStateExt = ".run"

// Trainer trains an agent on an environment. The Trainer decides when
// the agent acts randomly or epsilon greedily, when it learns, and when
// its target estimator is synced:
//
//	Warmup:       the first Warmup steps take uniformly random actions
//	ExploreLearn: actions are epsilon greedy, epsilon decays after each
//	              selection; every Freq steps the agent learns and
//	              every TargetFreq steps its target is synced
//	Done:         the episode or step budget is used up
//
// Every transition is given to the agent, with its reward scaled by
// RewardScale.
type Trainer struct {
	config   Config
	env      env.Environment
	evalEnv  env.Environment
	agent    agent.Agent
	schedule Schedule
	tracker  tracker.Tracker

	state RunState

	// resumed skips the checkpoint at the start of the first episode
	// after resuming, since that checkpoint has already been written
	resumed bool
}

// NewTrainer returns a new Trainer. Evaluation runs on evalEnv, which
// should be a separate instance of the training environment; a nil
// evalEnv disables evaluation. A nil tracker tracks nothing.
func NewTrainer(config Config, e, evalEnv env.Environment, a agent.Agent,
	t tracker.Tracker) (*Trainer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("newTrainer: %w", err)
	}
	schedule, err := config.Schedule()
	if err != nil {
		return nil, fmt.Errorf("newTrainer: %w", err)
	}
	if t == nil {
		t = tracker.Multi{}
	}

	return &Trainer{
		config:   config,
		env:      e,
		evalEnv:  evalEnv,
		agent:    a,
		schedule: schedule,
		tracker:  t,
		state:    RunState{Epsilon: config.EpsStart},
	}, nil
}

// State returns the current state of the run
func (t *Trainer) State() RunState {
	return t.state
}

// Run runs the training loop until the episode or step budget is used
// up or ctx is cancelled. The tracker is saved and, if a model
// directory is configured, the final policy is saved when the run
// finishes.
//
// Errors returned by the agent other than an insufficiently full
// replay buffer are fatal and returned immediately. No checkpoint is
// written after such an error.
func (t *Trainer) Run(ctx context.Context) error {
	ckpt, err := t.checkpointer()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	for !t.exhausted() {
		if !t.resumed {
			path, err := ckpt.EpisodeStart(t.state.Episode)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			if err := t.afterCheckpoint(ctx, path); err != nil {
				return fmt.Errorf("run: %w", err)
			}
		}
		t.resumed = false

		if err := t.runEpisode(ctx, ckpt); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}
	t.state.Phase = Done

	if t.config.ModelDir != "" {
		path := filepath.Join(t.config.ModelDir, "final.bin")
		if err := t.agent.Save(path, false); err != nil {
			return fmt.Errorf("run: could not save final model: %w", err)
		}
		log.Infof("final model saved to %v", path)
	}

	if err := t.tracker.Save(); err != nil {
		return fmt.Errorf("run: could not save tracked data: %w", err)
	}
	return nil
}

// exhausted returns whether the episode or step budget is used up
func (t *Trainer) exhausted() bool {
	if t.state.Episode >= t.config.Episodes {
		return true
	}
	return t.config.MaxSteps > 0 && t.state.TotalSteps >= t.config.MaxSteps
}

// runEpisode runs a single episode. An episode cut short by the step
// budget is not recorded.
func (t *Trainer) runEpisode(ctx context.Context,
	ckpt checkpointer.Checkpointer) error {
	t.state.startEpisode()

	step, err := t.env.Reset()
	if err != nil {
		return fmt.Errorf("runEpisode: could not reset environment: %w", err)
	}

	for !step.Last() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.exhausted() {
			return nil
		}

		if step, err = t.step(step); err != nil {
			return err
		}

		path, err := ckpt.Step(t.state.TotalSteps)
		if err != nil {
			return err
		}
		if err := t.afterCheckpoint(ctx, path); err != nil {
			return err
		}
	}

	t.state.endEpisode()
	t.tracker.Track(tracker.Event{
		Kind:    tracker.EpisodeEnd,
		Step:    t.state.TotalSteps,
		Episode: t.state.Episode,
		Length:  t.state.EpisodeLength,
		Return:  t.state.EpisodeReturn,
		EWMA:    t.state.EWMA,
		Epsilon: t.state.Epsilon,
		Loss:    t.state.meanLoss(),
	})
	return nil
}

// step takes a single environmental step from prev and returns the
// next timestep
func (t *Trainer) step(prev ts.TimeStep) (ts.TimeStep, error) {
	s := &t.state
	space := t.env.ActionSpace()

	var action int
	if s.TotalSteps < t.config.Warmup {
		s.Phase = Warmup
		action = space.Sample()
	} else {
		s.Phase = ExploreLearn

		var err error
		action, err = t.agent.SelectAction(prev.Observation, s.Epsilon, space)
		if err != nil {
			return ts.TimeStep{}, fmt.Errorf("step: %w", err)
		}
		s.Epsilon = t.schedule.Next(s.Epsilon)
	}

	next, _, err := t.env.Step(action)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("step: could not step "+
			"environment: %w", err)
	}

	transition := ts.NewTransition(prev, action, next, t.config.RewardScale)
	if err := t.agent.Observe(transition); err != nil {
		return ts.TimeStep{}, fmt.Errorf("step: %w", err)
	}

	s.TotalSteps++
	s.EpisodeLength++
	s.EpisodeReturn += next.Reward

	if s.Phase != ExploreLearn {
		return next, nil
	}

	if s.TotalSteps%t.config.Freq == 0 {
		loss, err := t.agent.Learn()
		switch {
		case expreplay.IsInsufficientData(err):
			log.Debugf("step %v: skipping update: %v", s.TotalSteps, err)

		case err != nil:
			return ts.TimeStep{}, fmt.Errorf("step %v: %w", s.TotalSteps, err)

		default:
			s.Losses = append(s.Losses, loss)
		}
	}

	if s.TotalSteps%t.config.TargetFreq == 0 {
		if err := t.agent.SyncTarget(); err != nil {
			return ts.TimeStep{}, fmt.Errorf("step %v: %w", s.TotalSteps, err)
		}
		log.Debugf("step %v: target synced", s.TotalSteps)
	}

	return next, nil
}

// checkpointer returns the Checkpointer of the configured cadence. If
// no model directory or cadence is configured, nothing is checkpointed.
func (t *Trainer) checkpointer() (checkpointer.Checkpointer, error) {
	dir := t.config.ModelDir
	if dir == "" {
		return never{}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("checkpointer: %w", err)
	}

	filename := checkpointer.FilenameEnumerator(t.state.Checkpoints,
		filepath.Join(dir, "checkpoint-"), ".bin")

	switch {
	case t.config.CheckpointEveryEpisodes > 0:
		return checkpointer.EveryEpisodes(t.config.CheckpointEveryEpisodes,
			t, filename)

	case t.config.CheckpointEverySteps > 0:
		return checkpointer.EverySteps(t.config.CheckpointEverySteps, t,
			filename)
	}
	return never{}, nil
}

// Checkpoint saves the agent to path and the RunState next to it
func (t *Trainer) Checkpoint(path string) error {
	if err := t.agent.Save(path, true); err != nil {
		return err
	}

	t.state.Checkpoints++
	if err := checkpointer.SaveGob(path+RunStateExt, t.state); err != nil {
		t.state.Checkpoints--
		return err
	}
	return nil
}

// afterCheckpoint logs a written checkpoint and evaluates the agent.
// An empty path means nothing was checkpointed.
func (t *Trainer) afterCheckpoint(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	log.Infof("step %v: checkpoint saved to %v", t.state.TotalSteps, path)

	if t.evalEnv == nil || t.config.TestEpisodes == 0 {
		return nil
	}

	mean, err := t.Evaluate(ctx)
	if err != nil {
		return err
	}
	t.tracker.Track(tracker.Event{
		Kind:    tracker.Evaluation,
		Step:    t.state.TotalSteps,
		Episode: t.state.Episode,
		Length:  t.config.TestEpisodes,
		Return:  mean,
		EWMA:    t.state.EWMA,
		Epsilon: t.config.TestEpsilon,
	})
	return nil
}

// Evaluate runs the configured number of evaluation episodes on the
// evaluation environment and returns the mean return. Nothing is
// learned or stored.
func (t *Trainer) Evaluate(ctx context.Context) (float64, error) {
	if t.evalEnv == nil {
		return 0, fmt.Errorf("evaluate: no evaluation environment")
	}

	returns, err := Evaluate(ctx, t.evalEnv, t.agent, t.config.TestEpisodes,
		t.config.TestEpsilon, t.config.Seed)
	if err != nil {
		return 0, err
	}
	return mean(returns), nil
}

// Resume loads the checkpoint at path into the agent. If the Config
// asks to resume the schedule, the RunState saved with the checkpoint
// is restored so that counters and the exploration rate continue where
// they were; otherwise they start over.
func (t *Trainer) Resume(path string) error {
	if err := t.agent.Load(path); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if !t.config.ResumeSchedule {
		return nil
	}

	var state RunState
	err := checkpointer.LoadGob(path+RunStateExt, &state)
	if errors.Is(err, os.ErrNotExist) {
		log.Infof("resume: no run state saved with %v, starting the "+
			"schedule over", path)
		return nil
	} else if err != nil {
		return fmt.Errorf("resume: %w", err)
	}

	t.state = state
	t.resumed = true
	log.Infof("resumed at step %v, episode %v, epsilon %.4f",
		state.TotalSteps, state.Episode, state.Epsilon)
	return nil
}

// never is a Checkpointer which never checkpoints
type never struct{}

func (never) EpisodeStart(int) (string, error) { return "", nil }
func (never) Step(int) (string, error)         { return "", nil }
