package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/aunum/log"
	"github.com/google/uuid"
	env "github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/experiment"
	"github.com/samuelfneumann/godqn/experiment/tracker"
	"github.com/spf13/cobra"
)

var (
	envName    string
	episodes   int
	maxSteps   int
	modelDir   string
	runID      string
	resumeFrom string
	seed       uint64
	progress   bool
)

// TrainCommand trains an agent
func TrainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train an agent",
		Long: "Train an agent. Checkpoints, tracked returns, and learning " +
			"curves are written to <model_dir>/<run id>, where the run id " +
			"is random unless given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("env") {
				c.Env.Name = envName
			}
			if flags.Changed("episodes") {
				c.Episodes = episodes
			}
			if flags.Changed("max-steps") {
				c.MaxSteps = maxSteps
			}
			if flags.Changed("model-dir") {
				c.ModelDir = modelDir
			}
			if flags.Changed("seed") {
				c.Seed = seed
			}

			return train(c)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&envName, "env", "", "environment, e.g. Cartpole or "+
		"Gym:LunarLander-v2")
	flags.IntVar(&episodes, "episodes", 0, "number of training episodes")
	flags.IntVar(&maxSteps, "max-steps", 0, "total step budget, 0 for none")
	flags.StringVar(&modelDir, "model-dir", "", "directory holding runs")
	flags.StringVar(&runID, "run-id", "", "name of the run directory")
	flags.StringVar(&resumeFrom, "resume", "", "checkpoint to resume from")
	flags.Uint64Var(&seed, "seed", 0, "random seed")
	flags.BoolVar(&progress, "progress", false, "draw a progress bar "+
		"instead of logging each episode")

	return cmd
}

func train(c experiment.Config) error {
	if c.ModelDir != "" {
		switch {
		case runID != "":
			c.ModelDir = filepath.Join(c.ModelDir, runID)
		case resumeFrom != "":
			c.ModelDir = filepath.Dir(resumeFrom)
		default:
			c.ModelDir = filepath.Join(c.ModelDir, uuid.New().String())
		}
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ModelDir != "" {
		if err := saveConfig(c); err != nil {
			return err
		}
	}

	e, err := c.Env.Create(c.Seed)
	if err != nil {
		return err
	}
	defer closeEnv(e)

	evalEnv, err := c.Env.Create(c.Seed + 1)
	if err != nil {
		return err
	}
	defer closeEnv(evalEnv)

	a, err := experiment.NewAgent(c.Config, e, c.Seed)
	if err != nil {
		return err
	}

	trainer, err := experiment.NewTrainer(c, e, evalEnv, a, trackers(c))
	if err != nil {
		return err
	}
	if resumeFrom != "" {
		if err := trainer.Resume(resumeFrom); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	log.Infof("training on %v, saving to %q", c.Env.Name, c.ModelDir)
	if err := trainer.Run(ctx); err != nil {
		return err
	}
	log.Successf("trained for %v steps over %v episodes",
		trainer.State().TotalSteps, trainer.State().Episode)
	return nil
}

// trackers returns the Trackers of a training run. Data is only saved
// if the run has a model directory.
func trackers(c experiment.Config) tracker.Tracker {
	var t tracker.Multi
	if progress {
		t = append(t, tracker.NewProgress(os.Stderr, c.Episodes))
	} else {
		t = append(t, tracker.NewLog())
	}

	if c.ModelDir == "" {
		return t
	}
	dir := c.ModelDir
	return append(t,
		tracker.Register(tracker.NewReturn(filepath.Join(dir, "returns.bin")),
			tracker.EpisodeEnd),
		tracker.Register(tracker.NewReturn(filepath.Join(dir, "eval.bin")),
			tracker.Evaluation),
		tracker.Register(tracker.NewCurve(c.Env.Name,
			filepath.Join(dir, "returns.png")), tracker.EpisodeEnd),
		tracker.Register(tracker.NewCurve(c.Env.Name+" evaluation",
			filepath.Join(dir, "eval.png")), tracker.Evaluation),
	)
}

// saveConfig saves the configuration of a run in its model directory
func saveConfig(c experiment.Config) error {
	if err := os.MkdirAll(c.ModelDir, 0o755); err != nil {
		return fmt.Errorf("could not create model directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode configuration: %w", err)
	}
	return os.WriteFile(filepath.Join(c.ModelDir, "config.json"), data, 0o644)
}

func closeEnv(e env.Environment) {
	if closer, ok := e.(env.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Debugf("could not close environment: %v", err)
		}
	}
}
