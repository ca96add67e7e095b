package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/aunum/log"
	"github.com/samuelfneumann/godqn/experiment"
	"github.com/spf13/cobra"
)

var (
	modelPath    string
	evalEpisodes int
	evalEpsilon  float64
)

// EvalCommand evaluates a saved model
func EvalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a saved model",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("episodes") {
				c.TestEpisodes = evalEpisodes
			}
			if cmd.Flags().Changed("epsilon") {
				c.TestEpsilon = evalEpsilon
			}
			return evaluate(c)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&modelPath, "model", "m", "", "checkpoint to evaluate")
	flags.IntVar(&evalEpisodes, "episodes", 0, "number of episodes")
	flags.Float64Var(&evalEpsilon, "epsilon", 0, "exploration rate")
	cobra.CheckErr(cmd.MarkFlagRequired("model"))

	return cmd
}

func evaluate(c experiment.Config) error {
	e, err := c.Env.Create(c.Seed)
	if err != nil {
		return err
	}
	defer closeEnv(e)

	a, err := experiment.NewAgent(c.Config, e, c.Seed)
	if err != nil {
		return err
	}
	if err := a.Load(modelPath); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	returns, err := experiment.Evaluate(ctx, e, a, c.TestEpisodes,
		c.TestEpsilon, c.Seed)
	if err != nil {
		return err
	}

	var total float64
	for i, r := range returns {
		log.Infof("episode %v | return %.3f", i, r)
		total += r
	}
	if len(returns) > 0 {
		log.Successf("mean return over %v episodes: %.3f", len(returns),
			total/float64(len(returns)))
	}
	return nil
}
