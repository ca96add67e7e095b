// Command godqn trains and evaluates deep Q-learning agents with
// experience replay on Cartpole and OpenAI Gym environments.
package main

import (
	"encoding/json"
	"fmt"

	"github.com/aunum/log"
	"github.com/samuelfneumann/godqn/environment/gym"
	"github.com/samuelfneumann/godqn/experiment"
	"github.com/spf13/cobra"
)

const (
	vectorVariant = "vector"
	pixelVariant  = "pixel"
)

var (
	configFile string
	variant    string
)

func main() {
	root := &cobra.Command{
		Use:           "godqn",
		Short:         "Deep Q-learning with experience replay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"JSON configuration file, overlaid on the variant's defaults")
	root.PersistentFlags().StringVar(&variant, "variant", vectorVariant,
		"default configuration to start from: vector or pixel")

	root.AddCommand(TrainCommand(), EvalCommand(), ConfigCommand())

	err := root.Execute()
	gym.Shutdown()
	if err != nil {
		log.Fatalf("%v", err)
	}
}

// loadConfig returns the default Config of the chosen variant with the
// configuration file, if any, overlaid on it
func loadConfig() (experiment.Config, error) {
	var c experiment.Config
	switch variant {
	case vectorVariant:
		c = experiment.VectorConfig()
	case pixelVariant:
		c = experiment.PixelConfig()
	default:
		return experiment.Config{}, fmt.Errorf("unknown variant %q", variant)
	}

	if configFile != "" {
		var err error
		if c, err = c.Load(configFile); err != nil {
			return experiment.Config{}, err
		}
	}
	return c, nil
}

// ConfigCommand prints the configuration a run would use
func ConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the configuration as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(c, "", "  ")
			if err != nil {
				return fmt.Errorf("could not encode configuration: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
