package experiment

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/samuelfneumann/godqn/agent/nonlinear/discrete/deepq"
	"github.com/samuelfneumann/godqn/environment/envconfig"
	"github.com/samuelfneumann/godqn/expreplay"
	"github.com/samuelfneumann/godqn/initwfn"
	"github.com/samuelfneumann/godqn/network"
	"github.com/samuelfneumann/godqn/solver"
)

// Config represents a configuration of a training run: the agent, the
// environment, and the schedule on which the agent acts, learns, and is
// checkpointed and evaluated.
type Config struct {
	deepq.Config
	Env envconfig.Config `json:"env"`

	// Warmup is the number of steps of uniformly random actions taken
	// before the first update
	Warmup int `json:"warmup"`

	Freq       int `json:"freq"`        // Steps between updates
	TargetFreq int `json:"target_freq"` // Steps between target syncs

	// Exploration schedule
	EpsStart   float64      `json:"eps_start"`
	EpsMin     float64      `json:"eps_min"`
	EpsDecay   float64      `json:"eps_decay"`
	Decay      ScheduleType `json:"decay"`
	DecaySteps int          `json:"decay_steps,omitempty"`

	// RewardScale multiplies rewards before they are stored for
	// learning. Tracked returns are never scaled.
	RewardScale float64 `json:"reward_scale"`

	Episodes int `json:"episodes"`
	MaxSteps int `json:"max_steps"` // 0 means no limit

	// Checkpoint cadence, at most one of which may be positive
	CheckpointEveryEpisodes int `json:"checkpoint_every_episodes"`
	CheckpointEverySteps    int `json:"checkpoint_every_steps"`

	// Evaluation after each checkpoint, 0 TestEpisodes disables it
	TestEpisodes int     `json:"test_episodes"`
	TestEpsilon  float64 `json:"test_epsilon"`

	Seed     uint64 `json:"seed"`
	ModelDir string `json:"model_dir"`

	// ResumeSchedule continues the counters and exploration rate of a
	// resumed run instead of starting them over
	ResumeSchedule bool `json:"resume_schedule"`
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if err := c.Env.Validate(); err != nil {
		return fmt.Errorf("validate: env: %w", err)
	}

	if c.Warmup < 0 {
		return fmt.Errorf("validate: warmup must be non-negative, have(%v)",
			c.Warmup)
	}
	if c.Freq < 1 || c.TargetFreq < 1 {
		return fmt.Errorf("validate: update and target sync frequencies "+
			"must be positive, have(%v, %v)", c.Freq, c.TargetFreq)
	}
	if c.EpsMin < 0 || c.EpsMin > 1 || c.EpsStart < c.EpsMin ||
		c.EpsStart > 1 {
		return fmt.Errorf("validate: need 0 <= eps_min <= eps_start <= 1, "+
			"have(%v, %v)", c.EpsMin, c.EpsStart)
	}
	if _, err := c.Schedule(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if c.RewardScale <= 0 {
		return fmt.Errorf("validate: reward scale must be positive, "+
			"have(%v)", c.RewardScale)
	}
	if c.Episodes < 1 || c.MaxSteps < 0 {
		return fmt.Errorf("validate: episodes must be positive and max "+
			"steps non-negative, have(%v, %v)", c.Episodes, c.MaxSteps)
	}
	if c.CheckpointEveryEpisodes < 0 || c.CheckpointEverySteps < 0 {
		return fmt.Errorf("validate: checkpoint cadence must be "+
			"non-negative, have(%v, %v)", c.CheckpointEveryEpisodes,
			c.CheckpointEverySteps)
	}
	if c.CheckpointEveryEpisodes > 0 && c.CheckpointEverySteps > 0 {
		return fmt.Errorf("validate: cannot checkpoint both every " +
			"episodes and every steps")
	}
	if c.TestEpisodes < 0 || c.TestEpsilon < 0 || c.TestEpsilon > 1 {
		return fmt.Errorf("validate: need non-negative test episodes and "+
			"test epsilon in [0, 1], have(%v, %v)", c.TestEpisodes,
			c.TestEpsilon)
	}
	return nil
}

// Schedule returns the exploration schedule described by the Config
func (c Config) Schedule() (Schedule, error) {
	switch c.Decay {
	case MultiplicativeDecay:
		return NewMultiplicative(c.EpsDecay, c.EpsMin)

	case LinearDecay:
		return NewLinear(c.EpsStart, c.EpsMin, c.DecaySteps)
	}
	return nil, fmt.Errorf("schedule: unknown decay %q", c.Decay)
}

// Load loads a JSON Config from filename. Fields missing from the file
// keep the values they have in c.
func (c Config) Load(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("load: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("load: could not decode %v: %w",
			filename, err)
	}
	return c, nil
}

// VectorConfig returns the default Config of agents learning from
// low dimensional state vectors
func VectorConfig() Config {
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		panic(fmt.Sprintf("vectorConfig: %v", err))
	}

	return Config{
		Config: deepq.Config{
			Config:   expreplay.Config{Capacity: 10_000, BatchSize: 64},
			Arch:     network.NewMLPArch(64, 64),
			Solver:   adam(5e-4, 1e-8),
			InitWFn:  init,
			Gamma:    0.99,
			ClipNorm: 5,
		},
		Env:                     envconfig.Config{Name: "Gym:LunarLander-v2"},
		Warmup:                  10_000,
		Freq:                    4,
		TargetFreq:              100,
		EpsStart:                1,
		EpsMin:                  0.01,
		EpsDecay:                0.995,
		Decay:                   MultiplicativeDecay,
		RewardScale:             0.1,
		Episodes:                1200,
		CheckpointEveryEpisodes: 100,
		TestEpisodes:            10,
		TestEpsilon:             0.001,
		Seed:                    20230820,
		ModelDir:                "models",
		ResumeSchedule:          true,
	}
}

// PixelConfig returns the default Config of agents learning from
// stacked frames of an Atari game
func PixelConfig() Config {
	init, err := initwfn.NewHeN(1.0)
	if err != nil {
		panic(fmt.Sprintf("pixelConfig: %v", err))
	}

	return Config{
		Config: deepq.Config{
			// Consecutive transitions share a state, so the store holds
			// about one 4x84x84 byte state per transition, 2.8 GB
			Config: expreplay.Config{
				Capacity:  100_000,
				BatchSize: 32,
				Frames:    true,
			},
			Arch:     network.NatureArch(),
			Solver:   adam(6.25e-5, 1.5e-4),
			InitWFn:  init,
			Gamma:    0.99,
			ClipNorm: 5,
		},
		Env: envconfig.Config{
			Name:             "Gym:BreakoutNoFrameskip-v4",
			ObservationShape: []int{210, 160, 3},
			FireOnReset:      true,
			Pixels:           &envconfig.PixelConfig{Width: 84, Height: 84, Stack: 4},
		},
		Warmup:               20_000,
		Freq:                 4,
		TargetFreq:           10_000,
		EpsStart:             1,
		EpsMin:               0.1,
		Decay:                LinearDecay,
		DecaySteps:           1_000_000,
		RewardScale:          1,
		Episodes:             20_001,
		CheckpointEverySteps: 200_000,
		TestEpisodes:         10,
		TestEpsilon:          0.01,
		Seed:                 20230822,
		ModelDir:             "models",
		ResumeSchedule:       true,
	}
}

func adam(stepSize, eps float64) *solver.Solver {
	s, err := solver.NewAdam(stepSize, eps, 0.9, 0.999, 1)
	if err != nil {
		panic(fmt.Sprintf("adam: %v", err))
	}
	return s
}
