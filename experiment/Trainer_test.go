package experiment

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/godqn/agent/nonlinear/discrete/deepq"
	env "github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/environment/envconfig"
	"github.com/samuelfneumann/godqn/experiment/tracker"
	"github.com/samuelfneumann/godqn/expreplay"
	ts "github.com/samuelfneumann/godqn/timestep"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// chain is an environment whose episodes last length steps. Each step
// gives a reward of 1 and observes the step number.
type chain struct {
	length int
	t      int
	space  *env.ActionSpace
	seeds  []uint64
	resets int

	// timeout ends episodes with a Timeout instead of a terminal state
	timeout bool
}

func newChain(length int) *chain {
	return &chain{length: length, space: env.NewActionSpace(2, 1)}
}

func (c *chain) obs() *mat.VecDense {
	return mat.NewVecDense(1, []float64{float64(c.t)})
}

func (c *chain) Reset() (ts.TimeStep, error) {
	c.t = 0
	c.resets++
	return ts.New(ts.First, 0, c.obs(), 0), nil
}

func (c *chain) Step(action int) (ts.TimeStep, bool, error) {
	if !c.space.Contains(action) {
		return ts.TimeStep{}, false, errors.New("illegal action")
	}
	c.t++
	if c.t >= c.length {
		step := ts.New(ts.Last, 1, c.obs(), c.t)
		if c.timeout {
			step.SetEnd(ts.Timeout)
		}
		return step, true, nil
	}
	return ts.New(ts.Mid, 1, c.obs(), c.t), false, nil
}

func (c *chain) ActionSpace() *env.ActionSpace { return c.space }

func (c *chain) ObservationSpec() env.Spec {
	return env.Spec{Shape: []int{1}, Type: env.Observation}
}

func (c *chain) Seed(seed uint64) {
	c.seeds = append(c.seeds, seed)
}

// recorder is an agent recording what the Trainer asks of it
type recorder struct {
	batchSize int

	observed []ts.Transition
	epsilons []float64 // Epsilon of each greedy selection
	selectAt []int     // Transitions stored at each greedy selection
	learnAt  []int
	syncAt   []int
	saved    []string
	loaded   []string
	learnErr error

	// phases holds the phase of the trainer at each stored transition
	// if trainer is set
	trainer *Trainer
	phases  []Phase
}

func (r *recorder) SelectAction(obs *mat.VecDense, epsilon float64,
	space *env.ActionSpace) (int, error) {
	r.epsilons = append(r.epsilons, epsilon)
	r.selectAt = append(r.selectAt, len(r.observed))
	return 0, nil
}

func (r *recorder) Observe(t ts.Transition) error {
	r.observed = append(r.observed, t)
	if r.trainer != nil {
		r.phases = append(r.phases, r.trainer.State().Phase)
	}
	return nil
}

func (r *recorder) Learn() (float64, error) {
	if r.learnErr != nil {
		return 0, r.learnErr
	}
	if len(r.observed) < r.batchSize {
		return 0, &expreplay.ExpReplayError{
			Op: "sample",
			Err: &expreplay.InsufficientDataError{
				Requested: r.batchSize,
				Available: len(r.observed),
			},
		}
	}
	r.learnAt = append(r.learnAt, len(r.observed))
	return 0.5, nil
}

func (r *recorder) SyncTarget() error {
	r.syncAt = append(r.syncAt, len(r.observed))
	return nil
}

func (r *recorder) Save(path string, full bool) error {
	r.saved = append(r.saved, path)
	return os.WriteFile(path, []byte("weights"), 0o644)
}

func (r *recorder) Load(path string) error {
	r.loaded = append(r.loaded, path)
	return nil
}

func testConfig() Config {
	c := VectorConfig()
	c.Env = envconfig.Config{Name: envconfig.Cartpole}
	c.Warmup = 0
	c.Freq = 4
	c.TargetFreq = 10
	c.Episodes = 1
	c.CheckpointEveryEpisodes = 0
	c.TestEpisodes = 0
	c.ModelDir = ""
	return c
}

func newTrainer(t *testing.T, c Config, e env.Environment,
	a *recorder, tr tracker.Tracker) *Trainer {
	t.Helper()
	trainer, err := NewTrainer(c, e, newChain(3), a, tr)
	require.NoError(t, err)
	return trainer
}

func TestUpdateAndSyncCadence(t *testing.T) {
	a := &recorder{}
	trainer := newTrainer(t, testConfig(), newChain(10), a, nil)

	require.NoError(t, trainer.Run(context.Background()))
	require.Len(t, a.observed, 10)
	require.Equal(t, []int{4, 8}, a.learnAt)
	require.Equal(t, []int{10}, a.syncAt)
}

func TestWarmupActsRandomly(t *testing.T) {
	c := testConfig()
	c.Warmup = 100
	c.Episodes = 3
	a := &recorder{}
	trainer := newTrainer(t, c, newChain(50), a, nil)
	a.trainer = trainer

	require.NoError(t, trainer.Run(context.Background()))
	require.Len(t, a.observed, 150)

	// Steps 1 to 100 are warmup steps, the rest explore and learn
	require.Len(t, a.phases, 150)
	for i, phase := range a.phases {
		if i < 100 {
			require.Equal(t, Warmup, phase, "step %v", i+1)
		} else {
			require.Equal(t, ExploreLearn, phase, "step %v", i+1)
		}
	}

	// The first greedy selection is made once 100 steps are taken
	require.Len(t, a.selectAt, 50)
	require.Equal(t, 100, a.selectAt[0])

	// No updates or syncs during warmup; epsilon untouched until then
	require.Equal(t, 104, a.learnAt[0])
	require.Equal(t, 110, a.syncAt[0])
	require.Equal(t, 1.0, a.epsilons[0])
	require.Equal(t, Done, trainer.State().Phase)
}

func TestEpsilonDecaysMonotonically(t *testing.T) {
	c := testConfig()
	c.EpsDecay = 0.9
	c.EpsMin = 0.3
	c.Episodes = 5
	a := &recorder{}
	trainer := newTrainer(t, c, newChain(20), a, nil)

	require.NoError(t, trainer.Run(context.Background()))

	for i := 1; i < len(a.epsilons); i++ {
		require.LessOrEqual(t, a.epsilons[i], a.epsilons[i-1])
		require.GreaterOrEqual(t, a.epsilons[i], c.EpsMin)
	}
	require.Equal(t, c.EpsMin, trainer.State().Epsilon)
}

func TestLinearSchedule(t *testing.T) {
	s, err := NewLinear(1, 0.1, 10)
	require.NoError(t, err)

	eps := 1.0
	for i := 0; i < 10; i++ {
		eps = s.Next(eps)
	}
	require.InDelta(t, 0.1, eps, 1e-12)
	require.Equal(t, 0.1, s.Next(eps))

	_, err = NewLinear(1, 0.1, 0)
	require.Error(t, err)
}

func TestMultiplicativeSchedule(t *testing.T) {
	s, err := NewMultiplicative(0.5, 0.2)
	require.NoError(t, err)

	require.Equal(t, 0.5, s.Next(1))
	require.Equal(t, 0.25, s.Next(0.5))
	require.Equal(t, 0.2, s.Next(0.25))

	_, err = NewMultiplicative(1.5, 0)
	require.Error(t, err)
}

func TestRewardScaleOnlyAffectsStorage(t *testing.T) {
	c := testConfig()
	c.RewardScale = 0.1
	a := &recorder{}
	r := tracker.NewReturn(filepath.Join(t.TempDir(), "returns.bin"))
	trainer := newTrainer(t, c, newChain(5), a, r)

	require.NoError(t, trainer.Run(context.Background()))

	for _, tr := range a.observed {
		require.InDelta(t, 0.1, tr.Reward, 1e-12)
	}
	require.Equal(t, []float64{5}, r.Data().Returns)
	require.True(t, a.observed[4].Done)
	require.False(t, a.observed[3].Done)
}

func TestTimeoutIsNotTerminal(t *testing.T) {
	c := testConfig()
	c.Episodes = 2
	e := newChain(3)
	e.timeout = true
	a := &recorder{}
	trainer := newTrainer(t, c, e, a, nil)

	require.NoError(t, trainer.Run(context.Background()))
	require.Len(t, a.observed, 6)
	for _, tr := range a.observed {
		require.False(t, tr.Done)
	}
	require.Equal(t, 2, trainer.State().Episode)
}

func TestEWMA(t *testing.T) {
	c := testConfig()
	c.Episodes = 3
	r := tracker.NewReturn(filepath.Join(t.TempDir(), "returns.bin"))
	trainer := newTrainer(t, c, newChain(10), &recorder{}, r)

	require.NoError(t, trainer.Run(context.Background()))

	want := 0.0
	for i, ret := range r.Data().Returns {
		want = 0.05*ret + 0.95*want
		require.InDelta(t, want, r.Data().EWMA[i], 1e-12)
	}
	require.Equal(t, []int{10, 20, 30}, r.Data().Steps)
	require.InDelta(t, want, trainer.State().EWMA, 1e-12)
}

func TestInsufficientDataSkipsUpdate(t *testing.T) {
	a := &recorder{batchSize: 6}
	trainer := newTrainer(t, testConfig(), newChain(10), a, nil)

	require.NoError(t, trainer.Run(context.Background()))
	require.Equal(t, []int{8}, a.learnAt)
}

func TestFatalLearnError(t *testing.T) {
	a := &recorder{learnErr: &deepq.DivergenceError{Step: 1, Loss: math.NaN()}}
	trainer := newTrainer(t, testConfig(), newChain(10), a, nil)

	err := trainer.Run(context.Background())
	require.True(t, deepq.IsDivergence(err))
	require.Len(t, a.observed, 4)
}

func TestMaxSteps(t *testing.T) {
	c := testConfig()
	c.Episodes = 100
	c.MaxSteps = 25
	r := tracker.NewReturn(filepath.Join(t.TempDir(), "returns.bin"))
	a := &recorder{}
	trainer := newTrainer(t, c, newChain(10), a, r)

	require.NoError(t, trainer.Run(context.Background()))
	require.Len(t, a.observed, 25)
	require.Len(t, r.Data().Returns, 2)
	require.Equal(t, Done, trainer.State().Phase)
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &recorder{}
	trainer := newTrainer(t, testConfig(), newChain(10), a, nil)

	err := trainer.Run(ctx)
	require.True(t, errors.Is(err, context.Canceled))
	require.Empty(t, a.observed)
}

func TestCheckpointAndEvaluate(t *testing.T) {
	dir := t.TempDir()
	c := testConfig()
	c.Episodes = 5
	c.CheckpointEveryEpisodes = 2
	c.TestEpisodes = 3
	c.TestEpsilon = 0.01
	c.ModelDir = dir

	a := &recorder{}
	evalEnv := newChain(4)
	evals := tracker.NewReturn(filepath.Join(dir, "evals.bin"))
	trainer, err := NewTrainer(c, newChain(10), evalEnv, a,
		tracker.Register(evals, tracker.Evaluation))
	require.NoError(t, err)

	require.NoError(t, trainer.Run(context.Background()))

	// Checkpoints at the start of episodes 2 and 4, then the final model
	require.Equal(t, []string{
		filepath.Join(dir, "checkpoint-1.bin"),
		filepath.Join(dir, "checkpoint-2.bin"),
		filepath.Join(dir, "final.bin"),
	}, a.saved)
	require.FileExists(t, filepath.Join(dir, "checkpoint-1.bin"+RunStateExt))

	// Evaluation never stores transitions
	require.Len(t, a.observed, 50)
	require.Equal(t, []float64{4, 4}, evals.Data().Returns)
	require.Equal(t, []uint64{c.Seed, c.Seed + 1, c.Seed + 2,
		c.Seed, c.Seed + 1, c.Seed + 2}, evalEnv.seeds)
}

func TestEverySteps(t *testing.T) {
	dir := t.TempDir()
	c := testConfig()
	c.Episodes = 2
	c.CheckpointEverySteps = 7
	c.ModelDir = dir

	a := &recorder{}
	trainer := newTrainer(t, c, newChain(10), a, nil)
	require.NoError(t, trainer.Run(context.Background()))

	require.Equal(t, []string{
		filepath.Join(dir, "checkpoint-1.bin"),
		filepath.Join(dir, "checkpoint-2.bin"),
		filepath.Join(dir, "final.bin"),
	}, a.saved)
	require.Equal(t, 2, trainer.State().Checkpoints)
}

func TestResume(t *testing.T) {
	dir := t.TempDir()
	c := testConfig()
	c.Episodes = 4
	c.CheckpointEveryEpisodes = 2
	c.EpsDecay = 0.9
	c.ModelDir = dir

	first := &recorder{}
	trainer := newTrainer(t, c, newChain(10), first, nil)
	require.NoError(t, trainer.Run(context.Background()))

	ckpt := filepath.Join(dir, "checkpoint-1.bin")

	// Resuming continues counters and epsilon
	second := &recorder{}
	resumed := newTrainer(t, c, newChain(10), second, nil)
	require.NoError(t, resumed.Resume(ckpt))
	require.Equal(t, []string{ckpt}, second.loaded)
	require.Equal(t, 20, resumed.State().TotalSteps)
	require.Equal(t, 2, resumed.State().Episode)
	require.Equal(t, first.epsilons[20], resumed.State().Epsilon)

	require.NoError(t, resumed.Run(context.Background()))
	require.Len(t, second.observed, 20)
	require.Equal(t, 40, resumed.State().TotalSteps)

	// The resumed run does not rewrite the checkpoint it started from
	require.Equal(t, filepath.Join(dir, "final.bin"), second.saved[0])

	// Without resuming the schedule everything starts over
	c.ResumeSchedule = false
	third := &recorder{}
	restarted := newTrainer(t, c, newChain(10), third, nil)
	require.NoError(t, restarted.Resume(ckpt))
	require.Equal(t, 0, restarted.State().TotalSteps)
	require.Equal(t, c.EpsStart, restarted.State().Epsilon)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, VectorConfig().Validate())
	require.NoError(t, PixelConfig().Validate())

	c := testConfig()
	c.Freq = 0
	require.Error(t, c.Validate())

	c = testConfig()
	c.EpsMin = 1.5
	require.Error(t, c.Validate())

	c = testConfig()
	c.CheckpointEveryEpisodes = 10
	c.CheckpointEverySteps = 10
	require.Error(t, c.Validate())

	c = testConfig()
	c.Decay = "cosine"
	require.Error(t, c.Validate())

	c = testConfig()
	c.Gamma = 1
	require.Error(t, c.Validate())
}

func TestConfigLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"warmup": 5,
		"batch_size": 8,
		"env": {"Name": "Cartpole", "EpisodeCutoff": 200}
	}`), 0o644))

	c, err := VectorConfig().Load(path)
	require.NoError(t, err)
	require.Equal(t, 5, c.Warmup)
	require.Equal(t, 8, c.BatchSize)
	require.Equal(t, 10_000, c.Capacity)
	require.Equal(t, envconfig.Cartpole, c.Env.Name)
	require.NoError(t, c.Validate())
}
