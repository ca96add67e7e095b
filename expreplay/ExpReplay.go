// Package expreplay implements a bounded experience replay buffer
package expreplay

import (
	"fmt"
	"math"

	"github.com/gammazero/deque"
	"github.com/samuelfneumann/godqn/timestep"
	"gonum.org/v1/gonum/mat"
)

// Config implements a specific configuration of an experience replay
// buffer
type Config struct {
	Capacity  int `json:"capacity"`
	BatchSize int `json:"batch_size"`

	// Frames stores states as bytes. It is lossless for image frames
	// whose intensities are integers in [0, 255] and uses an eighth of
	// the memory.
	Frames bool `json:"frames,omitempty"`
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive, "+
			"have(%v)", c.BatchSize)
	}
	if c.Capacity < c.BatchSize {
		return fmt.Errorf("validate: capacity must be at least the batch "+
			"size \n\twant(>=%v)\n\thave(%v)", c.BatchSize, c.Capacity)
	}
	return nil
}

// Create creates and returns the buffer with the specified Config
func (c Config) Create(features, numActions int, seed uint64) (*Store,
	error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	s, err := New(c.Capacity, c.BatchSize, features, numActions,
		NewUniformSelector(seed))
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	s.frames = c.Frames
	return s, nil
}

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	// Add adds a transition to the buffer
	Add(t timestep.Transition) error

	// Sample samples n distinct transitions from the buffer
	Sample(n int) (Batch, error)

	// Len returns the current number of transitions in the buffer
	Len() int

	// Capacity returns the maximum number of transitions in the buffer
	Capacity() int
}

// Batch is a batch of transitions. States and NextStates are row-major
// with one row per transition. Dones holds 1 for terminal transitions
// and 0 otherwise.
type Batch struct {
	States     []float64
	Actions    []int
	Rewards    []float64
	NextStates []float64
	Dones      []float64
}

// Size returns the number of transitions in the batch
func (b Batch) Size() int {
	return len(b.Actions)
}

// Store is a bounded FIFO experience replay buffer. Once at capacity,
// adding a transition evicts the single oldest one. Sampling draws
// distinct transitions uniformly at random.
//
// Store copies the states it is given. Consecutive transitions which
// share a state vector (the next state of one being the state of the
// following) share a single copy.
type Store struct {
	queue      *deque.Deque[entry]
	capacity   int
	batchSize  int
	features   int
	numActions int
	sampler    Selector
	frames     bool

	// The last next state added and its copy in the buffer
	lastNext     *mat.VecDense
	lastNextCopy *state
}

// entry is a transition as held by a Store
type entry struct {
	state  *state
	action int
	reward float64
	next   *state

	// discount is 0 for terminal transitions and 1 otherwise
	discount float64
}

// state is a stored state, either as float64s or, for image frames,
// as bytes
type state struct {
	vec   *mat.VecDense
	bytes []uint8
}

// newState copies v, as bytes if frames is set
func newState(v *mat.VecDense, frames bool) (*state, error) {
	if !frames {
		return &state{vec: mat.VecDenseCopyOf(v)}, nil
	}

	bytes := make([]uint8, v.Len())
	for i := range bytes {
		x := v.AtVec(i)
		if x < 0 || x > 255 || x != math.Trunc(x) {
			return nil, fmt.Errorf("frame intensity %v at %v is not an "+
				"integer in [0, 255]", x, i)
		}
		bytes[i] = uint8(x)
	}
	return &state{bytes: bytes}, nil
}

// appendTo appends the values of the state to dst
func (s *state) appendTo(dst []float64) []float64 {
	if s.vec != nil {
		return append(dst, s.vec.RawVector().Data...)
	}
	for _, b := range s.bytes {
		dst = append(dst, float64(b))
	}
	return dst
}

// vector returns the state as a vector. Byte states are decoded into
// a new vector.
func (s *state) vector() *mat.VecDense {
	if s.vec != nil {
		return s.vec
	}
	return mat.NewVecDense(len(s.bytes), s.appendTo(nil))
}

// New returns a new Store. If features is 0 the feature size is fixed
// by the first transition added. If numActions is 0 actions are not
// range checked.
func New(capacity, batchSize, features, numActions int,
	sampler Selector) (*Store, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("new: capacity must be positive, have(%v)",
			capacity)
	}
	if batchSize < 1 || batchSize > capacity {
		return nil, fmt.Errorf("new: batch size must be in [1, %v], "+
			"have(%v)", capacity, batchSize)
	}
	if features < 0 || numActions < 0 {
		return nil, fmt.Errorf("new: features and actions must be "+
			"non-negative, have(%v, %v)", features, numActions)
	}

	return &Store{
		queue:      deque.New[entry](),
		capacity:   capacity,
		batchSize:  batchSize,
		features:   features,
		numActions: numActions,
		sampler:    sampler,
	}, nil
}

// Add adds a transition to the buffer, evicting the oldest transition
// if the buffer is full
func (s *Store) Add(t timestep.Transition) error {
	if t.State == nil || t.NextState == nil {
		return &ExpReplayError{Op: "add", Err: fmt.Errorf("transition " +
			"states must not be nil")}
	}
	if err := s.check(t); err != nil {
		return &ExpReplayError{Op: "add", Err: err}
	}

	prev, err := s.copyState(t.State)
	if err != nil {
		return &ExpReplayError{Op: "add", Err: err}
	}
	next, err := newState(t.NextState, s.frames)
	if err != nil {
		return &ExpReplayError{Op: "add", Err: err}
	}

	stored := entry{
		state:    prev,
		action:   t.Action,
		reward:   t.Reward,
		next:     next,
		discount: t.Discount(),
	}
	s.lastNext, s.lastNextCopy = t.NextState, next

	if s.queue.Len() == s.capacity {
		s.queue.PopFront()
	}
	s.queue.PushBack(stored)

	return nil
}

// check ensures that a transition fits the layout of the buffer
func (s *Store) check(t timestep.Transition) error {
	if s.features == 0 {
		s.features = t.State.Len()
	}

	if t.State.Len() != s.features {
		return &ShapeMismatchError{"state size", s.features, t.State.Len()}
	}
	if t.NextState.Len() != s.features {
		return &ShapeMismatchError{"next state size", s.features,
			t.NextState.Len()}
	}
	if s.numActions > 0 && (t.Action < 0 || t.Action >= s.numActions) {
		return &ShapeMismatchError{"action", s.numActions - 1, t.Action}
	}
	return nil
}

// copyState copies a state, reusing the copy of the previous next
// state when the two are the same vector
func (s *Store) copyState(v *mat.VecDense) (*state, error) {
	if v == s.lastNext && s.lastNextCopy != nil {
		return s.lastNextCopy, nil
	}
	return newState(v, s.frames)
}

// Sample samples n distinct transitions uniformly at random from the
// buffer. If fewer than n transitions are stored an
// InsufficientDataError is returned.
func (s *Store) Sample(n int) (Batch, error) {
	if n < 1 {
		return Batch{}, &ExpReplayError{Op: "sample", Err: fmt.Errorf(
			"batch size must be positive, have(%v)", n)}
	}
	if n > s.queue.Len() {
		return Batch{}, &ExpReplayError{
			Op:  "sample",
			Err: &InsufficientDataError{Requested: n, Available: s.queue.Len()},
		}
	}

	indices := s.sampler.Choose(n, s.queue.Len())

	batch := Batch{
		States:     make([]float64, 0, n*s.features),
		Actions:    make([]int, 0, n),
		Rewards:    make([]float64, 0, n),
		NextStates: make([]float64, 0, n*s.features),
		Dones:      make([]float64, 0, n),
	}
	for _, i := range indices {
		e := s.queue.At(i)
		batch.States = e.state.appendTo(batch.States)
		batch.Actions = append(batch.Actions, e.action)
		batch.Rewards = append(batch.Rewards, e.reward)
		batch.NextStates = e.next.appendTo(batch.NextStates)
		batch.Dones = append(batch.Dones, 1-e.discount)
	}

	return batch, nil
}

// SampleBatch samples a batch of the configured batch size
func (s *Store) SampleBatch() (Batch, error) {
	return s.Sample(s.batchSize)
}

// At returns the transition at index i, where index 0 is the oldest
// transition in the buffer
func (s *Store) At(i int) timestep.Transition {
	e := s.queue.At(i)
	return timestep.Transition{
		State:     e.state.vector(),
		Action:    e.action,
		Reward:    e.reward,
		NextState: e.next.vector(),
		Done:      e.discount == 0,
	}
}

// Len returns the current number of transitions in the buffer
func (s *Store) Len() int {
	return s.queue.Len()
}

// Capacity returns the maximum number of transitions in the buffer
func (s *Store) Capacity() int {
	return s.capacity
}

// BatchSize returns the number of transitions returned by SampleBatch
func (s *Store) BatchSize() int {
	return s.batchSize
}

// Features returns the size of the states in the buffer, or 0 if it
// has not yet been fixed
func (s *Store) Features() int {
	return s.features
}
