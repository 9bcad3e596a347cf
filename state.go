package ember

import "sync"

// State holds the engine's position in the run and the output of the last
// iteration. It is shared between the loop and event handlers.
//
// Epoch and iteration counters are 1-indexed: they are incremented before the
// corresponding started event fires, so the first EpochStartedEvent observes
// epoch 1. The iteration counter is global and never resets between epochs.
//
// All methods are safe for concurrent use; handlers may read state from
// goroutines they spawn.
type State struct {
	mu        sync.RWMutex
	epoch     int64
	iteration int64
	output    any
}

// NewState creates a State with zeroed counters.
func NewState() *State {
	return &State{}
}

// Epoch returns the current epoch counter.
func (s *State) Epoch() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Iteration returns the current global iteration counter.
func (s *State) Iteration() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.iteration
}

// Output returns the value the process function returned for the most recent
// iteration, or nil before the first iteration completes.
func (s *State) Output() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.output
}

func (s *State) incrEpoch() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	return s.epoch
}

func (s *State) incrIteration() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iteration++
	return s.iteration
}

func (s *State) setOutput(v any) {
	s.mu.Lock()
	s.output = v
	s.mu.Unlock()
}

func (s *State) restore(epoch, iteration int64) {
	s.mu.Lock()
	s.epoch = epoch
	s.iteration = iteration
	s.mu.Unlock()
}
