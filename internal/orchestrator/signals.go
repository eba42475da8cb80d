package orchestrator

import (
	"sync"
)

// signalStore holds the per-job pause/cancel control signals. Signals exist
// only while a job is active and are cleared when the job finishes.
// Cancel is dominant: requesting cancellation atomically clears the pause
// signal under the same lock, so a paused task always observes the
// cancellation on its next poll.
type signalStore struct {
	mu     sync.Mutex
	pause  map[string]bool
	cancel map[string]bool
}

func newSignalStore() *signalStore {
	return &signalStore{
		pause:  make(map[string]bool),
		cancel: make(map[string]bool),
	}
}

// Register creates cleared signals for a newly scheduled job
func (s *signalStore) Register(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pause[jobID] = false
	s.cancel[jobID] = false
}

// Clear removes both signals for a finished job
func (s *signalStore) Clear(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pause, jobID)
	delete(s.cancel, jobID)
}

// Known reports whether the job has live signals (i.e. is running)
func (s *signalStore) Known(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cancel[jobID]
	return ok
}

// RequestPause sets the pause signal
func (s *signalStore) RequestPause(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pause[jobID]; ok {
		s.pause[jobID] = true
	}
}

// ClearPause clears the pause signal
func (s *signalStore) ClearPause(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pause[jobID]; ok {
		s.pause[jobID] = false
	}
}

// RequestCancel sets the cancel signal and clears pause so a paused task
// unblocks and observes the cancellation
func (s *signalStore) RequestCancel(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cancel[jobID]; ok {
		s.cancel[jobID] = true
		s.pause[jobID] = false
	}
}

// PauseRequested reports the pause signal
func (s *signalStore) PauseRequested(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pause[jobID]
}

// CancelRequested reports the cancel signal
func (s *signalStore) CancelRequested(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel[jobID]
}
