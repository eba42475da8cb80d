package orchestrator

import (
	"sync"
)

// slotStore holds the per-user exclusivity slots. At most one slot may be
// held per user at any instant; this is the system's principal invariant.
// All mutations are compare-and-set under one lock so two submissions can
// never both believe they acquired the same user's slot.
type slotStore struct {
	mu    sync.Mutex
	slots map[string]bool
}

func newSlotStore() *slotStore {
	return &slotStore{slots: make(map[string]bool)}
}

// TryAcquire claims the user's slot. Returns false if already held.
func (s *slotStore) TryAcquire(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slots[userID] {
		return false
	}
	s.slots[userID] = true
	return true
}

// Release frees the user's slot. Safe to call when not held.
func (s *slotStore) Release(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, userID)
}

// Held reports whether the user's slot is currently held
func (s *slotStore) Held(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[userID]
}

// Count returns the number of held slots
func (s *slotStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
