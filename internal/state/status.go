package state

import (
	"sync"
	"time"

	"fleetwatch/internal/domain"
)

// Status tracks the feed connection state.
type Status struct {
	mu          sync.RWMutex
	current     domain.ConnectionStatus
	since       time.Time
	transitions map[domain.ConnectionStatus]int
	changes     *Notifier
}

func NewStatus(n *Notifier) *Status {
	return &Status{
		current:     domain.StatusDisconnected,
		since:       time.Now(),
		transitions: make(map[domain.ConnectionStatus]int),
		changes:     n,
	}
}

// Set records a transition. Setting the current value again is a no-op.
func (s *Status) Set(st domain.ConnectionStatus) bool {
	s.mu.Lock()
	if s.current == st {
		s.mu.Unlock()
		return false
	}
	s.current = st
	s.since = time.Now()
	s.transitions[st]++
	s.mu.Unlock()
	s.changes.Notify()
	return true
}

func (s *Status) Get() domain.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Status) Since() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.since
}

// Transitions returns how many times the status entered st.
func (s *Status) Transitions(st domain.ConnectionStatus) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transitions[st]
}
