package state

import (
	"sync"

	"fleetwatch/internal/domain"
)

// TrackStore holds the single-track record. It starts at a seed position so
// the map has somewhere to look before the first fix.
type TrackStore struct {
	mu       sync.RWMutex
	track    domain.Track
	received bool
	changes  *Notifier
}

func NewTrackStore(seed domain.Track, n *Notifier) *TrackStore {
	return &TrackStore{track: seed, changes: n}
}

// Set replaces the record and reports whether the coordinates moved.
func (s *TrackStore) Set(tr domain.Track) (moved bool) {
	s.mu.Lock()
	moved = s.track.Lat != tr.Lat || s.track.Lon != tr.Lon
	s.track = tr
	s.received = true
	s.mu.Unlock()
	s.changes.Notify()
	return moved
}

func (s *TrackStore) Get() domain.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.track
}

// Received reports whether any message has replaced the seed.
func (s *TrackStore) Received() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.received
}
