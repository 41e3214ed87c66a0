package state

import (
	"sort"
	"sync"

	"fleetwatch/internal/domain"
)

// Fleet holds the latest entity per id. Writes replace the whole entity.
type Fleet struct {
	mu       sync.RWMutex
	entities map[string]domain.Entity
	changes  *Notifier
}

func NewFleet(n *Notifier) *Fleet {
	return &Fleet{entities: make(map[string]domain.Entity), changes: n}
}

func (f *Fleet) Put(e domain.Entity) {
	f.mu.Lock()
	f.entities[e.ID] = e
	f.mu.Unlock()
	f.changes.Notify()
}

func (f *Fleet) Get(id string) (domain.Entity, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.entities[id]
	return e, ok
}

func (f *Fleet) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entities)
}

// Snapshot returns all entities ordered by id.
func (f *Fleet) Snapshot() []domain.Entity {
	f.mu.RLock()
	out := make([]domain.Entity, 0, len(f.entities))
	for _, e := range f.entities {
		out = append(out, e)
	}
	f.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
