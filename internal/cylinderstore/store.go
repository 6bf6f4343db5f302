package cylinderstore

import (
	"context"
	"slices"
	"sync"

	"github.com/vk/cellgrid/internal/model"
)

// Store is the set of live cylinders.
type Store struct {
	mu        sync.RWMutex
	cylinders map[model.CellID]*Cylinder
	nextRun   uint64
}

// New creates a new, empty cylinder store.
func New() *Store {
	return &Store{cylinders: make(map[model.CellID]*Cylinder)}
}

// Ensure creates the cylinder for id if it does not exist yet and reports
// whether it did.
func (s *Store) Ensure(id model.CellID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cylinders[id]; ok {
		return false
	}
	s.cylinders[id] = newCylinder(id)
	return true
}

// Get returns a copy of the cylinder for id.
func (s *Store) Get(id model.CellID) (Cylinder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cylinders[id]
	if !ok {
		return Cylinder{}, false
	}
	return c.clone(), true
}

// Has reports whether a live cylinder exists for id.
func (s *Store) Has(id model.CellID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cylinders[id]
	return ok
}

// IDs returns the ids of all live cylinders, sorted.
func (s *Store) IDs() []model.CellID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]model.CellID, 0, len(s.cylinders))
	for id := range s.cylinders {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of live cylinders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cylinders)
}

// Update applies fn to the cylinder for id under the store lock. It reports
// false if there is no such cylinder.
func (s *Store) Update(id model.CellID, fn func(c *Cylinder)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cylinders[id]
	if !ok {
		return false
	}
	fn(c)
	return true
}

// Delete cancels any in-flight run of id and removes its cylinder.
func (s *Store) Delete(id model.CellID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cylinders[id]
	if !ok {
		return false
	}
	if c.run != nil {
		c.run.cancel()
		c.run = nil
	}
	delete(s.cylinders, id)
	return true
}

// CancelRun invokes the cancellation handle of id's current run, if any.
func (s *Store) CancelRun(id model.CellID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cylinders[id]
	if !ok || c.run == nil {
		return false
	}
	c.run.cancel()
	return true
}

// BeginRun installs a fresh cancellation handle for id derived from parent
// and marks the cylinder running. The previous handle, if any, is cancelled.
func (s *Store) BeginRun(parent context.Context, id model.CellID, requested int64, source string) (context.Context, Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cylinders[id]
	if !ok {
		return nil, Ticket{}, false
	}
	if c.run != nil {
		c.run.cancel()
	}

	s.nextRun++
	ctx, cancel := context.WithCancel(parent)
	c.run = &inflight{id: s.nextRun, cancel: cancel, requested: requested, source: source}
	c.Running = true
	c.Waiting = false
	return ctx, Ticket{Cell: id, RunID: s.nextRun, Requested: requested, Source: source}, true
}

// FinishRun applies fn to the cylinder only if t is still its current,
// uncancelled run, then releases the handle. It reports whether fn ran. A
// superseded run only clears the running flag when it is still the current
// one.
func (s *Store) FinishRun(runCtx context.Context, t Ticket, fn func(c *Cylinder)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cylinders[t.Cell]
	if !ok || c.run == nil || c.run.id != t.RunID {
		return false
	}
	cancelled := runCtx.Err() != nil
	c.run.cancel()
	c.run = nil
	c.Running = false
	if cancelled {
		return false
	}
	fn(c)
	return true
}

// Supersede cancels every in-flight run for which stale returns true and
// returns the affected cell ids.
func (s *Store) Supersede(stale func(t Ticket) bool) []model.CellID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cancelled []model.CellID
	for id, c := range s.cylinders {
		if c.run == nil {
			continue
		}
		t := Ticket{Cell: id, RunID: c.run.id, Requested: c.run.requested, Source: c.run.source}
		if stale(t) {
			c.run.cancel()
			cancelled = append(cancelled, id)
		}
	}
	slices.Sort(cancelled)
	return cancelled
}

// Clear cancels every in-flight run and removes all cylinders.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.cylinders {
		if c.run != nil {
			c.run.cancel()
		}
		delete(s.cylinders, id)
	}
}
