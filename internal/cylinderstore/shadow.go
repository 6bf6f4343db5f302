package cylinderstore

import "github.com/vk/cellgrid/internal/model"

// CylinderView is the observable part of a Cylinder.
type CylinderView struct {
	LastRun         int64
	Running         bool
	Waiting         bool
	Result          model.Result
	LastInternalRun model.RunCounter
}

// Shadow is a read-only snapshot of every live cylinder.
type Shadow struct {
	Cylinders map[model.CellID]CylinderView
}

// Cylinder returns the view for id.
func (s Shadow) Cylinder(id model.CellID) (CylinderView, bool) {
	v, ok := s.Cylinders[id]
	return v, ok
}

// Busy reports whether any cell is running or waiting.
func (s Shadow) Busy() bool {
	for _, v := range s.Cylinders {
		if v.Running || v.Waiting {
			return true
		}
	}
	return false
}

// Snapshot copies the observable state of every live cylinder.
func (s *Store) Snapshot() Shadow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Shadow{Cylinders: make(map[model.CellID]CylinderView, len(s.cylinders))}
	for id, c := range s.cylinders {
		out.Cylinders[id] = CylinderView{
			LastRun:         c.LastRun,
			Running:         c.Running,
			Waiting:         c.Waiting,
			Result:          c.Result,
			LastInternalRun: c.LastInternalRun,
		}
	}
	return out
}
