package cylinderstore

import (
	"context"
	"maps"
	"slices"

	"github.com/vk/cellgrid/internal/model"
)

// Cylinder is the engine's run state for one cell.
type Cylinder struct {
	ID      model.CellID
	Running bool
	Waiting bool
	Result  model.Result
	// Variables holds the bindings exported by the last successful run.
	Variables map[string]model.Value
	// LastRun is the RequestedRunTime the last completed run satisfied.
	LastRun int64
	// LastInternalRun is the engine counter stamped by the last completed run.
	LastInternalRun model.RunCounter
	// UpstreamCells are the producers the cell was connected to when it last
	// completed or was rejected.
	UpstreamCells []model.CellID

	run *inflight
}

// inflight is the cancellation handle of the current run.
type inflight struct {
	id        uint64
	cancel    context.CancelFunc
	requested int64
	source    string
}

func newCylinder(id model.CellID) *Cylinder {
	return &Cylinder{ID: id, LastRun: model.NeverRan}
}

// clone copies c so the caller can read it without holding the store lock.
// The cancellation handle is not exposed.
func (c *Cylinder) clone() Cylinder {
	cp := *c
	cp.Variables = maps.Clone(c.Variables)
	cp.UpstreamCells = slices.Clone(c.UpstreamCells)
	cp.run = nil
	return cp
}

// Variable returns the exported binding name, if any.
func (c Cylinder) Variable(name string) (model.Value, bool) {
	v, ok := c.Variables[name]
	return v, ok
}

// Ticket identifies one run of one cell.
type Ticket struct {
	Cell      model.CellID
	RunID     uint64
	Requested int64
	Source    string
}
