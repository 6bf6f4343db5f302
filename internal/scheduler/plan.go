package scheduler

import (
	"context"
	"errors"

	"github.com/vk/cellgrid/internal/cylinderstore"
	"github.com/vk/cellgrid/internal/dag"
	"github.com/vk/cellgrid/internal/model"
)

// Plan is the outcome of the planning half of a pass. It is read-only once
// built.
type Plan struct {
	Notebook model.Notebook
	Graph    *dag.Graph
	// Order is the topological order of the live cells.
	Order    []model.CellID
	Analyses map[model.CellID]model.Analysis
	// ShouldRunAt is the stamp each live cell should have run at.
	ShouldRunAt map[model.CellID]model.RunCounter
	// Scheduled lists the stale cells in topological order.
	Scheduled []model.CellID
	// Errors holds the rejection of every scheduled cell that cannot run.
	Errors map[model.CellID]error
	// Fine lists the scheduled runnable cells in topological order.
	Fine []model.CellID
	// Ready is the subset of Fine with no scheduled runnable producer.
	Ready []model.CellID

	scheduled map[model.CellID]bool
	fine      map[model.CellID]bool
	inert     map[model.CellID]bool
}

// IsScheduled reports whether id is stale in this pass.
func (p *Plan) IsScheduled(id model.CellID) bool { return p.scheduled[id] }

// Plan refreshes analyses and the graph for nb and classifies every cell. It
// only reads the cylinder store.
func (s *Scheduler) Plan(ctx context.Context, nb model.Notebook) *Plan {
	live := nb.LiveOrder()
	analyses := make(map[model.CellID]model.Analysis, len(live))
	for _, id := range live {
		analyses[id] = s.cache.Analyze(ctx, nb.Cells[id])
	}
	s.cache.Retain(nb.Positions())

	g := dag.Build(ctx, live, analyses)
	p := &Plan{
		Notebook:    nb,
		Graph:       g,
		Order:       g.TopologicalOrder(),
		Analyses:    analyses,
		ShouldRunAt: make(map[model.CellID]model.RunCounter, len(live)),
		Errors:      make(map[model.CellID]error),
		scheduled:   make(map[model.CellID]bool),
		fine:        make(map[model.CellID]bool),
		inert:       make(map[model.CellID]bool),
	}

	duplicates := g.DuplicateDefinitions()
	cycles := g.Cycles()
	conflicted := make(map[model.CellID]bool)
	for id := range duplicates {
		conflicted[id] = true
	}
	for _, c := range cycles {
		for _, id := range c.Cells() {
			conflicted[id] = true
		}
	}

	for _, id := range p.Order {
		cyl, _ := s.store.Get(id)
		at := s.shouldRunAt(p, nb.Cells[id], cyl, conflicted[id])
		p.ShouldRunAt[id] = at
		if at > cyl.LastInternalRun {
			p.scheduled[id] = true
		}
	}

	// A conflict is reported on all of its members at once. Groups can
	// overlap, so spread until nothing changes.
	for changed := true; changed; {
		changed = false
		for _, c := range cycles {
			changed = p.scheduleGroup(c.Cells()) || changed
		}
		for id, others := range duplicates {
			changed = p.scheduleGroup(append([]model.CellID{id}, others...)) || changed
		}
	}

	for _, id := range p.Order {
		if !p.scheduled[id] {
			continue
		}
		p.Scheduled = append(p.Scheduled, id)
		switch a := analyses[id].(type) {
		case model.NonExecutable:
			p.inert[id] = true
		case model.ParseError:
			p.Errors[id] = a.Err
		case model.Defines:
			if err := classify(id, a, duplicates, cycles); err != nil {
				p.Errors[id] = err
				continue
			}
			p.fine[id] = true
			p.Fine = append(p.Fine, id)
		}
	}

	for _, id := range p.Fine {
		if !p.anyFine(g.Upstream(id)) {
			p.Ready = append(p.Ready, id)
		}
	}
	return p
}

// shouldRunAt stamps one cell. Producers are visited before consumers, so
// their stamps are already in p.
func (s *Scheduler) shouldRunAt(p *Plan, cell model.Cell, cyl cylinderstore.Cylinder, conflicted bool) model.RunCounter {
	if cell.RequestedRunTime > cyl.LastRun {
		return model.RunNow
	}
	if !conflicted && rejectedByConflict(cyl.Result) {
		return model.RunNow
	}

	at := cyl.LastInternalRun
	for _, up := range p.Graph.Upstream(cell.ID) {
		at = model.MaxCounter(at, p.ShouldRunAt[up])
	}
	for _, up := range cyl.UpstreamCells {
		if !s.store.Has(up) || !p.Graph.Connected(up, cell.ID) {
			return model.RunNow
		}
		at = model.MaxCounter(at, p.ShouldRunAt[up])
	}
	return at
}

// rejectedByConflict reports whether r is a rejection caused by another cell.
func rejectedByConflict(r model.Result) bool {
	if !r.IsThrow() {
		return false
	}
	var se *model.StaticError
	if !errors.As(r.Err, &se) {
		return false
	}
	return se.Kind == model.DuplicateDefinition || se.Kind == model.CyclicDependency
}

// classify returns the static error that keeps a parsed cell from running,
// checked in order of precedence.
func classify(id model.CellID, a model.Defines, duplicates map[model.CellID][]model.CellID, cycles []dag.Cycle) error {
	if a.HasTopLevelEscape {
		return &model.StaticError{Kind: model.TopLevelEscape, Cell: id}
	}
	if others, ok := duplicates[id]; ok {
		return &model.StaticError{Kind: model.DuplicateDefinition, Cell: id, Conflicts: others}
	}
	if through := dag.CyclesThrough(cycles, id); len(through) > 0 {
		return &model.StaticError{Kind: model.CyclicDependency, Cell: id, Cycle: []model.CycleStep(through[0])}
	}
	return nil
}

// scheduleGroup schedules every member of ids if any member is scheduled. It
// reports whether a member was added.
func (p *Plan) scheduleGroup(ids []model.CellID) bool {
	hit := false
	for _, id := range ids {
		if p.scheduled[id] {
			hit = true
			break
		}
	}
	if !hit {
		return false
	}
	added := false
	for _, id := range ids {
		if !p.scheduled[id] {
			p.scheduled[id] = true
			added = true
		}
	}
	return added
}

func (p *Plan) anyFine(ids []model.CellID) bool {
	for _, id := range ids {
		if p.fine[id] {
			return true
		}
	}
	return false
}
