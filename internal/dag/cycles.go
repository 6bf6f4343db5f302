package dag

import (
	"slices"

	"github.com/vk/cellgrid/internal/model"
)

// Cycle is an elementary dependency cycle. It starts and ends at the same
// cell; every step but the last carries the name exported to the next step.
type Cycle []model.CycleStep

// Cells returns the distinct cells of the cycle in chain order.
func (c Cycle) Cells() []model.CellID {
	if len(c) == 0 {
		return nil
	}
	ids := make([]model.CellID, 0, len(c)-1)
	for _, step := range c[:len(c)-1] {
		ids = append(ids, step.Cell)
	}
	return ids
}

// Contains reports whether id is on the cycle.
func (c Cycle) Contains(id model.CellID) bool {
	return slices.Contains(c.Cells(), id)
}

// From returns the same cycle rotated to start and end at id. It returns nil
// if id is not on the cycle.
func (c Cycle) From(id model.CellID) Cycle {
	cells := c.Cells()
	start := slices.Index(cells, id)
	if start < 0 {
		return nil
	}
	hops := c[:len(c)-1]
	out := make(Cycle, 0, len(c))
	out = append(out, hops[start:]...)
	out = append(out, hops[:start]...)
	out = append(out, model.CycleStep{Cell: id})
	return out
}

// Cycles enumerates the elementary cycles of the graph. Each cycle is listed
// once, rooted at its earliest declared cell, and follows the
// alphabetically first name of every edge it crosses. The enumeration is
// exhaustive, which is fine for notebook-sized graphs.
func (g *Graph) Cycles() []Cycle {
	var cycles []Cycle

	for rootIdx, root := range g.order {
		onPath := make(map[model.CellID]bool)
		var path []model.CycleStep

		var visit func(id model.CellID)
		visit = func(id model.CellID) {
			onPath[id] = true
			for _, next := range g.Downstream(id) {
				name := g.outgoing[id][next][0]
				if next == root {
					cycle := make(Cycle, 0, len(path)+2)
					cycle = append(cycle, path...)
					cycle = append(cycle, model.CycleStep{Cell: id, Name: name}, model.CycleStep{Cell: root})
					cycles = append(cycles, cycle)
					continue
				}
				// Only cells declared after the root, so each cycle is found from its first cell.
				if g.index[next] <= rootIdx || onPath[next] {
					continue
				}
				path = append(path, model.CycleStep{Cell: id, Name: name})
				visit(next)
				path = path[:len(path)-1]
			}
			delete(onPath, id)
		}
		visit(root)
	}
	return cycles
}

// CyclesThrough returns the cycles containing id, each rotated to start at id.
func CyclesThrough(cycles []Cycle, id model.CellID) []Cycle {
	var out []Cycle
	for _, c := range cycles {
		if c.Contains(id) {
			out = append(out, c.From(id))
		}
	}
	return out
}
