package dag

import (
	"slices"

	"github.com/vk/cellgrid/internal/model"
)

// DuplicateDefinitions maps every cell that shares a produced name with
// another cell to the set of those other cells, in declared order. The
// relation is symmetric.
func (g *Graph) DuplicateDefinitions() map[model.CellID][]model.CellID {
	out := make(map[model.CellID][]model.CellID)
	for _, producers := range g.producers {
		if len(producers) < 2 {
			continue
		}
		for _, a := range producers {
			for _, b := range producers {
				if a == b || slices.Contains(out[a], b) {
					continue
				}
				out[a] = append(out[a], b)
			}
		}
	}
	for id := range out {
		slices.SortFunc(out[id], func(a, b model.CellID) int { return g.index[a] - g.index[b] })
	}
	return out
}

// DuplicateNames returns the names produced by more than one cell, sorted.
func (g *Graph) DuplicateNames() []string {
	var names []string
	for name, producers := range g.producers {
		if len(producers) > 1 {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}
