package dag

import "github.com/vk/cellgrid/internal/model"

// TopologicalOrder returns every cell, ordered so producers precede their
// consumers wherever the graph allows it. It is Kahn's algorithm with the
// ready set ordered by declared position, which keeps the result stable under
// unrelated edits. When only cells on or behind a cycle remain, a cyclic group
// that nothing else remaining feeds is emitted whole, in declared order, as if
// its inputs were resolved, and the algorithm carries on. Consumers of a cycle
// therefore always follow its members.
func (g *Graph) TopologicalOrder() []model.CellID {
	inDegree := make([]int, len(g.order))
	for i, id := range g.order {
		inDegree[i] = len(g.incoming[id])
	}

	done := make([]bool, len(g.order))
	result := make([]model.CellID, 0, len(g.order))

	emit := func(i int) {
		done[i] = true
		id := g.order[i]
		result = append(result, id)
		for consumer := range g.outgoing[id] {
			inDegree[g.index[consumer]]--
		}
	}

	for len(result) < len(g.order) {
		next := -1
		for i := range g.order {
			if !done[i] && inDegree[i] == 0 {
				next = i
				break
			}
		}
		if next != -1 {
			emit(next)
			continue
		}
		for _, i := range g.releasableGroup(done) {
			emit(i)
		}
	}
	return result
}

// releasableGroup returns, in declared order, the positions of the strongly
// connected group holding the earliest declared pending cell whose pending
// ancestors all lie on a cycle through it. Such a group has no pending input
// from outside, and one always exists while every pending cell is blocked.
func (g *Graph) releasableGroup(done []bool) []int {
	for i, id := range g.order {
		if done[i] {
			continue
		}
		ancestors := g.pendingReach(id, g.incoming, done)
		descendants := g.pendingReach(id, g.outgoing, done)
		source := true
		for a := range ancestors {
			if !descendants[a] {
				source = false
				break
			}
		}
		if !source {
			continue
		}
		group := []int{i}
		for j := i + 1; j < len(g.order); j++ {
			if ancestors[g.order[j]] {
				group = append(group, j)
			}
		}
		return group
	}
	// Unreachable while every pending cell has a pending producer.
	for i := range g.order {
		if !done[i] {
			return []int{i}
		}
	}
	return nil
}

// pendingReach collects the pending cells reachable from start along edges,
// excluding start unless it lies on a cycle.
func (g *Graph) pendingReach(start model.CellID, edges map[model.CellID]map[model.CellID][]string, done []bool) map[model.CellID]bool {
	seen := make(map[model.CellID]bool)
	stack := []model.CellID{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for next := range edges[id] {
			if done[g.index[next]] || seen[next] {
				continue
			}
			seen[next] = true
			stack = append(stack, next)
		}
	}
	return seen
}
