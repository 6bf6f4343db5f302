package dag

import (
	"fmt"
	"slices"

	"github.com/vk/cellgrid/internal/model"
)

// Graph is a directed, name-labeled graph over the cells of one notebook.
// It is not safe for concurrent mutation; once built it is only read.
type Graph struct {
	// order is the declared cell order, used for every tie-break.
	order []model.CellID
	// index is the position of each cell in order.
	index map[model.CellID]int

	// incoming maps a consumer to its producers and the names it takes from each.
	incoming map[model.CellID]map[model.CellID][]string
	// outgoing maps a producer to its consumers and the names each takes.
	outgoing map[model.CellID]map[model.CellID][]string

	// producers maps each produced name to the cells producing it, in order.
	producers map[string][]model.CellID
}

// New creates an edgeless graph over the given cells. Duplicate ids keep
// their first position.
func New(order []model.CellID) *Graph {
	g := &Graph{
		index:     make(map[model.CellID]int, len(order)),
		incoming:  make(map[model.CellID]map[model.CellID][]string, len(order)),
		outgoing:  make(map[model.CellID]map[model.CellID][]string, len(order)),
		producers: make(map[string][]model.CellID),
	}
	for _, id := range order {
		g.AddNode(id)
	}
	return g
}

// AddNode appends a cell to the graph. If the cell already exists, the
// function does nothing.
func (g *Graph) AddNode(id model.CellID) {
	if _, ok := g.index[id]; ok {
		return
	}
	g.index[id] = len(g.order)
	g.order = append(g.order, id)
	g.incoming[id] = make(map[model.CellID][]string)
	g.outgoing[id] = make(map[model.CellID][]string)
}

// AddEdge records that `to` consumes `name` produced by `from`. An error is
// returned if either cell does not exist or if the edge would be a
// self-reference.
func (g *Graph) AddEdge(from, to model.CellID, name string) error {
	if from == to {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", from, from)
	}
	if _, ok := g.index[from]; !ok {
		return fmt.Errorf("source cell not found: %s", from)
	}
	if _, ok := g.index[to]; !ok {
		return fmt.Errorf("destination cell not found: %s", to)
	}

	g.incoming[to][from] = insertSorted(g.incoming[to][from], name)
	g.outgoing[from][to] = insertSorted(g.outgoing[from][to], name)
	return nil
}

// Order returns the declared cell order.
func (g *Graph) Order() []model.CellID { return slices.Clone(g.order) }

// Len returns the number of cells.
func (g *Graph) Len() int { return len(g.order) }

// Has reports whether id is a cell of the graph.
func (g *Graph) Has(id model.CellID) bool {
	_, ok := g.index[id]
	return ok
}

// Position returns the declared index of id, or -1.
func (g *Graph) Position(id model.CellID) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	return -1
}

// Upstream returns the cells id consumes from, in declared order.
func (g *Graph) Upstream(id model.CellID) []model.CellID {
	return g.sortedKeys(g.incoming[id])
}

// Downstream returns the cells consuming from id, in declared order.
func (g *Graph) Downstream(id model.CellID) []model.CellID {
	return g.sortedKeys(g.outgoing[id])
}

// Connected reports whether `to` currently consumes anything from `from`.
func (g *Graph) Connected(from, to model.CellID) bool {
	_, ok := g.incoming[to][from]
	return ok
}

// Labels returns the names carried by the edge from -> to, sorted.
func (g *Graph) Labels(from, to model.CellID) []string {
	return slices.Clone(g.incoming[to][from])
}

// Incoming returns, for id, every producer and the names taken from it.
func (g *Graph) Incoming(id model.CellID) map[model.CellID][]string {
	return cloneEdges(g.incoming[id])
}

// Outgoing returns, for id, every consumer and the names it takes.
func (g *Graph) Outgoing(id model.CellID) map[model.CellID][]string {
	return cloneEdges(g.outgoing[id])
}

// Producers returns the cells producing name, in declared order.
func (g *Graph) Producers(name string) []model.CellID {
	return slices.Clone(g.producers[name])
}

func (g *Graph) sortedKeys(m map[model.CellID][]string) []model.CellID {
	ids := make([]model.CellID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b model.CellID) int { return g.index[a] - g.index[b] })
	return ids
}

func insertSorted(names []string, name string) []string {
	i, found := slices.BinarySearch(names, name)
	if found {
		return names
	}
	return slices.Insert(names, i, name)
}

func cloneEdges(m map[model.CellID][]string) map[model.CellID][]string {
	out := make(map[model.CellID][]string, len(m))
	for id, names := range m {
		out[id] = slices.Clone(names)
	}
	return out
}
