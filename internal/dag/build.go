package dag

import (
	"context"

	"github.com/vk/cellgrid/internal/ctxlog"
	"github.com/vk/cellgrid/internal/model"
)

// Build constructs the dependency graph for the given cells from their
// analyses. Cells without a Defines analysis neither produce nor consume.
func Build(ctx context.Context, order []model.CellID, analyses map[model.CellID]model.Analysis) *Graph {
	logger := ctxlog.FromContext(ctx)
	g := New(order)

	// First pass: index producers.
	for _, id := range g.order {
		for _, name := range model.ProducedBy(analyses[id]) {
			g.producers[name] = append(g.producers[name], id)
		}
	}

	// Second pass: link every consumed name to each of its producers.
	edges := 0
	for _, consumer := range g.order {
		for _, name := range model.ConsumedBy(analyses[consumer]) {
			for _, producer := range g.producers[name] {
				if producer == consumer {
					continue
				}
				// Both ends are known cells and distinct, so this cannot fail.
				_ = g.AddEdge(producer, consumer, name)
				edges++
			}
		}
	}

	logger.Debug("Dependency graph built.", "cells", len(g.order), "edges", edges)
	return g
}
