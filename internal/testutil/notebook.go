package testutil

import "github.com/vk/cellgrid/internal/model"

// Code builds a code cell requested at time 1.
func Code(id, source string) model.Cell {
	return model.Cell{ID: model.CellID(id), Kind: model.KindCode, Source: source, RequestedRunTime: 1}
}

// Text builds a prose cell.
func Text(id, source string) model.Cell {
	return model.Cell{ID: model.CellID(id), Kind: model.KindText, Source: source, RequestedRunTime: 1}
}

// Edit returns nb with cell id's source replaced and its run requested
// again, the way an editor reports a change.
func Edit(nb model.Notebook, id, source string) model.Notebook {
	out := nb.Clone()
	cell := out.Cells[model.CellID(id)]
	cell.Source = source
	cell.RequestedRunTime++
	out.Cells[cell.ID] = cell
	return out
}

// Remove returns nb without cell id.
func Remove(nb model.Notebook, id string) model.Notebook {
	out := nb.Clone()
	delete(out.Cells, model.CellID(id))
	order := out.Order[:0]
	for _, other := range out.Order {
		if other != model.CellID(id) {
			order = append(order, other)
		}
	}
	out.Order = order
	return out
}
