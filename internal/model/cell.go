// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the notebook as the presentation layer hands it to the
// engine.
package model

import (
	"maps"
	"slices"
)

// CellID is the opaque, stable identifier of a cell within one notebook.
type CellID string

// Kind distinguishes executable cells from prose.
type Kind int

const (
	// KindCode is a cell whose source is analyzed and executed.
	KindCode Kind = iota
	// KindText is a prose cell. It never defines or consumes anything.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindCode:
		return "code"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Cell is one unit of notebook source. RequestedRunTime strictly increases
// every time the author explicitly asks for the cell to run.
type Cell struct {
	ID               CellID
	Kind             Kind
	Source           string
	RequestedRunTime int64
}

// Notebook is the snapshot supplied on every authoring change.
type Notebook struct {
	Order []CellID
	Cells map[CellID]Cell
}

// NewNotebook builds a notebook whose order follows the given cells.
func NewNotebook(cells ...Cell) Notebook {
	nb := Notebook{
		Order: make([]CellID, 0, len(cells)),
		Cells: make(map[CellID]Cell, len(cells)),
	}
	for _, c := range cells {
		if _, dup := nb.Cells[c.ID]; !dup {
			nb.Order = append(nb.Order, c.ID)
		}
		nb.Cells[c.ID] = c
	}
	return nb
}

// Cell returns the cell with the given id, if it is part of the notebook.
func (n Notebook) Cell(id CellID) (Cell, bool) {
	c, ok := n.Cells[id]
	return c, ok
}

// Contains reports whether id is part of the notebook.
func (n Notebook) Contains(id CellID) bool {
	_, ok := n.Cells[id]
	return ok
}

// Positions maps every id in Order to its index. Ids listed in Order without
// a Cell record are skipped.
func (n Notebook) Positions() map[CellID]int {
	pos := make(map[CellID]int, len(n.Order))
	for _, id := range n.Order {
		if _, ok := n.Cells[id]; !ok {
			continue
		}
		if _, seen := pos[id]; !seen {
			pos[id] = len(pos)
		}
	}
	return pos
}

// LiveOrder returns Order without duplicates and without ids that have no
// Cell record.
func (n Notebook) LiveOrder() []CellID {
	pos := n.Positions()
	out := make([]CellID, len(pos))
	for id, i := range pos {
		out[i] = id
	}
	return out
}

// Clone returns a copy that shares nothing with n.
func (n Notebook) Clone() Notebook {
	return Notebook{
		Order: slices.Clone(n.Order),
		Cells: maps.Clone(n.Cells),
	}
}
